package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// the visitor holds the rate limiter and last seen time for one key.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps one token bucket per key in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{visitors: make(map[string]*visitor)}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit Limit) (bool, error) {
	return s.limiter(key, limit).Allow(), nil
}

// limiter returns the limiter for key, creating one if it does not exist.
func (s *MemoryStore) limiter(key string, limit Limit) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, exists := s.visitors[key]
	if !exists {
		l := rate.NewLimiter(rate.Limit(limit.Rate/60.0), limit.Burst)
		s.visitors[key] = &visitor{limiter: l, lastSeen: time.Now()}
		return l
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup removes visitors that have not been seen for longer than idle.
func (s *MemoryStore) Cleanup(idle time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range s.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(s.visitors, key)
		}
	}
}

// StartCleanup runs Cleanup every minute until ctx is done.
func (s *MemoryStore) StartCleanup(ctx context.Context, idle time.Duration) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(idle)
			}
		}
	}()
}

// Len reports how many keys are tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}
