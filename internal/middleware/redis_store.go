package middleware

import (
	"context"
	"fmt"
	"math"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisStore shares limits between server instances. It uses a fixed
// one-minute window per key that admits max(Burst, Rate) requests.
type RedisStore struct {
	client redisv9.Cmdable
	window time.Duration
}

func NewRedisStore(client redisv9.Cmdable) *RedisStore {
	return &RedisStore{client: client, window: time.Minute}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	redisKey := redisKeyPrefix + key

	// The key is created with its TTL before the first INCR, in one
	// MULTI/EXEC, so a counter can never outlive its window.
	var incr *redisv9.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.SetNX(ctx, redisKey, 0, s.window)
		incr = pipe.Incr(ctx, redisKey)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= windowMax(limit), nil
}

func windowMax(limit Limit) int64 {
	return int64(math.Max(float64(limit.Burst), math.Ceil(limit.Rate)))
}
