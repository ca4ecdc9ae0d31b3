package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/city-weather/internal/model"
)

// Limit is a token bucket: Rate tokens per minute, at most Burst at once.
type Limit struct {
	Rate  float64
	Burst int
}

// Store decides whether one more request for key fits in limit.
type Store interface {
	Allow(ctx context.Context, key string, limit Limit) (bool, error)
}

// RateLimiter enforces a per-IP limit and a per-IP-per-parameter limit.
type RateLimiter struct {
	store    Store
	global   Limit
	param    Limit
	paramKey string
	proxies  *ProxyTrust
	logger   *zap.SugaredLogger
}

// NewRateLimiter builds a limiter keyed on the client IP and the value of the
// paramKey query parameter.
func NewRateLimiter(store Store, global, param Limit, paramKey string, logger *zap.SugaredLogger) *RateLimiter {
	return &RateLimiter{
		store:    store,
		global:   global,
		param:    param,
		paramKey: paramKey,
		logger:   logger,
	}
}

// WithProxyTrust makes the limiter key on the address behind trusted
// proxies. Without it every request is keyed on its direct peer.
func (rl *RateLimiter) WithProxyTrust(p *ProxyTrust) *RateLimiter {
	rl.proxies = p
	return rl
}

func (rl *RateLimiter) paramValue(r *http.Request) string {
	param := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(rl.paramKey)))
	if param == "" {
		// If param is missing, treat as a single bucket
		param = "__none__"
	}
	return param
}

// allow fails open: a broken store must not take the endpoint down.
func (rl *RateLimiter) allow(ctx context.Context, key string, limit Limit) bool {
	ok, err := rl.store.Allow(ctx, key, limit)
	if err != nil {
		rl.logger.Warnw("Rate limiter store failed, allowing request", "key", key, "error", err)
		return true
	}
	return ok
}

// Middleware responds with 429 and a JSON error once either limit is exhausted.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.proxies.ClientIP(r)
		param := rl.paramValue(r)

		if !rl.allow(r.Context(), "global:"+ip, rl.global) {
			rl.reject(w, ip, fmt.Sprintf("Rate limit exceeded: max %g requests per minute per user/IP", rl.global.Rate))
			return
		}
		if !rl.allow(r.Context(), "param:"+ip+":"+param, rl.param) {
			rl.reject(w, ip, fmt.Sprintf("Rate limit exceeded: max %g requests per minute per %s per user/IP", rl.param.Rate, rl.paramKey))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) reject(w http.ResponseWriter, ip, msg string) {
	rl.logger.Infow("Rate limit exceeded", "ip", ip)
	writeJSONError(w, http.StatusTooManyRequests, msg)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.ErrorResponse{Error: msg})
}
