package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fakhrymubarak/city-weather/internal/config"
	"github.com/fakhrymubarak/city-weather/internal/redis"
)

func TestOpenWeatherConfig(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "abc")
	cfg := openWeatherConfig()
	assert.Equal(t, "abc", cfg.APIKey)
	assert.Equal(t, "metric", cfg.Units)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5", cfg.BaseURL)
}

func TestServerTimeouts_WriteOutlastsUpstream(t *testing.T) {
	viper.Set("server.write_timeout", "1s")
	defer viper.Set("server.write_timeout", "30s")

	got := serverTimeouts()
	assert.Greater(t, got.Write, 2*config.GetOpenWeatherTimeout())
}

func TestBuildRouter_Health(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(buildRouter(ctx, zap.NewNop().Sugar()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuildRouter_MissingAPIKey(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rr := httptest.NewRecorder()
	buildRouter(ctx, zap.NewNop().Sugar()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/weather?city=Paris", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Server misconfiguration: missing OPENWEATHER_API_KEY"}`, rr.Body.String())
}

func TestBuildRateLimiter_DisabledByDefault(t *testing.T) {
	assert.Nil(t, buildRateLimiter(context.Background(), zap.NewNop().Sugar()))
}

// enableStrictLimiter turns the limiter on with two searches per city.
func enableStrictLimiter(t *testing.T) {
	t.Helper()
	viper.Set("rate_limiter.enabled", true)
	viper.Set("rate_limiter.param.rate", 2)
	viper.Set("rate_limiter.param.burst", 2)
	t.Cleanup(func() {
		viper.Set("rate_limiter.enabled", false)
		viper.Set("rate_limiter.param.rate", 20)
		viper.Set("rate_limiter.param.burst", 20)
	})
}

func TestBuildRouter_RepeatSearchesNotLimitedByDefault(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := buildRouter(ctx, zap.NewNop().Sugar())
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/weather?city=Berlin", nil))
		require.NotEqual(t, http.StatusTooManyRequests, rr.Code, "request %d", i+1)
	}
}

func TestBuildRateLimiter_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	redis.ResetClientForTest()
	defer redis.ResetClientForTest()
	enableStrictLimiter(t)
	viper.Set("rate_limiter.backend", "redis")
	defer viper.Set("rate_limiter.backend", "memory")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := buildRateLimiter(ctx, zap.NewNop().Sugar())
	require.NotNil(t, rl)

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	codes := make([]int, 3)
	for i := range codes {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/weather?city=Paris", nil))
		codes[i] = rr.Code
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	keys := mr.Keys()
	assert.NotEmpty(t, keys, "limiter state should live in redis")
}

func TestBuildRateLimiter_RedisDownFallsBackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	mr.Close()
	redis.ResetClientForTest()
	defer redis.ResetClientForTest()
	enableStrictLimiter(t)
	viper.Set("rate_limiter.backend", "redis")
	defer viper.Set("rate_limiter.backend", "memory")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NotNil(t, buildRateLimiter(ctx, zap.NewNop().Sugar()))
}
