package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/city-weather/internal/config"
	"github.com/fakhrymubarak/city-weather/internal/handler"
	"github.com/fakhrymubarak/city-weather/internal/middleware"
	"github.com/fakhrymubarak/city-weather/internal/redis"
	"github.com/fakhrymubarak/city-weather/internal/repository"
	"github.com/fakhrymubarak/city-weather/internal/server"
	"github.com/fakhrymubarak/city-weather/internal/service"
	"github.com/fakhrymubarak/city-weather/internal/view"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := config.GetLogger()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := config.GetServerPort()
	srv := server.NewServer(":"+port, buildRouter(ctx, logger), serverTimeouts())

	go func() {
		logger.Infow("Weather server running", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Graceful shutdown failed", "error", err)
	}
}

// serverTimeouts reads the server.* timeouts, raising the write timeout so a
// timed-out upstream call still gets its JSON 500 written.
func serverTimeouts() server.Timeouts {
	return server.Timeouts{
		ReadHeader: config.GetServerTimeout("read_header_timeout"),
		Read:       config.GetServerTimeout("read_timeout"),
		Write:      config.GetServerTimeout("write_timeout"),
		Idle:       config.GetServerTimeout("idle_timeout"),
	}.AtLeast(config.GetOpenWeatherTimeout())
}

func openWeatherConfig() repository.OpenWeatherConfig {
	return repository.OpenWeatherConfig{
		BaseURL: config.GetOpenWeatherApiUrl(),
		APIKey:  config.GetOpenWeatherMapAPIKey(),
		Units:   config.GetOpenWeatherUnits(),
	}
}

func buildRouter(ctx context.Context, logger *zap.SugaredLogger) http.Handler {
	owCfg := openWeatherConfig()
	if owCfg.APIKey == "" {
		logger.Warnw("API key not set, /api/weather will answer 500", "env", config.APIKeyEnv)
	}

	upstream := &http.Client{Timeout: config.GetOpenWeatherTimeout()}
	weatherService := service.NewWeatherService(repository.NewWeatherRepository(owCfg, upstream))

	// The page calls /api/weather, which itself waits on two upstream calls.
	viewClient := view.NewClient(config.GetViewBaseURL(), &http.Client{Timeout: 2 * config.GetOpenWeatherTimeout()})

	proxies := proxyTrust(logger)
	rl := buildRateLimiter(ctx, logger)
	if rl != nil {
		rl.WithProxyTrust(proxies)
	}

	return server.NewRouter(server.Dependencies{
		Weather:        handler.NewWeatherHandler(weatherService),
		Page:           handler.NewPageHandler(viewClient, config.GetViewLocation(), proxies),
		RateLimiter:    rl,
		AllowedOrigins: config.GetAllowedOrigins(),
		Logger:         logger,
	})
}

// proxyTrust parses server.trusted_proxies. A bad list falls back to
// loopback only, which still covers the search page's own calls.
func proxyTrust(logger *zap.SugaredLogger) *middleware.ProxyTrust {
	p, err := middleware.NewProxyTrust(config.GetTrustedProxies())
	if err != nil {
		logger.Warnw("Invalid server.trusted_proxies, trusting loopback only", "error", err)
		p, _ = middleware.NewProxyTrust([]string{"127.0.0.1", "::1"})
	}
	return p
}

// buildRateLimiter returns nil when rate limiting is disabled. A redis backend
// that does not answer at startup falls back to memory.
func buildRateLimiter(ctx context.Context, logger *zap.SugaredLogger) *middleware.RateLimiter {
	if !config.IsRateLimiterEnabled() {
		return nil
	}

	var store middleware.Store
	if config.GetRateLimiterBackend() == "redis" {
		client := redis.GetClient()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := redis.Ping(pingCtx, client)
		cancel()
		if err == nil {
			store = middleware.NewRedisStore(client)
		} else {
			logger.Warnw("Redis unavailable, using in-memory rate limiter", "error", err)
		}
	}
	if store == nil {
		mem := middleware.NewMemoryStore()
		mem.StartCleanup(ctx, config.GetRateLimiterCleanupTimeout())
		store = mem
	}

	globalRate, globalBurst := config.GetGlobalRateLimiterConfig()
	paramRate, paramBurst := config.GetParamRateLimiterConfig()
	return middleware.NewRateLimiter(store,
		middleware.Limit{Rate: globalRate, Burst: globalBurst},
		middleware.Limit{Rate: paramRate, Burst: paramBurst},
		"city", logger)
}
