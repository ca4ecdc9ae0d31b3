package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// APIKeyEnv is the environment variable holding the OpenWeatherMap API key.
const APIKeyEnv = "OPENWEATHER_API_KEY"

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_header_timeout", "15s")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "30s")
	viper.SetDefault("server.allowed_origins", []string{"*"})
	viper.SetDefault("server.trusted_proxies", []string{"127.0.0.1", "::1"})
	viper.SetDefault("openweathermap.api_url", "https://api.openweathermap.org/data/2.5")
	viper.SetDefault("openweathermap.units", "metric")
	viper.SetDefault("openweathermap.timeout", "10s")
	viper.SetDefault("view.timezone", "Local")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("rate_limiter.enabled", false)
	viper.SetDefault("rate_limiter.backend", "memory")

	_ = viper.BindEnv("server.port", "PORT")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
}

func initConfig() {
	once.Do(func() {
		_ = godotenv.Load()
		setDefaults()

		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Warnw("Error finding project root", "error", err)
		}
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Warnw("Error reading config file, using defaults", "error", err)
		}

		if isTestRun() {
			viper.SetConfigName("config_test")
			viper.AddConfigPath(root)
			if err = viper.MergeInConfig(); err != nil {
				GetLogger().Warnw("Error reading test config file", "error", err)
			}
		}
	})
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// GetOpenWeatherApiUrl returns the upstream base URL, without a trailing slash.
func GetOpenWeatherApiUrl() string {
	initConfig()
	return strings.TrimRight(viper.GetString("openweathermap.api_url"), "/")
}

func GetOpenWeatherUnits() string {
	initConfig()
	return viper.GetString("openweathermap.units")
}

// GetOpenWeatherTimeout is the timeout applied to each upstream call.
func GetOpenWeatherTimeout() time.Duration {
	initConfig()
	return durationOr("openweathermap.timeout", 10*time.Second)
}

// GetOpenWeatherMapAPIKey reads the key from the environment (or a .env file).
// An empty result means the proxy is misconfigured.
func GetOpenWeatherMapAPIKey() string {
	_ = godotenv.Load()
	return strings.TrimSpace(os.Getenv(APIKeyEnv))
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

func GetServerPort() string {
	initConfig()
	serverPort := viper.GetString("server.port")
	return serverPort
}

// GetServerTimeout returns one of the server.* timeouts, e.g. "read_timeout".
func GetServerTimeout(key string) time.Duration {
	initConfig()
	return durationOr("server."+key, 15*time.Second)
}

func GetAllowedOrigins() []string {
	initConfig()
	origins := viper.GetStringSlice("server.allowed_origins")
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// GetTrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For
// header is believed. The default covers the search page's loopback calls.
func GetTrustedProxies() []string {
	initConfig()
	return viper.GetStringSlice("server.trusted_proxies")
}

// GetViewBaseURL is where the search page reaches the weather endpoint.
// Defaults to the loopback address of this server.
func GetViewBaseURL() string {
	initConfig()
	base := strings.TrimRight(viper.GetString("view.base_url"), "/")
	if base == "" {
		base = "http://127.0.0.1:" + GetServerPort()
	}
	return base
}

// GetViewLocation returns the time zone used for forecast hours.
// Unknown zones fall back to the server's local time.
func GetViewLocation() *time.Location {
	initConfig()
	name := viper.GetString("view.timezone")
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		GetLogger().Warnw("Unknown view timezone, using local time", "timezone", name, "error", err)
		return time.Local
	}
	return loc
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	viper.Reset()
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}

func IsRateLimiterEnabled() bool {
	initConfig()
	return viper.GetBool("rate_limiter.enabled")
}

// GetRateLimiterBackend returns "memory" or "redis".
func GetRateLimiterBackend() string {
	initConfig()
	backend := strings.ToLower(viper.GetString("rate_limiter.backend"))
	if backend != "redis" {
		return "memory"
	}
	return backend
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	initConfig()
	return durationOr("rate_limiter.cleanup_timeout", 3*time.Minute)
}

// GetGlobalRateLimiterConfig returns the rate and burst for the global rate limiter from config.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 60
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 60
	}
	return
}

// GetParamRateLimiterConfig returns the rate and burst for the param rate limiter from config.
func GetParamRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.param.rate")
	if rate == 0 {
		rate = 20
	}
	burst = viper.GetInt("rate_limiter.param.burst")
	if burst == 0 {
		burst = 20
	}
	return
}

func durationOr(key string, fallback time.Duration) time.Duration {
	durStr := viper.GetString(key)
	if durStr == "" {
		return fallback
	}
	dur, err := time.ParseDuration(durStr)
	if err != nil || dur <= 0 {
		return fallback
	}
	return dur
}
