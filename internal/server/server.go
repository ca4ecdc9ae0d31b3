package server

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fakhrymubarak/city-weather/internal/handler"
	"github.com/fakhrymubarak/city-weather/internal/middleware"
)

// Dependencies are the pieces the router is assembled from.
// RateLimiter may be nil, which disables rate limiting.
type Dependencies struct {
	Weather        *handler.WeatherHandler
	Page           *handler.PageHandler
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Logger         *zap.SugaredLogger
}

// Timeouts mirror the server.* config keys.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

func corsOptions(origins []string) []handlers.CORSOption {
	methods := handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions})
	allowed := handlers.AllowedOrigins(origins)
	headers := handlers.AllowedHeaders([]string{"Content-Type", middleware.RequestIDHeader})
	exposed := handlers.ExposedHeaders([]string{middleware.RequestIDHeader})

	return []handlers.CORSOption{methods, allowed, headers, exposed}
}

// NewRouter wires GET /api/weather, GET /healthz and the search page at /.
func NewRouter(d Dependencies) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handler.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handler.MethodNotAllowed)

	var weather http.Handler = http.HandlerFunc(d.Weather.HandleWeather)
	if d.RateLimiter != nil {
		weather = d.RateLimiter.Middleware(weather)
	}
	// Method checks for the API route live in the handler so non-GET gets JSON.
	r.Handle("/api/weather", handlers.CORS(corsOptions(d.AllowedOrigins)...)(weather))

	r.HandleFunc("/healthz", handler.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", d.Page.HandlePage).Methods(http.MethodGet)

	return middleware.Recover(d.Logger)(middleware.RequestLogger(d.Logger)(r))
}

// writeSlack covers encoding the error body after the slowest upstream wait.
const writeSlack = 5 * time.Second

// WriteTimeoutFor is the shortest write deadline that still lets a response
// out when upstream calls time out. The page waits on /api/weather, which
// waits on the provider, so the longest path is twice the upstream timeout.
func WriteTimeoutFor(upstream time.Duration) time.Duration {
	return 2*upstream + writeSlack
}

// AtLeast raises the write timeout to WriteTimeoutFor(upstream) when the
// configured value would cut the response off.
func (t Timeouts) AtLeast(upstream time.Duration) Timeouts {
	t.Write = max(t.Write, WriteTimeoutFor(upstream))
	return t
}

func NewServer(addr string, h http.Handler, t Timeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: t.ReadHeader,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
	}
}
