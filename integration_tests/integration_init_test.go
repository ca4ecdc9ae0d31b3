package integrationtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/city-weather/internal/handler"
	"github.com/fakhrymubarak/city-weather/internal/middleware"
	"github.com/fakhrymubarak/city-weather/internal/repository"
	"github.com/fakhrymubarak/city-weather/internal/server"
	"github.com/fakhrymubarak/city-weather/internal/service"
	"github.com/fakhrymubarak/city-weather/internal/view"
)

const testAPIKey = "test_api_key"

// MockResponse is what the fake provider answers for one endpoint.
type MockResponse struct {
	Code  int
	Body  string
	Delay time.Duration // held until the caller gives up or Delay passes
}

// fakeOWM stands in for api.openweathermap.org.
type fakeOWM struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]MockResponse // key: endpoint ("weather" or "forecast")
	requests  []*http.Request
	calls     int32
}

func newFakeOWM() *fakeOWM {
	f := &fakeOWM{responses: make(map[string]MockResponse)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *fakeOWM) serve(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(r.Context()))
	resp, ok := f.responses[strings.TrimPrefix(r.URL.Path, "/")]
	f.mu.Unlock()

	if !ok {
		resp = MockResponse{Code: http.StatusNotFound, Body: `{"cod":"404","message":"unknown endpoint"}`}
	}
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if r.URL.Query().Get("appid") != testAPIKey {
		resp = MockResponse{Code: http.StatusUnauthorized, Body: `{"cod":401,"message":"Invalid API key"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	_, _ = w.Write([]byte(resp.Body))
}

func (f *fakeOWM) set(endpoint string, resp MockResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[endpoint] = resp
}

func (f *fakeOWM) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = make(map[string]MockResponse)
	f.requests = nil
	atomic.StoreInt32(&f.calls, 0)
}

func (f *fakeOWM) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

// setupIntegrationTestServer wires the whole application against the fake
// provider, the same way main does, minus rate limiting.
func setupIntegrationTestServer(owm *fakeOWM, apiKey string) *httptest.Server {
	var router http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))

	repo := repository.NewWeatherRepository(repository.OpenWeatherConfig{
		BaseURL: owm.URL,
		APIKey:  apiKey,
		Units:   "metric",
	}, owm.Client())
	weatherService := service.NewWeatherService(repo)

	router = server.NewRouter(server.Dependencies{
		Weather:        handler.NewWeatherHandler(weatherService),
		Page:           handler.NewPageHandler(view.NewClient(srv.URL, srv.Client()), nil, nil),
		AllowedOrigins: []string{"*"},
		Logger:         zap.NewNop().Sugar(),
	})
	return srv
}

// setupRateLimitedServer is setupIntegrationTestServer with an in-memory limiter.
func setupRateLimitedServer(owm *fakeOWM) *httptest.Server {
	repo := repository.NewWeatherRepository(repository.OpenWeatherConfig{BaseURL: owm.URL, APIKey: testAPIKey}, owm.Client())
	logger := zap.NewNop().Sugar()
	rl := middleware.NewRateLimiter(middleware.NewMemoryStore(),
		middleware.Limit{Rate: 10, Burst: 10}, middleware.Limit{Rate: 2, Burst: 2}, "city", logger)

	return httptest.NewServer(server.NewRouter(server.Dependencies{
		Weather:        handler.NewWeatherHandler(service.NewWeatherService(repo)),
		Page:           handler.NewPageHandler(view.NewClient("http://unused.invalid"), nil, nil),
		RateLimiter:    rl,
		AllowedOrigins: []string{"https://app.example"},
		Logger:         logger,
	}))
}

// setupTimedServer wires the application with an upstream timeout and the
// server write deadline derived from it, as main does.
func setupTimedServer(owm *fakeOWM, upstreamTimeout time.Duration) *httptest.Server {
	var router http.Handler
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	srv.Config.WriteTimeout = server.WriteTimeoutFor(upstreamTimeout)
	srv.Start()

	repo := repository.NewWeatherRepository(repository.OpenWeatherConfig{
		BaseURL: owm.URL,
		APIKey:  testAPIKey,
		Units:   "metric",
	}, &http.Client{Timeout: upstreamTimeout})
	viewClient := view.NewClient(srv.URL, &http.Client{Timeout: 2 * upstreamTimeout})

	router = server.NewRouter(server.Dependencies{
		Weather:        handler.NewWeatherHandler(service.NewWeatherService(repo)),
		Page:           handler.NewPageHandler(viewClient, nil, nil),
		AllowedOrigins: []string{"*"},
		Logger:         zap.NewNop().Sugar(),
	})
	return srv
}

func currentBody(name string, temp float64) string {
	return fmt.Sprintf(`{"coord":{"lon":2.35,"lat":48.85},"name":%q,"main":{"temp":%g,"feels_like":17.9,"humidity":64,"pressure":1012},"wind":{"speed":5,"deg":200},"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}],"cod":200}`, name, temp)
}

func forecastBody(n int) string {
	entries := make([]string, n)
	for i := range entries {
		entries[i] = fmt.Sprintf(`{"dt":%d,"main":{"temp":%d.2},"weather":[{"description":"few clouds","icon":"02d"}],"dt_txt":"x"}`,
			1700000000+i*10800, 10+i)
	}
	return `{"cod":"200","cnt":` + fmt.Sprint(n) + `,"list":[` + strings.Join(entries, ",") + `]}`
}
