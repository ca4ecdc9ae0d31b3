package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Custom error types
var (
	ErrAPIKeyMissing = errors.New("API key missing")
	ErrExternalAPI   = errors.New("external API error")
)

const (
	endpointCurrent  = "weather"
	endpointForecast = "forecast"
)

// OpenWeatherConfig is everything the repository needs to reach the provider.
type OpenWeatherConfig struct {
	BaseURL string
	APIKey  string
	Units   string
}

// UpstreamResponse is a provider reply whose body is known to be valid JSON.
// Non-200 replies are still returned as values, not errors.
type UpstreamResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// WeatherRepository defines the interface for weather data access
type WeatherRepository interface {
	// CheckConfig reports ErrAPIKeyMissing before any call is attempted.
	CheckConfig() error
	FetchCurrent(ctx context.Context, city string) (*UpstreamResponse, error)
	FetchForecast(ctx context.Context, city string) (*UpstreamResponse, error)
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	cfg        OpenWeatherConfig
	httpClient *http.Client
}

// NewWeatherRepository creates a new weather repository instance
func NewWeatherRepository(cfg OpenWeatherConfig, httpClient ...*http.Client) WeatherRepository {
	client := http.DefaultClient
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &weatherRepository{
		cfg:        cfg,
		httpClient: client,
	}
}

func (r *weatherRepository) CheckConfig() error {
	if r.cfg.APIKey == "" {
		return ErrAPIKeyMissing
	}
	return nil
}

// FetchCurrent retrieves current conditions for the city.
func (r *weatherRepository) FetchCurrent(ctx context.Context, city string) (*UpstreamResponse, error) {
	return r.fetch(ctx, endpointCurrent, city)
}

// FetchForecast retrieves the 5 day / 3 hour forecast for the city.
func (r *weatherRepository) FetchForecast(ctx context.Context, city string) (*UpstreamResponse, error) {
	return r.fetch(ctx, endpointForecast, city)
}

func (r *weatherRepository) endpointURL(endpoint, city string) string {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", r.cfg.APIKey)
	q.Set("units", r.cfg.Units)
	return r.cfg.BaseURL + "/" + endpoint + "?" + q.Encode()
}

func (r *weatherRepository) fetch(ctx context.Context, endpoint, city string) (*UpstreamResponse, error) {
	if err := r.CheckConfig(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpointURL(endpoint, city), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s request: %w", ErrExternalAPI, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s request failed: %w", ErrExternalAPI, endpoint, stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %w", ErrExternalAPI, endpoint, err)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %w", ErrExternalAPI, endpoint, err)
	}

	return &UpstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       raw,
	}, nil
}

// stripURL drops the request URL from transport errors so the API key never
// ends up in a response body or a log line.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
