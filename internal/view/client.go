package view

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ProxyResponse is the raw reply of GET /api/weather.
type ProxyResponse struct {
	StatusCode int
	Body       []byte
}

// OK mirrors a browser's Response.ok: any 2xx status.
func (r *ProxyResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// WeatherClient is what the search view calls to reach the weather endpoint.
type WeatherClient interface {
	FetchWeather(ctx context.Context, city string) (*ProxyResponse, error)
}

// Client calls /api/weather over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
}

func NewClient(baseURL string, httpClient ...*http.Client) *Client {
	client := http.DefaultClient
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		header:     make(http.Header),
	}
}

// WithHeader returns a copy of the client that sends an extra header on every call.
func (c *Client) WithHeader(key, value string) *Client {
	cp := *c
	cp.header = c.header.Clone()
	cp.header.Set(key, value)
	return &cp
}

func (c *Client) FetchWeather(ctx context.Context, city string) (*ProxyResponse, error) {
	u := c.baseURL + "/api/weather?city=" + url.QueryEscape(city)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	return &ProxyResponse{StatusCode: resp.StatusCode, Body: body}, nil
}
