package model

import "encoding/json"

// ErrorResponse is the body of every error the proxy produces itself.
// Upstream error bodies are forwarded as they are and do not use it.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MergedWeatherResult is the success body of GET /api/weather. Both parts are
// the upstream bodies, untouched.
type MergedWeatherResult struct {
	Current  json.RawMessage `json:"current"`
	Forecast json.RawMessage `json:"forecast"`
}
