// Package view implements the city search page: a small state machine that
// calls the weather endpoint and turns its reply into something to render.
package view

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/fakhrymubarak/city-weather/internal/model"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// MaxForecastEntries is how many 3-hour steps cover the next 24 hours.
const MaxForecastEntries = 8

const (
	MsgEmptyCity      = "Please enter a city"
	MsgFetchFailed    = "Failed to fetch"
	MsgSomethingWrong = "Something went wrong. Please try again."
)

// SearchView holds the state of one search page. A new search fully replaces
// the outcome of the previous one.
type SearchView struct {
	client WeatherClient
	loc    *time.Location

	mu       sync.Mutex
	city     string
	state    State
	loading  bool
	errMsg   string
	current  *model.CurrentWeather
	forecast []model.ForecastEntry
}

type Option func(*SearchView)

// WithLocation sets the time zone forecast hours are shown in.
func WithLocation(loc *time.Location) Option {
	return func(v *SearchView) {
		if loc != nil {
			v.loc = loc
		}
	}
}

func NewSearchView(client WeatherClient, opts ...Option) *SearchView {
	v := &SearchView{
		client: client,
		loc:    time.Local,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetCity updates the text input.
func (v *SearchView) SetCity(city string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.city = city
}

// Search runs one search for the current input. It never returns an error:
// failures end up in the view's error message.
func (v *SearchView) Search(ctx context.Context) {
	v.mu.Lock()
	city := v.city
	if strings.TrimSpace(city) == "" {
		v.state = StateError
		v.errMsg = MsgEmptyCity
		v.mu.Unlock()
		return
	}
	v.state = StateLoading
	v.loading = true
	v.errMsg = ""
	v.current = nil
	v.forecast = nil
	v.mu.Unlock()

	state, errMsg := StateError, MsgSomethingWrong
	var current *model.CurrentWeather
	var forecast []model.ForecastEntry
	defer func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.state = state
		v.errMsg = errMsg
		v.current = current
		v.forecast = forecast
		v.loading = false
	}()

	state, errMsg, current, forecast = v.fetch(ctx, city)
}

func (v *SearchView) fetch(ctx context.Context, city string) (State, string, *model.CurrentWeather, []model.ForecastEntry) {
	resp, err := v.client.FetchWeather(ctx, city)
	if err != nil {
		return StateError, MsgSomethingWrong, nil, nil
	}

	if !resp.OK() {
		var body any
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return StateError, MsgSomethingWrong, nil, nil
		}
		return StateError, errorMessage(body), nil, nil
	}

	var payload model.WeatherPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return StateError, MsgSomethingWrong, nil, nil
	}

	forecast := []model.ForecastEntry{}
	if payload.Forecast != nil {
		forecast = payload.Forecast.List
		if len(forecast) > MaxForecastEntries {
			forecast = forecast[:MaxForecastEntries]
		}
	}
	return StateSuccess, "", payload.Current, forecast
}

// errorMessage prefers "message" (the provider's field) over "error" (ours).
func errorMessage(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return MsgFetchFailed
	}
	for _, key := range []string{"message", "error"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return MsgFetchFailed
}

func (v *SearchView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *SearchView) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

func (v *SearchView) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errMsg
}
