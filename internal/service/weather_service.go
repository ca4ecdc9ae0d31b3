package service

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/fakhrymubarak/city-weather/internal/config"
	"github.com/fakhrymubarak/city-weather/internal/model"
	"github.com/fakhrymubarak/city-weather/internal/repository"
)

// WeatherResult is what the handler writes back: a status and a JSON body.
type WeatherResult struct {
	StatusCode int
	Body       any
}

type WeatherServiceInterface interface {
	GetWeather(ctx context.Context, city string) (*WeatherResult, error)
}

type WeatherService struct {
	WeatherRepo repository.WeatherRepository
}

func NewWeatherService(repo repository.WeatherRepository) *WeatherService {
	return &WeatherService{WeatherRepo: repo}
}

// GetWeather fetches current conditions and the forecast in parallel and
// merges them. An upstream non-200 is not an error: it becomes the result.
// Returned errors are either repository.ErrAPIKeyMissing (nothing was sent)
// or a transport/decode failure of one of the two calls.
func (s *WeatherService) GetWeather(ctx context.Context, city string) (*WeatherResult, error) {
	if err := s.WeatherRepo.CheckConfig(); err != nil {
		return nil, err
	}

	var current, forecast *repository.UpstreamResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.WeatherRepo.FetchCurrent(gctx, city)
		return err
	})
	g.Go(func() error {
		var err error
		forecast, err = s.WeatherRepo.FetchForecast(gctx, city)
		return err
	})
	if err := g.Wait(); err != nil {
		config.GetLogger().Errorw("Fetching weather failed", "city", city, "error", err)
		return nil, err
	}

	return compose(city, current, forecast), nil
}

// compose inspects current before forecast, whichever finished first.
func compose(city string, current, forecast *repository.UpstreamResponse) *WeatherResult {
	if current.StatusCode != http.StatusOK {
		config.GetLogger().Infow("Forwarding upstream error", "city", city, "endpoint", "weather", "status", current.StatusCode)
		return &WeatherResult{StatusCode: current.StatusCode, Body: current.Body}
	}
	if forecast.StatusCode != http.StatusOK {
		config.GetLogger().Infow("Forwarding upstream error", "city", city, "endpoint", "forecast", "status", forecast.StatusCode)
		return &WeatherResult{StatusCode: forecast.StatusCode, Body: forecast.Body}
	}
	return &WeatherResult{
		StatusCode: http.StatusOK,
		Body: model.MergedWeatherResult{
			Current:  current.Body,
			Forecast: forecast.Body,
		},
	}
}
