package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fakhrymubarak/city-weather/internal/config"
	"github.com/fakhrymubarak/city-weather/internal/repository"
	"github.com/fakhrymubarak/city-weather/internal/service"
)

const (
	msgMissingCity   = "Missing city parameter"
	msgFetchFailed   = "Failed to fetch weather data"
	msgMisconfigured = "Server misconfiguration: missing " + config.APIKeyEnv
)

type WeatherHandler struct {
	WeatherService service.WeatherServiceInterface
}

func NewWeatherHandler(svc service.WeatherServiceInterface) *WeatherHandler {
	return &WeatherHandler{
		WeatherService: svc,
	}
}

// HandleWeather serves GET /api/weather?city=<name>.
func (h *WeatherHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, r)
		return
	}

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		writeError(w, http.StatusBadRequest, msgMissingCity, "")
		return
	}

	result, err := h.WeatherService.GetWeather(r.Context(), city)
	switch {
	case errors.Is(err, repository.ErrAPIKeyMissing):
		config.GetLogger().Errorw("Weather request rejected", "reason", msgMisconfigured)
		writeError(w, http.StatusInternalServerError, msgMisconfigured, "")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, msgFetchFailed, err.Error())
		return
	}

	writeJSONResponse(w, result.StatusCode, result.Body)
}
