package model

// WeatherPayload is how a client of /api/weather decodes a success body.
type WeatherPayload struct {
	Current  *CurrentWeather   `json:"current"`
	Forecast *ForecastResponse `json:"forecast"`
}
