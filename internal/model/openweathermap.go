package model

// WeatherCondition is one entry of the upstream "weather" array.
type WeatherCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CurrentMain holds the "main" block of the current-conditions payload.
// Optional fields are nil when the provider omits them.
type CurrentMain struct {
	Temp      float64  `json:"temp"`
	FeelsLike *float64 `json:"feels_like,omitempty"`
	Humidity  *float64 `json:"humidity,omitempty"`
}

type Wind struct {
	Speed *float64 `json:"speed,omitempty"`
}

// CurrentWeather is the subset of the /weather response the search page reads.
type CurrentWeather struct {
	Name    string             `json:"name"`
	Main    CurrentMain        `json:"main"`
	Wind    *Wind              `json:"wind,omitempty"`
	Weather []WeatherCondition `json:"weather"`
}

type ForecastMain struct {
	Temp float64 `json:"temp"`
}

// ForecastEntry is a single 3-hour step of the /forecast response.
type ForecastEntry struct {
	Dt      int64              `json:"dt"`
	Main    ForecastMain       `json:"main"`
	Weather []WeatherCondition `json:"weather"`
}

type ForecastResponse struct {
	List []ForecastEntry `json:"list"`
}
