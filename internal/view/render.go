package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/fakhrymubarak/city-weather/internal/model"
)

// Placeholder is shown for any optional field the provider left out.
const Placeholder = "-"

const iconBaseURL = "https://openweathermap.org/img/wn/"

//go:embed templates/page.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/page.html"))

// Page is the render-ready form of a SearchView.
type Page struct {
	City     string
	State    State
	Loading  bool
	Error    string
	Current  *CurrentView
	Forecast []ForecastTile
}

type CurrentView struct {
	Name        string
	Temperature string
	Description string
	FeelsLike   string
	Humidity    string
	Wind        string
	IconURL     string
}

type ForecastTile struct {
	Hour        string
	Temperature string
	IconURL     string
}

// Snapshot formats the current state for display.
func (v *SearchView) Snapshot() Page {
	v.mu.Lock()
	defer v.mu.Unlock()

	p := Page{
		City:    v.city,
		State:   v.state,
		Loading: v.loading,
		Error:   v.errMsg,
	}
	if v.current != nil {
		p.Current = currentView(v.current)
	}
	for _, entry := range v.forecast {
		p.Forecast = append(p.Forecast, forecastTile(entry, v.loc))
	}
	return p
}

// Render writes the search page as HTML.
func (v *SearchView) Render(w io.Writer) error {
	if err := pageTemplate.Execute(w, v.Snapshot()); err != nil {
		return fmt.Errorf("render search page: %w", err)
	}
	return nil
}

func currentView(c *model.CurrentWeather) *CurrentView {
	cv := &CurrentView{
		Name:        c.Name,
		Temperature: formatRounded(c.Main.Temp),
		FeelsLike:   Placeholder,
		Humidity:    Placeholder,
		Wind:        Placeholder,
	}
	if len(c.Weather) > 0 {
		cv.Description = c.Weather[0].Description
		cv.IconURL = iconURL(c.Weather[0].Icon, "@4x")
	}
	if c.Main.FeelsLike != nil {
		cv.FeelsLike = formatRounded(*c.Main.FeelsLike)
	}
	if c.Main.Humidity != nil {
		cv.Humidity = strconv.FormatFloat(*c.Main.Humidity, 'f', -1, 64)
	}
	if c.Wind != nil && c.Wind.Speed != nil {
		cv.Wind = formatRounded(KilometersPerHour(*c.Wind.Speed))
	}
	return cv
}

func forecastTile(e model.ForecastEntry, loc *time.Location) ForecastTile {
	tile := ForecastTile{
		Hour:        HourLabel(e.Dt, loc),
		Temperature: formatRounded(e.Main.Temp),
	}
	if len(e.Weather) > 0 {
		tile.IconURL = iconURL(e.Weather[0].Icon, "")
	}
	return tile
}

// KilometersPerHour converts a wind speed from m/s.
func KilometersPerHour(metersPerSecond float64) float64 {
	return metersPerSecond * 3.6
}

// HourLabel returns the zero-padded hour of a Unix timestamp in loc.
func HourLabel(unix int64, loc *time.Location) string {
	return fmt.Sprintf("%02d", time.Unix(unix, 0).In(loc).Hour())
}

// Round rounds half up, so -2.5 becomes -2 and 2.5 becomes 3.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func formatRounded(x float64) string {
	return strconv.Itoa(Round(x))
}

func iconURL(icon, size string) string {
	if icon == "" {
		return ""
	}
	return iconBaseURL + icon + size + ".png"
}
