package domain

import "time"

// Weather is the snapshot of conditions at the accident location. When the
// weather collaborator is unreachable the description degrades to "unknown"
// with a zero temperature.
type Weather struct {
	Description string    `json:"description"`
	Temperature float64   `json:"temperature"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Timestamp   time.Time `json:"timestamp"`
	IsFallback  bool      `json:"is_fallback"`
}

// UnknownWeather is the placeholder returned when the lookup fails.
func UnknownWeather() Weather {
	return Weather{
		Description: "unknown",
		Temperature: 0,
		Timestamp:   time.Now(),
		IsFallback:  true,
	}
}
