// Package weather fetches current conditions, forecasts and air quality
// from Open-Meteo for the point being queried.
package weather

import (
	"time"
)

// Conditions is one weather reading. Units: temperature in Celsius,
// humidity and cloud cover in percent, pressure in hPa, wind speed in m/s,
// wind direction in degrees from north, precipitation in mm.
type Conditions struct {
	Time          time.Time `json:"time"`
	Temp          float64   `json:"temp"`
	Humidity      float64   `json:"humidity"`
	Pressure      float64   `json:"pressure"`
	WindSpeed     float64   `json:"wind_speed"`
	WindDirection float64   `json:"wind_direction"`
	Precipitation float64   `json:"precipitation"`
	CloudCover    float64   `json:"cloud_cover"`
}

// Report holds current conditions and an hourly forecast.
type Report struct {
	Current  Conditions   `json:"current"`
	Forecast []Conditions `json:"forecast"`
}

// AirQuality is a US AQI reading with its EPA category.
type AirQuality struct {
	Time     time.Time `json:"time"`
	Value    float64   `json:"value"`
	Category Category  `json:"category"`

	// DailyMax is the highest hourly US AQI of the reading's day.
	DailyMax float64 `json:"daily_max"`
}

// Category is an EPA AQI category.
type Category string

const (
	Good                        Category = "Good"
	Moderate                    Category = "Moderate"
	UnhealthyForSensitiveGroups Category = "Unhealthy for Sensitive Groups"
	Unhealthy                   Category = "Unhealthy"
	VeryUnhealthy               Category = "Very Unhealthy"
	Hazardous                   Category = "Hazardous"
)

// RateAQI maps a US AQI value to its EPA category.
func RateAQI(aqi float64) Category {
	switch {
	case aqi <= 50:
		return Good
	case aqi <= 100:
		return Moderate
	case aqi <= 150:
		return UnhealthyForSensitiveGroups
	case aqi <= 200:
		return Unhealthy
	case aqi <= 300:
		return VeryUnhealthy
	default:
		return Hazardous
	}
}
