package main

import (
	"time"

	"github.com/saaga0h/gammad/internal/daemon"
	"github.com/saaga0h/gammad/internal/gamma"
)

// status is the /status payload
type status struct {
	Location         string    `json:"location"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	LocationFallback bool      `json:"location_fallback"`
	Date             string    `json:"date"`
	Sunrise          string    `json:"sunrise"`
	Sunset           string    `json:"sunset"`
	Day              bool      `json:"day"`
	Weather          string    `json:"weather"`
	Fullscreen       bool      `json:"fullscreen_suppressed"`
	Decided          string    `json:"decided_preset"`
	Applied          string    `json:"applied_preset"`
	LastSunCheck     time.Time `json:"last_sun_check"`
	LastWeatherCheck time.Time `json:"last_weather_check"`
	Iterations       uint64    `json:"iterations"`
}

func newStatus(s daemon.State, applied gamma.Preset) status {
	return status{
		Location:         s.Location.Name,
		Latitude:         s.Location.Coordinates.Latitude,
		Longitude:        s.Location.Coordinates.Longitude,
		LocationFallback: s.Location.Fallback,
		Date:             s.Sun.Date,
		Sunrise:          s.Sun.Sunrise,
		Sunset:           s.Sun.Sunset,
		Day:              s.Day,
		Weather:          s.Weather.String(),
		Fullscreen:       s.Suppressed,
		Decided:          s.Preset.Name,
		Applied:          applied.Name,
		LastSunCheck:     s.LastSunCheck,
		LastWeatherCheck: s.LastWeatherCheck,
		Iterations:       s.Iterations,
	}
}
