// Package sun resolves today's sunrise and sunset for a location.
package sun

import (
	"fmt"
	"regexp"
	"time"
)

const (
	// DateLayout is the calendar date format stored with cached times
	DateLayout = "2006-01-02"

	// ClockLayout is the 24-hour wall-clock format for sunrise and sunset
	ClockLayout = "15:04:05"

	DefaultSunrise = "07:00:00"
	DefaultSunset  = "20:00:00"
)

var (
	manualPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	clockPattern  = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9]$`)
)

// Times holds sunrise and sunset for one local calendar date
type Times struct {
	Date    string `json:"date"`
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

// Valid reports whether both times are well-formed and sunrise precedes sunset
func (t Times) Valid() bool {
	if !ValidClock(t.Sunrise) || !ValidClock(t.Sunset) {
		return false
	}
	return secondsOfDay(t.Sunrise) < secondsOfDay(t.Sunset)
}

// IsDay reports whether now falls in [sunrise, sunset). Exactly at sunset is night.
func (t Times) IsDay(now time.Time) bool {
	if !ValidClock(t.Sunrise) || !ValidClock(t.Sunset) {
		return false
	}
	s := now.Hour()*3600 + now.Minute()*60 + now.Second()
	return s >= secondsOfDay(t.Sunrise) && s < secondsOfDay(t.Sunset)
}

// ValidClock reports whether s is a 24-hour HH:MM:SS time
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// ParseManual validates an operator override in HH:MM form and returns it
// with seconds appended.
func ParseManual(s string) (string, error) {
	if !manualPattern.MatchString(s) {
		return "", fmt.Errorf("invalid time %q: expected HH:MM (24-hour)", s)
	}
	return s + ":00", nil
}

// secondsOfDay assumes s has passed ValidClock
func secondsOfDay(s string) int {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return -1
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
