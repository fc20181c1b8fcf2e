package sun

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sixdouglas/suncalc"
	"github.com/tidwall/gjson"

	"github.com/saaga0h/gammad/internal/geo"
)

// Provider computes sunrise and sunset for a date, as local 24-hour clock strings
type Provider interface {
	Times(ctx context.Context, coords geo.Coordinates, date time.Time) (sunrise, sunset string, err error)
}

// Fetcher retrieves JSON documents
type Fetcher interface {
	GetJSON(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error)
}

// APIProvider queries a sunrise-sunset.org compatible API. The API answers in
// UTC with 12-hour clock strings; they are converted to the date's location.
type APIProvider struct {
	fetcher  Fetcher
	endpoint string
}

// NewAPIProvider creates a provider for the given endpoint
func NewAPIProvider(fetcher Fetcher, endpoint string) *APIProvider {
	return &APIProvider{fetcher: fetcher, endpoint: endpoint}
}

func (p *APIProvider) Times(ctx context.Context, coords geo.Coordinates, date time.Time) (string, string, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.6f", coords.Latitude))
	params.Set("lng", fmt.Sprintf("%.6f", coords.Longitude))
	params.Set("date", date.Format(DateLayout))

	doc, err := p.fetcher.GetJSON(ctx, p.endpoint, params)
	if err != nil {
		return "", "", err
	}
	if status := doc.Get("status").String(); status != "" && status != "OK" {
		return "", "", fmt.Errorf("sun API status %s", status)
	}

	rawRise := doc.Get("results.sunrise").String()
	rawSet := doc.Get("results.sunset").String()

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rise, err := parse12Hour(day, rawRise)
	if err != nil {
		return "", "", fmt.Errorf("sunrise: %w", err)
	}
	set, err := parse12Hour(day, rawSet)
	if err != nil {
		return "", "", fmt.Errorf("sunset: %w", err)
	}
	// West of Greenwich the UTC sunset often lands after midnight.
	if !set.After(rise) {
		set = set.Add(24 * time.Hour)
	}

	loc := date.Location()
	return rise.In(loc).Format(ClockLayout), set.In(loc).Format(ClockLayout), nil
}

// parse12Hour converts "7:27:02 AM" on day into an instant
func parse12Hour(day time.Time, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing value")
	}
	clock, err := time.Parse("3:04:05 PM", strings.ToUpper(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", s, err)
	}
	return day.Add(time.Duration(clock.Hour())*time.Hour +
		time.Duration(clock.Minute())*time.Minute +
		time.Duration(clock.Second())*time.Second), nil
}

// LocalProvider computes sun times offline with suncalc
type LocalProvider struct{}

// NewLocalProvider creates an offline provider
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (p *LocalProvider) Times(ctx context.Context, coords geo.Coordinates, date time.Time) (string, string, error) {
	loc := date.Location()
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc)
	times := suncalc.GetTimes(noon, coords.Latitude, coords.Longitude)

	rise := times[suncalc.Sunrise].Value
	set := times[suncalc.Sunset].Value
	if !usable(rise) || !usable(set) {
		// Polar day or night: the sun never crosses the horizon.
		return "", "", fmt.Errorf("no sunrise/sunset at %s on %s", coords, date.Format(DateLayout))
	}

	rise, set = rise.In(loc), set.In(loc)
	if rise.Format(DateLayout) != noon.Format(DateLayout) || set.Format(DateLayout) != noon.Format(DateLayout) {
		return "", "", fmt.Errorf("sunrise/sunset fall outside %s", noon.Format(DateLayout))
	}
	return rise.Format(ClockLayout), set.Format(ClockLayout), nil
}

func usable(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	// NaN julian dates surface as wildly out-of-range instants.
	y := t.Year()
	return y > 1900 && y < 3000
}
