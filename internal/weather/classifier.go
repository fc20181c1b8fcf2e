// Package weather reduces current conditions to the three states the gamma
// decision cares about.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/saaga0h/gammad/internal/cache"
	"github.com/saaga0h/gammad/internal/geo"
)

// State is a simplified weather category
type State int

const (
	Unknown State = iota
	Clear
	Clouds
)

func (s State) String() string {
	switch s {
	case Clear:
		return "clear"
	case Clouds:
		return "clouds"
	default:
		return "unknown"
	}
}

// FromCode maps a WMO weather code. Only 0 (clear sky) is Clear; every other
// condition, precipitation included, is treated as Clouds.
func FromCode(code int64) State {
	if code == 0 {
		return Clear
	}
	return Clouds
}

// Fetcher retrieves JSON documents
type Fetcher interface {
	GetJSON(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error)
}

// cachedState is the cache record; Unknown is never written
type cachedState struct {
	State       string          `json:"state"`
	Code        int64           `json:"code"`
	Coordinates geo.Coordinates `json:"coordinates"`
}

// Classifier looks up current conditions through an Open-Meteo compatible API
type Classifier struct {
	store    cache.Store
	fetcher  Fetcher
	endpoint string
	enabled  bool
	logger   *slog.Logger
}

// NewClassifier creates a weather classifier. A disabled classifier always
// reports Unknown without touching the cache or network.
func NewClassifier(store cache.Store, fetcher Fetcher, endpoint string, enabled bool, logger *slog.Logger) *Classifier {
	return &Classifier{
		store:    store,
		fetcher:  fetcher,
		endpoint: endpoint,
		enabled:  enabled,
		logger:   logger,
	}
}

// Classify returns the current weather state at coords
func (c *Classifier) Classify(ctx context.Context, coords geo.Coordinates) State {
	if !c.enabled {
		return Unknown
	}

	if cached, ok := cache.Lookup[cachedState](ctx, c.store, cache.KeyWeather, cache.TTLWeather); ok && cached.Coordinates == coords {
		switch cached.State {
		case Clear.String():
			c.logger.Debug("Using cached weather", "state", cached.State, "code", cached.Code)
			return Clear
		case Clouds.String():
			c.logger.Debug("Using cached weather", "state", cached.State, "code", cached.Code)
			return Clouds
		}
		c.logger.Warn("Ignoring unrecognised cached weather state", "state", cached.State)
	}

	code, err := c.fetchCode(ctx, coords)
	if err != nil {
		c.logger.Warn("Weather lookup failed", "coordinates", coords.String(), "error", err)
		return Unknown
	}

	state := FromCode(code)
	if err := c.store.Put(ctx, cache.KeyWeather, cachedState{State: state.String(), Code: code, Coordinates: coords}); err != nil {
		c.logger.Warn("Failed to cache weather", "error", err)
	}

	c.logger.Info("Weather classified", "state", state.String(), "code", code)
	return state
}

func (c *Classifier) fetchCode(ctx context.Context, coords geo.Coordinates) (int64, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", coords.Latitude))
	params.Set("longitude", fmt.Sprintf("%.4f", coords.Longitude))
	params.Set("current_weather", "true")

	doc, err := c.fetcher.GetJSON(ctx, c.endpoint, params)
	if err != nil {
		return 0, err
	}

	code := doc.Get("current_weather.weathercode")
	if code.Type != gjson.Number {
		return 0, fmt.Errorf("missing or non-numeric weather code %q", code.Raw)
	}
	return code.Int(), nil
}
