// Package geo resolves a human-readable location name to coordinates.
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/saaga0h/gammad/internal/cache"
)

// DefaultCoordinates is used whenever geocoding fails (Santiago, Chile)
var DefaultCoordinates = Coordinates{Latitude: -33.4489, Longitude: -70.6693}

// Coordinates is a position in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Valid reports whether the coordinates are within range
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Location is a resolved place
type Location struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Fallback    bool        `json:"-"`
}

// Fetcher retrieves JSON documents
type Fetcher interface {
	GetJSON(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error)
}

// Resolver looks up coordinates, consulting the cache first
type Resolver struct {
	store    cache.Store
	fetcher  Fetcher
	endpoint string
	logger   *slog.Logger
}

// NewResolver creates a geocoding resolver against a Nominatim-compatible endpoint
func NewResolver(store cache.Store, fetcher Fetcher, endpoint string, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		fetcher:  fetcher,
		endpoint: endpoint,
		logger:   logger,
	}
}

// Resolve returns coordinates for name. It never fails: lookup errors yield
// DefaultCoordinates, which are not cached.
func (r *Resolver) Resolve(ctx context.Context, name string) Location {
	if cached, ok := cache.Lookup[Location](ctx, r.store, cache.KeyCoordinates, cache.TTLCoordinates); ok && cached.Name == name {
		r.logger.Debug("Using cached coordinates", "location", name, "coordinates", cached.Coordinates.String())
		return cached
	}

	coords, err := r.lookup(ctx, name)
	if err != nil {
		r.logger.Warn("Geocoding failed, using default coordinates",
			"location", name,
			"default", DefaultCoordinates.String(),
			"error", err)
		return Location{Name: name, Coordinates: DefaultCoordinates, Fallback: true}
	}

	loc := Location{Name: name, Coordinates: coords}
	if err := r.store.Put(ctx, cache.KeyCoordinates, loc); err != nil {
		r.logger.Warn("Failed to cache coordinates", "error", err)
	}

	r.logger.Info("Resolved location", "location", name, "coordinates", coords.String())
	return loc
}

func (r *Resolver) lookup(ctx context.Context, name string) (Coordinates, error) {
	query := NormalizeName(name)
	if query == "" {
		return Coordinates{}, fmt.Errorf("empty location name")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	doc, err := r.fetcher.GetJSON(ctx, r.endpoint, params)
	if err != nil {
		return Coordinates{}, err
	}

	first := doc.Get("0")
	if !first.Exists() {
		return Coordinates{}, fmt.Errorf("no results for %q", query)
	}

	lat, err := parseDegrees(first.Get("lat"))
	if err != nil {
		return Coordinates{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := parseDegrees(first.Get("lon"))
	if err != nil {
		return Coordinates{}, fmt.Errorf("longitude: %w", err)
	}

	coords := Coordinates{Latitude: lat, Longitude: lon}
	if !coords.Valid() {
		return Coordinates{}, fmt.Errorf("coordinates out of range: %s", coords)
	}
	return coords, nil
}

// parseDegrees accepts Nominatim's string-encoded numbers as well as plain numbers
func parseDegrees(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Float(), nil
	case gjson.String:
		return strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	default:
		return 0, fmt.Errorf("missing or non-numeric value %q", v.Raw)
	}
}

// NormalizeName collapses runs of whitespace into single spaces
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
