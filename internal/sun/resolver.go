package sun

import (
	"context"
	"log/slog"
	"time"

	"github.com/saaga0h/gammad/internal/cache"
	"github.com/saaga0h/gammad/internal/geo"
)

// Resolver produces today's sun times from overrides, cache or a Provider
type Resolver struct {
	store    cache.Store
	provider Provider
	now      func() time.Time
	logger   *slog.Logger
}

// NewResolver creates a sun-times resolver
func NewResolver(store cache.Store, provider Provider, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		provider: provider,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock overrides the time source
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Resolve returns today's sunrise and sunset. Valid manual overrides (HH:MM)
// win for their field and are never cached. Any failure falls back to
// DefaultSunrise and DefaultSunset.
func (r *Resolver) Resolve(ctx context.Context, coords geo.Coordinates, manualSunrise, manualSunset string) Times {
	now := r.now()
	today := now.Format(DateLayout)

	overrideRise := r.manual("sunrise", manualSunrise)
	overrideSet := r.manual("sunset", manualSunset)

	if overrideRise != "" && overrideSet != "" {
		t := Times{Date: today, Sunrise: overrideRise, Sunset: overrideSet}
		if t.Valid() {
			r.logger.Debug("Using manual sun times", "sunrise", t.Sunrise, "sunset", t.Sunset)
			return t
		}
		r.logger.Warn("Manual sunrise is not before sunset, using defaults",
			"sunrise", t.Sunrise, "sunset", t.Sunset)
		return Times{Date: today, Sunrise: DefaultSunrise, Sunset: DefaultSunset}
	}

	var result Times
	if cached, ok := cache.Lookup[Times](ctx, r.store, cache.KeySunTimes, cache.TTLSunTimes); ok && cached.Date == today && cached.Valid() {
		r.logger.Debug("Using cached sun times", "date", cached.Date)
		result = cached
	}
	result.Date = today

	if overrideRise != "" {
		result.Sunrise = overrideRise
	}
	if overrideSet != "" {
		result.Sunset = overrideSet
	}

	fetched := false
	if result.Sunrise == "" || result.Sunset == "" {
		rise, set, err := r.provider.Times(ctx, coords, now)
		if err != nil {
			r.logger.Warn("Failed to fetch sun times", "coordinates", coords.String(), "error", err)
		} else {
			fetched = true
			if result.Sunrise == "" {
				result.Sunrise = rise
			}
			if result.Sunset == "" {
				result.Sunset = set
			}
		}
	}

	if !ValidClock(result.Sunrise) {
		r.logger.Warn("Invalid sunrise, using default", "sunrise", result.Sunrise, "default", DefaultSunrise)
		result.Sunrise = DefaultSunrise
		fetched = false
	}
	if !ValidClock(result.Sunset) {
		r.logger.Warn("Invalid sunset, using default", "sunset", result.Sunset, "default", DefaultSunset)
		result.Sunset = DefaultSunset
		fetched = false
	}
	if !result.Valid() {
		r.logger.Warn("Sunrise is not before sunset, using defaults",
			"sunrise", result.Sunrise, "sunset", result.Sunset)
		result.Sunrise, result.Sunset = DefaultSunrise, DefaultSunset
		fetched = false
	}

	if fetched && overrideRise == "" && overrideSet == "" {
		if err := r.store.Put(ctx, cache.KeySunTimes, result); err != nil {
			r.logger.Warn("Failed to cache sun times", "error", err)
		}
	}

	r.logger.Info("Resolved sun times", "date", result.Date, "sunrise", result.Sunrise, "sunset", result.Sunset)
	return result
}

// manual returns the normalized override, or "" when absent or invalid
func (r *Resolver) manual(field, value string) string {
	if value == "" {
		return ""
	}
	t, err := ParseManual(value)
	if err != nil {
		r.logger.Warn("Ignoring invalid manual override", "field", field, "value", value, "error", err)
		return ""
	}
	return t
}
