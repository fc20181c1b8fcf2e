// Package daemon runs the adjustment control loop: it polls fullscreen state,
// refreshes sun times and weather on their own cadences, and applies the
// resulting gamma preset.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/saaga0h/gammad/internal/gamma"
	"github.com/saaga0h/gammad/internal/geo"
	"github.com/saaga0h/gammad/internal/sun"
	"github.com/saaga0h/gammad/internal/weather"
)

// Cadences
const (
	TickInterval    = 3 * time.Second
	SunInterval     = 600 * time.Second
	WeatherInterval = 3600 * time.Second
)

// LocationResolver resolves a location name to coordinates
type LocationResolver interface {
	Resolve(ctx context.Context, name string) geo.Location
}

// SunResolver resolves today's sunrise and sunset
type SunResolver interface {
	Resolve(ctx context.Context, coords geo.Coordinates, manualSunrise, manualSunset string) sun.Times
}

// WeatherClassifier reports the current weather state
type WeatherClassifier interface {
	Classify(ctx context.Context, coords geo.Coordinates) weather.State
}

// FullscreenDetector reports whether a fullscreen window is focused
type FullscreenDetector interface {
	IsFullscreen(ctx context.Context) bool
}

// GammaApplier applies presets to the displays
type GammaApplier interface {
	Apply(ctx context.Context, p gamma.Preset) error
}

// Options are the operator inputs to the loop
type Options struct {
	Location      string
	ManualSunrise string
	ManualSunset  string
}

// State is everything the loop carries between iterations
type State struct {
	Location         geo.Location  `json:"location"`
	Sun              sun.Times     `json:"sun"`
	Weather          weather.State `json:"-"`
	LastSunCheck     time.Time     `json:"last_sun_check"`
	LastWeatherCheck time.Time     `json:"last_weather_check"`
	Suppressed       bool          `json:"fullscreen_suppressed"`
	Day              bool          `json:"day"`
	Preset           gamma.Preset  `json:"preset"`
	Iterations       uint64        `json:"iterations"`
}

// Loop owns the control state and its collaborators
type Loop struct {
	opts       Options
	location   LocationResolver
	sun        SunResolver
	weather    WeatherClassifier
	fullscreen FullscreenDetector
	gamma      GammaApplier
	now        func() time.Time
	logger     *slog.Logger

	state State

	snapMu   sync.RWMutex
	snapshot State
}

// NewLoop wires the collaborators together
func NewLoop(opts Options, location LocationResolver, sunResolver SunResolver, classifier WeatherClassifier,
	detector FullscreenDetector, applier GammaApplier, logger *slog.Logger) *Loop {
	return &Loop{
		opts:       opts,
		location:   location,
		sun:        sunResolver,
		weather:    classifier,
		fullscreen: detector,
		gamma:      applier,
		now:        time.Now,
		logger:     logger,
		state:      State{Preset: gamma.Neutral},
	}
}

// SetClock overrides the time source
func (l *Loop) SetClock(now func() time.Time) {
	l.now = now
}

// Start resolves the location and today's sun times once
func (l *Loop) Start(ctx context.Context, now time.Time) {
	l.state.Location = l.location.Resolve(ctx, l.opts.Location)
	l.state.Sun = l.sun.Resolve(ctx, l.state.Location.Coordinates, l.opts.ManualSunrise, l.opts.ManualSunset)
	l.state.LastSunCheck = now

	l.logger.Info("Control loop initialised",
		"location", l.state.Location.Name,
		"coordinates", l.state.Location.Coordinates.String(),
		"sunrise", l.state.Sun.Sunrise,
		"sunset", l.state.Sun.Sunset)
	l.publish()
}

// Step runs one iteration at now
func (l *Loop) Step(ctx context.Context, now time.Time) {
	s := &l.state
	s.Iterations++
	defer l.publish()

	if l.fullscreen.IsFullscreen(ctx) {
		if !s.Suppressed {
			s.Suppressed = true
			l.logger.Info("Fullscreen window detected, forcing neutral gamma")
			l.apply(ctx, gamma.Neutral)
		}
		return
	}
	if s.Suppressed {
		s.Suppressed = false
		l.logger.Info("Fullscreen window left, resuming adjustment")
	}

	if now.Sub(s.LastSunCheck) >= SunInterval {
		s.Sun = l.sun.Resolve(ctx, s.Location.Coordinates, l.opts.ManualSunrise, l.opts.ManualSunset)
		s.LastSunCheck = now
	}

	s.Day = s.Sun.IsDay(now)
	if s.Day {
		if s.LastWeatherCheck.IsZero() || now.Sub(s.LastWeatherCheck) >= WeatherInterval {
			s.Weather = l.weather.Classify(ctx, s.Location.Coordinates)
			s.LastWeatherCheck = now
		}
	}

	l.apply(ctx, PresetFor(s.Day, s.Weather))
}

// Run starts the loop and steps every TickInterval until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	l.Start(ctx, l.now())

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Control loop stopping")
			return ctx.Err()
		case <-timer.C:
			l.Step(ctx, l.now())
			timer.Reset(TickInterval)
		}
	}
}

// Snapshot returns a copy of the state as of the last iteration
func (l *Loop) Snapshot() State {
	l.snapMu.RLock()
	defer l.snapMu.RUnlock()
	return l.snapshot
}

func (l *Loop) apply(ctx context.Context, p gamma.Preset) {
	l.state.Preset = p
	if err := l.gamma.Apply(ctx, p); err != nil {
		if errors.Is(err, gamma.ErrNoDisplays) {
			l.logger.Warn("No displays to adjust", "preset", p.Name)
			return
		}
		l.logger.Error("Failed to apply gamma preset", "preset", p.Name, "error", err)
	}
}

func (l *Loop) publish() {
	l.snapMu.Lock()
	l.snapshot = l.state
	l.snapMu.Unlock()
}

// PresetFor maps day/night and weather to a preset. Night ignores weather.
func PresetFor(day bool, w weather.State) gamma.Preset {
	if !day {
		return gamma.Night
	}
	if w == weather.Clouds {
		return gamma.Cloudy
	}
	return gamma.Neutral
}
