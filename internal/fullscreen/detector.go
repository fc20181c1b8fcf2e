// Package fullscreen reports whether the focused window covers the screen.
package fullscreen

import (
	"context"
	"log/slog"
)

// Geometry is a width and height in pixels
type Geometry struct {
	Width  int
	Height int
}

// Covers reports whether g is at least as large as other in both dimensions
func (g Geometry) Covers(other Geometry) bool {
	return g.Width >= other.Width && g.Height >= other.Height
}

// Probe is the window-system capability used by geometry-based detection
type Probe interface {
	// ActiveWindow returns the focused window's size
	ActiveWindow(ctx context.Context) (Geometry, error)

	// Screen returns the screen's pixel dimensions
	Screen(ctx context.Context) (Geometry, error)
}

// Strategy is one interchangeable detection mechanism
type Strategy interface {
	Name() string
	Available() bool
	Fullscreen(ctx context.Context) (bool, error)
}

// Detector uses the first available strategy, chosen once at construction
type Detector struct {
	strategy Strategy
	enabled  bool
	logger   *slog.Logger
}

// NewDetector ranks strategies in the given order. With detection disabled or
// no strategy available, IsFullscreen always reports false.
func NewDetector(enabled bool, strategies []Strategy, logger *slog.Logger) *Detector {
	d := &Detector{enabled: enabled, logger: logger}
	if !enabled {
		logger.Info("Fullscreen detection disabled")
		return d
	}

	for _, s := range strategies {
		if s.Available() {
			d.strategy = s
			logger.Info("Fullscreen detection strategy selected", "strategy", s.Name())
			return d
		}
		logger.Debug("Fullscreen strategy unavailable", "strategy", s.Name())
	}

	logger.Warn("No fullscreen detection strategy available, fullscreen will never be reported")
	return d
}

// Strategy returns the name of the selected strategy, or "" if none
func (d *Detector) Strategy() string {
	if d.strategy == nil {
		return ""
	}
	return d.strategy.Name()
}

// IsFullscreen reports whether the focused window is fullscreen.
// Errors (no focused window, tool failure) count as not fullscreen.
func (d *Detector) IsFullscreen(ctx context.Context) bool {
	if !d.enabled || d.strategy == nil {
		return false
	}

	full, err := d.strategy.Fullscreen(ctx)
	if err != nil {
		d.logger.Debug("Fullscreen query failed", "strategy", d.strategy.Name(), "error", err)
		return false
	}
	return full
}

// GeometryStrategy compares the active window's size to the screen's
type GeometryStrategy struct {
	name      string
	probe     Probe
	available func() bool
}

// NewGeometryStrategy wraps a Probe. available reports whether its tools exist.
func NewGeometryStrategy(name string, probe Probe, available func() bool) *GeometryStrategy {
	return &GeometryStrategy{name: name, probe: probe, available: available}
}

func (g *GeometryStrategy) Name() string    { return g.name }
func (g *GeometryStrategy) Available() bool { return g.available() }

func (g *GeometryStrategy) Fullscreen(ctx context.Context) (bool, error) {
	window, err := g.probe.ActiveWindow(ctx)
	if err != nil {
		return false, err
	}
	screen, err := g.probe.Screen(ctx)
	if err != nil {
		return false, err
	}
	if screen.Width <= 0 || screen.Height <= 0 {
		return false, nil
	}
	return window.Covers(screen), nil
}
