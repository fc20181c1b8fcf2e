package gamma

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNoDisplays is returned when no connected output is found
var ErrNoDisplays = errors.New("no connected displays found")

// Display enumerates outputs and sets their gamma
type Display interface {
	// Outputs lists currently connected outputs
	Outputs(ctx context.Context) ([]string, error)

	// SetGamma applies p to one output
	SetGamma(ctx context.Context, output string, p Preset) error
}

// Notifier is told about every preset change that reached the displays
type Notifier interface {
	PresetApplied(ctx context.Context, p Preset)
}

// Controller owns the currently applied preset and suppresses redundant writes
type Controller struct {
	mu       sync.Mutex
	display  Display
	current  Preset
	notifier Notifier
	logger   *slog.Logger
}

// NewController creates a controller. The tracked preset starts as Neutral.
func NewController(display Display, logger *slog.Logger) *Controller {
	return &Controller{
		display: display,
		current: Neutral,
		logger:  logger,
	}
}

// SetNotifier registers a notifier for applied presets
func (c *Controller) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// Current returns the last applied preset
func (c *Controller) Current() Preset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Apply enumerates the connected displays and sets p on each unless p is
// already applied. An empty enumeration is reported even for an unchanged p.
// Per-display failures are logged and returned joined, but the tracked
// preset still advances; a failed display is retried on the next change.
// The notifier is called outside the lock.
func (c *Controller) Apply(ctx context.Context, p Preset) error {
	notifier, err := c.apply(ctx, p)
	if notifier != nil {
		notifier.PresetApplied(ctx, p)
	}
	return err
}

func (c *Controller) apply(ctx context.Context, p Preset) (Notifier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outputs, err := c.outputs(ctx)
	if err != nil {
		return nil, err
	}

	if p == c.current {
		c.logger.Debug("Gamma preset unchanged, skipping", "preset", p.Name)
		return nil, nil
	}

	errs := c.setAll(ctx, outputs, p)

	previous := c.current
	c.current = p
	c.logger.Info("Gamma preset applied",
		"preset", p.Name,
		"previous", previous.Name,
		"gamma", p.Gamma(),
		"displays", len(outputs),
		"failed", len(errs))

	return c.notifier, errors.Join(errs...)
}

// Reset sets every connected display to Neutral regardless of tracked state
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reset(ctx)
}

// ResetWithin is Reset with a deadline that starts once the controller is
// free, so waiting on an in-flight Apply does not eat into the budget.
func (c *Controller) ResetWithin(ctx context.Context, budget time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return c.reset(ctx)
}

func (c *Controller) reset(ctx context.Context) error {
	outputs, err := c.outputs(ctx)
	if err != nil {
		return err
	}

	errs := c.setAll(ctx, outputs, Neutral)
	c.current = Neutral
	c.logger.Info("Displays reset to neutral", "displays", len(outputs), "failed", len(errs))

	return errors.Join(errs...)
}

func (c *Controller) outputs(ctx context.Context) ([]string, error) {
	outputs, err := c.display.Outputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating displays: %w", err)
	}
	if len(outputs) == 0 {
		return nil, ErrNoDisplays
	}
	return outputs, nil
}

func (c *Controller) setAll(ctx context.Context, outputs []string, p Preset) []error {
	var errs []error
	for _, output := range outputs {
		if err := c.display.SetGamma(ctx, output, p); err != nil {
			c.logger.Warn("Failed to set display gamma", "display", output, "preset", p.Name, "error", err)
			errs = append(errs, fmt.Errorf("display %s: %w", output, err))
		}
	}
	return errs
}
