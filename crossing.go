package trafficlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Light is what a Crossing watches: a blocking wait for the next green and a
// non-blocking read of the phase.
type Light interface {
	WaitForGreenContext(ctx context.Context) error
	CurrentPhase() Phase
}

// Crossing consumes the phase stream of a light and runs its hooks every time
// the light turns green. A light should have at most one Crossing.
type Crossing struct {
	Config *CrossingConfig

	light Light
	state *State
	hooks []Hook
}

func NewCrossing(cfg *CrossingConfig, light Light) (*Crossing, error) {
	c := &Crossing{
		Config: cfg,
		light:  light,
		state:  newState(),
	}
	for _, hc := range cfg.Hooks {
		h, err := NewHook(hc)
		if err != nil {
			return nil, fmt.Errorf("failed to create hook %s: %w", hc.Name, err)
		}
		c.hooks = append(c.hooks, h)
	}
	return c, nil
}

// Crossings returns the number of green phases observed so far.
// It must not be called concurrently with Run.
func (c *Crossing) Crossings() int {
	return c.state.Crossing
}

// Run waits for green phases until ctx is done. Hook failures are logged and
// do not stop the loop.
func (c *Crossing) Run(ctx context.Context) error {
	logger := slog.With("module", "crossing")
	if t := c.Config.GracePeriod; t > 0 {
		logger.Info("sleeping grace period", slog.Duration("grace_period", t))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t):
		}
	}
	for {
		logger.Debug("waiting for green")
		if err := c.light.WaitForGreenContext(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		// the channel hands out leftovers newest first, so a green popped
		// after a backlog may already be over
		if p := c.light.CurrentPhase(); p != PhaseGreen {
			c.state.Phase = p
			logger.Debug("skipping stale green", slog.String("phase", p.String()))
			continue
		}
		c.state.NextCrossing()
		if err := c.runHooks(ctx); err != nil {
			newLoggerFromContext(context.WithValue(ctx, stateKey, c.state)).
				Warn("some hooks failed", slog.String("error", err.Error()))
		}
	}
}

func (c *Crossing) runHooks(ctx context.Context) error {
	ctx = context.WithValue(ctx, stateKey, c.state)
	newLoggerFromContext(ctx).Info("light is green", slog.Int("hooks", len(c.hooks)))

	var errs error
	// all hooks run even if one fails.
	for i, h := range c.hooks {
		c.state.HookIndex = i
		c.state.Phase = c.light.CurrentPhase()
		if err := h.Run(ctx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("hook index:%d name:%s failed: %w", i, h.Name(), err))
		}
	}
	return errs
}
