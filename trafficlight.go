package trafficlight

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// TrafficLight wires a Controller to its Responder and Crossing.
type TrafficLight struct {
	Config *Config

	controller *Controller
	responder  *Responder
	crossing   *Crossing
}

func Run(ctx context.Context, cli *CLI) error {
	if cli.Debug {
		logLevel.Set(slog.LevelDebug)
	}
	cfg, err := LoadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	t, err := New(cfg, nil)
	if err != nil {
		return err
	}
	return t.Run(ctx)
}

// New builds a TrafficLight. opt is passed to NewController and may be nil.
func New(cfg *Config, opt *ControllerOptions) (*TrafficLight, error) {
	controller := NewController(opt)
	crossing, err := NewCrossing(cfg.Crossing, controller)
	if err != nil {
		return nil, err
	}
	return &TrafficLight{
		Config:     cfg,
		controller: controller,
		responder:  NewResponder(cfg.Responder, controller),
		crossing:   crossing,
	}, nil
}

func (t *TrafficLight) Controller() *Controller {
	return t.controller
}

// Run starts the light and blocks until ctx is done or a component fails.
func (t *TrafficLight) Run(ctx context.Context) error {
	slog.Info("trafficlight starting", "version", Version, "phase", t.controller.CurrentPhase())
	eg, ctx := errgroup.WithContext(ctx)
	if err := t.controller.Start(ctx); err != nil {
		return err
	}
	eg.Go(func() error {
		t.controller.Wait()
		return nil
	})
	eg.Go(func() error {
		return t.responder.Run(ctx)
	})
	eg.Go(func() error {
		return t.crossing.Run(ctx)
	})
	err := eg.Wait()
	slog.Info("trafficlight stopped", "crossings", t.crossing.Crossings())
	return err
}
