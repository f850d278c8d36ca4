package trafficlight

import (
	"context"
	"errors"
)

// Hook is run by a Crossing every time the light turns green.
type Hook interface {
	Name() string
	Run(ctx context.Context) error
}

func NewHook(cfg *HookConfig) (Hook, error) {
	switch {
	case cfg.Command != nil:
		return NewCommandHook(cfg)
	case cfg.TCP != nil:
		return NewTCPHook(cfg)
	case cfg.HTTP != nil:
		return NewHTTPHook(cfg)
	case cfg.Console != nil:
		return NewConsoleHook(cfg)
	}
	return nil, errors.New("no hook defined")
}
