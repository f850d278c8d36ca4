package trafficlight

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

type ConsoleHookConfig struct {
	NoColor bool `yaml:"no_color"`
}

// ConsoleHook prints a line for every green phase.
type ConsoleHook struct {
	name  string
	w     io.Writer
	green *color.Color
}

func NewConsoleHook(cfg *HookConfig) (*ConsoleHook, error) {
	return newConsoleHook(cfg, os.Stdout), nil
}

func newConsoleHook(cfg *HookConfig, w io.Writer) *ConsoleHook {
	green := color.New(color.FgGreen, color.Bold)
	if cfg.Console.NoColor {
		green.DisableColor()
	}
	return &ConsoleHook{
		name:  cfg.Name,
		w:     w,
		green: green,
	}
}

func (h *ConsoleHook) Name() string {
	return h.name
}

func (h *ConsoleHook) Run(ctx context.Context) error {
	n := newNotification(ctx)
	_, err := fmt.Fprintf(h.w, "%s crossing #%d: %s\n",
		time.Now().Format(time.RFC3339), n.Crossing, h.green.Sprint(n.Phase))
	return err
}
