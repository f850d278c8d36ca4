package trafficlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/Songmu/wrapcommander"
	"github.com/mattn/go-shellwords"
)

type CommandHookConfig struct {
	Run string `yaml:"run"`
}

type CommandHook struct {
	name     string
	commands []string
	timeout  time.Duration
}

func NewCommandHook(cfg *HookConfig) (*CommandHook, error) {
	cmds, err := shellwords.Parse(cfg.Command.Run)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %s %w", cfg.Command.Run, err)
	}
	if len(cmds) == 0 {
		return nil, errors.New("empty command")
	}
	return &CommandHook{
		name:     cfg.Name,
		commands: cmds,
		timeout:  cfg.Timeout,
	}, nil
}

func (c *CommandHook) Name() string {
	return c.name
}

// Run executes the command with the observed phase and crossing number
// exported as TRAFFICLIGHT_PHASE and TRAFFICLIGHT_CROSSING. A non-zero exit
// is returned as an error carrying the exit code.
func (c *CommandHook) Run(ctx context.Context) error {
	if len(c.commands) == 0 {
		return errors.New("no command")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	n := newNotification(ctx)
	logger := newLoggerFromContext(ctx).With(
		"name", c.name,
		"module", "commandhook",
		"command", c.commands[0],
	)
	cmd := exec.CommandContext(ctx, c.commands[0], c.commands[1:]...)
	cmd.Env = append(os.Environ(), notificationEnv(n)...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 3 * time.Second

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	if err != nil {
		code := wrapcommander.ResolveExitCode(err)
		logger.Warn("hook command failed",
			slog.Int("exit_code", code),
			slog.Duration("elapsed", elapsed),
			slog.String("output", string(out)),
		)
		return fmt.Errorf("command %q exited with %d on crossing #%d: %w", c.commands, code, n.Crossing, err)
	}
	logger.Debug("hook command done",
		slog.Duration("elapsed", elapsed),
		slog.String("output", string(out)),
	)
	return nil
}

func notificationEnv(n notification) []string {
	return []string{
		"TRAFFICLIGHT_PHASE=" + n.Phase.String(),
		"TRAFFICLIGHT_CROSSING=" + strconv.Itoa(n.Crossing),
	}
}
