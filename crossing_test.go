package trafficlight_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fujiwara/trafficlight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// greens lets n green phases through, then blocks until ctx is done.
type greens struct {
	mu sync.Mutex
	n  int
}

func (g *greens) CurrentPhase() trafficlight.Phase {
	return trafficlight.PhaseGreen
}

func (g *greens) WaitForGreenContext(ctx context.Context) error {
	g.mu.Lock()
	if g.n > 0 {
		g.n--
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func TestCrossing(t *testing.T) {
	cfg := &trafficlight.CrossingConfig{
		Hooks: []*trafficlight.HookConfig{
			{Name: "ok", Timeout: 5 * time.Second, Command: &trafficlight.CommandHookConfig{Run: "true"}},
			{Name: "ng", Timeout: 5 * time.Second, Command: &trafficlight.CommandHookConfig{Run: "false"}},
		},
	}
	c, err := trafficlight.NewCrossing(cfg, &greens{n: 3})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 3, c.Crossings())
}

type failingLight struct{}

func (failingLight) CurrentPhase() trafficlight.Phase {
	return trafficlight.PhaseRed
}

func (failingLight) WaitForGreenContext(context.Context) error {
	return errors.New("broken light")
}

func TestCrossingLightError(t *testing.T) {
	c, err := trafficlight.NewCrossing(&trafficlight.CrossingConfig{}, failingLight{})
	require.NoError(t, err)
	assert.EqualError(t, c.Run(context.Background()), "broken light")
}

func TestCrossingGracePeriodCancel(t *testing.T) {
	c, err := trafficlight.NewCrossing(&trafficlight.CrossingConfig{GracePeriod: time.Hour}, &greens{n: 1})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 0, c.Crossings())
}

func TestNewCrossingInvalidHook(t *testing.T) {
	cfg := &trafficlight.CrossingConfig{
		Hooks: []*trafficlight.HookConfig{
			{Name: "broken", Command: &trafficlight.CommandHookConfig{Run: "echo 'unterminated"}},
		},
	}
	_, err := trafficlight.NewCrossing(cfg, &greens{})
	assert.Error(t, err)
}

func TestCrossingSkipsStaleGreen(t *testing.T) {
	light := trafficlight.NewController(nil)
	// green was published before the newer red, so it comes out second
	light.SendPhase(trafficlight.PhaseGreen)
	light.SendPhase(trafficlight.PhaseRed)

	var seen []trafficlight.State
	c, err := trafficlight.NewCrossing(&trafficlight.CrossingConfig{}, light)
	require.NoError(t, err)
	c.AddHook(recordHook(&seen))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 0, c.Crossings())
	assert.Empty(t, seen)
	assert.Equal(t, 0, light.PendingPhases())
}

// turnsRed is green for one wait and turns red after the first phase read.
type turnsRed struct {
	mu    sync.Mutex
	waits int
	reads int
}

func (l *turnsRed) WaitForGreenContext(ctx context.Context) error {
	l.mu.Lock()
	l.waits++
	first := l.waits == 1
	l.mu.Unlock()
	if first {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (l *turnsRed) CurrentPhase() trafficlight.Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	if l.reads <= 2 {
		return trafficlight.PhaseGreen
	}
	return trafficlight.PhaseRed
}

func TestCrossingHooksSeeCurrentPhase(t *testing.T) {
	var seen []trafficlight.State
	c, err := trafficlight.NewCrossing(&trafficlight.CrossingConfig{}, &turnsRed{})
	require.NoError(t, err)
	c.AddHook(recordHook(&seen))
	c.AddHook(recordHook(&seen))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx))

	require.Len(t, seen, 2)
	assert.Equal(t, trafficlight.PhaseGreen, seen[0].Phase)
	assert.Equal(t, 1, seen[0].Crossing)
	assert.Equal(t, trafficlight.PhaseRed, seen[1].Phase)
	assert.Equal(t, 1, seen[1].HookIndex)
}

type hookFunc func(ctx context.Context) error

func (hookFunc) Name() string                    { return "func" }
func (f hookFunc) Run(ctx context.Context) error { return f(ctx) }

func recordHook(seen *[]trafficlight.State) trafficlight.Hook {
	return hookFunc(func(ctx context.Context) error {
		*seen = append(*seen, trafficlight.StateFromContext(ctx))
		return nil
	})
}
