package trafficlight

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

const (
	MinCycleSeconds = 4
	MaxCycleSeconds = 6

	DefaultPollInterval = time.Millisecond
)

var ErrAlreadyStarted = errors.New("controller already started")

// ControllerOptions models optional configuration for NewController.
type ControllerOptions struct {
	// Clock drives the timing loop. Defaults to the wall clock.
	Clock Clock

	// Rand samples cycle durations. It is only used by the timing loop.
	// Defaults to a time-seeded source.
	Rand *rand.Rand

	// PollInterval is how long the timing loop sleeps between two checks of
	// the elapsed time. Defaults to DefaultPollInterval, if 0.
	PollInterval time.Duration
}

// Controller cycles a light between red and green, publishing every change
// to its channel.
type Controller struct {
	mu      sync.Mutex
	current Phase
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	ch           *BlockingChannel[Phase]
	clock        Clock
	rnd          *rand.Rand
	pollInterval time.Duration
}

// NewController returns a red, stopped controller. opt may be nil.
func NewController(opt *ControllerOptions) *Controller {
	c := &Controller{
		current:      PhaseRed,
		ch:           NewBlockingChannel[Phase](),
		clock:        wallClock{},
		pollInterval: DefaultPollInterval,
	}
	if opt != nil {
		if opt.Clock != nil {
			c.clock = opt.Clock
		}
		c.rnd = opt.Rand
		if opt.PollInterval > 0 {
			c.pollInterval = opt.PollInterval
		}
	}
	if c.rnd == nil {
		c.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Start runs the timing loop in a new goroutine and returns immediately.
// The loop runs until ctx is done or Stop is called. Only the first call
// starts a loop, later calls return ErrAlreadyStarted.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.cycleThroughPhases(ctx)
	return nil
}

// Stop cancels the timing loop and waits for it to return.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// Wait blocks until the timing loop has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) CurrentPhase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// WaitForGreen receives phases until it gets a green one. Red phases are
// discarded. It blocks forever if the light never turns green.
func (c *Controller) WaitForGreen() {
	for {
		if c.ch.Receive() == PhaseGreen {
			return
		}
	}
}

// WaitForGreenContext is like WaitForGreen, but gives up when ctx is done.
func (c *Controller) WaitForGreenContext(ctx context.Context) error {
	for {
		p, err := c.ch.ReceiveContext(ctx)
		if err != nil {
			return err
		}
		if p == PhaseGreen {
			return nil
		}
	}
}

func (c *Controller) cycleThroughPhases(ctx context.Context) {
	defer c.wg.Done()
	logger := slog.With("module", "controller")

	cycle := c.sampleCycle()
	lastUpdate := c.clock.Now()
	logger.Debug("timing loop started", slog.Duration("cycle", cycle))
	for {
		select {
		case <-ctx.Done():
			logger.Debug("timing loop stopped")
			return
		default:
		}
		c.clock.Sleep(c.pollInterval)

		if c.clock.Now().Sub(lastUpdate) < cycle {
			continue
		}
		prev, next := c.toggle()
		c.ch.Send(next)
		lastUpdate = c.clock.Now()
		cycle = c.sampleCycle()
		logger.Info("phase changed",
			slog.String("from", prev.String()),
			slog.String("to", next.String()),
			slog.Duration("next_cycle", cycle),
		)
	}
}

func (c *Controller) toggle() (prev, next Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev = c.current
	c.current = prev.Toggle()
	return prev, c.current
}

// sampleCycle returns a whole number of seconds in [MinCycleSeconds, MaxCycleSeconds].
func (c *Controller) sampleCycle() time.Duration {
	n := MinCycleSeconds + c.rnd.Intn(MaxCycleSeconds-MinCycleSeconds+1)
	return time.Duration(n) * time.Second
}
