package trafficlight

import "context"

var NewExpectCodeFunc = newExpectCodeFunc

func (c *Controller) PendingPhases() int {
	return c.ch.Len()
}

func (c *Controller) ReceivePhase() Phase {
	return c.ch.Receive()
}

func (c *Controller) SendPhase(p Phase) {
	c.ch.Send(p)
}

var NewConsoleHookWithWriter = newConsoleHook

func WithState(ctx context.Context, p Phase, crossing int) context.Context {
	return context.WithValue(ctx, stateKey, &State{Phase: p, Crossing: crossing})
}

func (c *Crossing) AddHook(h Hook) {
	c.hooks = append(c.hooks, h)
}

func StateFromContext(ctx context.Context) State {
	return *ctx.Value(stateKey).(*State)
}
