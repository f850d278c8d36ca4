package trafficlight

import (
	"context"
	"sync"
)

// BlockingChannel is an unbounded queue with a blocking receive and a
// non-blocking send.
//
// Receive always takes the most recently sent value that is still buffered,
// so values that pile up behind it come out in reverse send order.
type BlockingChannel[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  []T
}

func NewBlockingChannel[T any]() *BlockingChannel[T] {
	c := &BlockingChannel[T]{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Send buffers v and wakes one waiting receiver. It never blocks.
func (c *BlockingChannel[T]) Send(v T) {
	c.mu.Lock()
	c.buf = append(c.buf, v)
	c.mu.Unlock()
	c.cond.Signal()
}

// Receive blocks until a value is buffered and returns the newest one.
// It waits forever on a channel nobody sends to.
func (c *BlockingChannel[T]) Receive() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.buf) == 0 {
		c.cond.Wait()
	}
	return c.pop()
}

// ReceiveContext is like Receive, but returns ctx.Err() if ctx is done before
// a value is available.
func (c *BlockingChannel[T]) ReceiveContext(ctx context.Context) (T, error) {
	// the broadcast takes the lock, so it cannot slip in between the
	// ctx.Err check and cond.Wait below
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.buf) == 0 {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		c.cond.Wait()
	}
	return c.pop(), nil
}

// Len returns the number of buffered values.
func (c *BlockingChannel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// pop must be called with mu held and a non-empty buffer.
func (c *BlockingChannel[T]) pop() T {
	n := len(c.buf) - 1
	v := c.buf[n]
	var zero T
	c.buf[n] = zero
	c.buf = c.buf[:n]
	return v
}
