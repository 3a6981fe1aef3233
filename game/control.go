package game

import (
	"context"
	"sync"
)

// Control pauses, resumes and stops a running simulation. Requests take
// effect at the next tick boundary. All methods are safe for concurrent use.
type Control struct {
	mu       sync.Mutex
	paused   bool
	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// NewControl returns a Control in the running state.
func NewControl() *Control {
	return &Control{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
}

// Pause holds the run loop before its next tick.
func (c *Control) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume lets a paused run loop continue.
func (c *Control) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	c.signal()
}

// TogglePause flips the paused state and returns the new state.
func (c *Control) TogglePause() bool {
	c.mu.Lock()
	c.paused = !c.paused
	paused := c.paused
	c.mu.Unlock()
	c.signal()
	return paused
}

// Paused reports whether the run loop is paused.
func (c *Control) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stop ends the run loop after the current tick. Calling Stop more than once
// is harmless.
func (c *Control) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done is closed once Stop has been called.
func (c *Control) Done() <-chan struct{} {
	return c.stop
}

func (c *Control) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// wait blocks while paused. It returns false when the loop should exit.
func (c *Control) wait(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.stop:
			return false
		default:
		}

		if !c.Paused() {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-c.stop:
			return false
		case <-c.wake:
		}
	}
}
