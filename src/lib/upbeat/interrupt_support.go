package upbeat

import (
	"sync"
)

// Handler is an interrupt service routine.
type Handler func()

// MaxPending is how many interrupts can be latched while masked. Anything
// past this is dropped and counted, the way a flag register can only
// remember that something happened, not how many times.
const MaxPending = 32

// Controller is the interrupt mask of our single core. Code runs with
// interrupts either masked or unmasked; a handler raised while masked is
// latched and runs when they are unmasked again.
//
// Masking is not a lock. Two contexts that both need the same state still
// need their own mutual exclusion (see console.Cell); the controller only
// decides when handlers get to run.
type Controller struct {
	mu      sync.Mutex
	masked  bool
	pending []Handler
	dropped uint64
	serve   sync.Mutex // one handler at a time, like the real core
}

// CPU is the controller for the one core we have.
var CPU = NewController()

// NewController starts with interrupts masked, as at reset.
func NewController() *Controller {
	return &Controller{masked: true}
}

// Masked is true while interrupts are off.
func (c *Controller) Masked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.masked
}

// Disable masks interrupts and returns whether they were already masked,
// so the caller can Restore the previous state.
func (c *Controller) Disable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.masked
	c.masked = true
	return was
}

// Enable unmasks interrupts and runs anything latched while they were off.
func (c *Controller) Enable() {
	c.mu.Lock()
	c.masked = false
	c.mu.Unlock()
	c.drain()
}

// Restore puts the mask back to what Disable reported.
func (c *Controller) Restore(wasMasked bool) {
	if wasMasked {
		c.Disable()
		return
	}
	c.Enable()
}

// Free runs fn with interrupts masked and then restores the previous mask
// state, on every way out of fn including a panic.
func (c *Controller) Free(fn func()) {
	was := c.Disable()
	defer c.Restore(was)
	fn()
}

// Raise delivers an interrupt. It runs h now if interrupts are unmasked,
// otherwise it latches h until the next Enable.
func (c *Controller) Raise(h Handler) {
	c.mu.Lock()
	if c.masked {
		if len(c.pending) < MaxPending {
			c.pending = append(c.pending, h)
		} else {
			c.dropped++
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.run(h)
	c.drain()
}

// Pending is the number of latched interrupts.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Dropped is the number of interrupts lost because the latch was full.
func (c *Controller) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Controller) drain() {
	for {
		c.mu.Lock()
		if c.masked || len(c.pending) == 0 {
			c.mu.Unlock()
			return
		}
		h := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()
		c.run(h)
	}
}

// handlers run with interrupts masked, nested interrupts are not a thing
func (c *Controller) run(h Handler) {
	c.serve.Lock()
	defer c.serve.Unlock()
	was := c.Disable()
	defer func() {
		c.mu.Lock()
		c.masked = was
		c.mu.Unlock()
	}()
	h()
}
