// Package schedule turns bursts of browser events into a bounded number of
// badge recomputations.
package schedule

import (
	"sync"
	"time"
)

// Policy configures a Coalescer.
type Policy struct {
	// Wait is the settle window. Every trigger restarts it.
	Wait time.Duration
	// Leading fires on the first trigger of a quiet period.
	Leading bool
	// Trailing fires once the window passes without triggers. With Leading
	// set, the trailing call only happens if more triggers followed the
	// leading one.
	Trailing bool
}

// Coalescer merges triggers that arrive within Policy.Wait of each other into
// one call of fn.
type Coalescer struct {
	policy Policy
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
}

// NewCoalescer returns a Coalescer calling fn according to p.
func NewCoalescer(p Policy, fn func()) *Coalescer {
	return &Coalescer{policy: p, fn: fn}
}

// Trigger records one event.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}

	leading := false
	if c.timer == nil {
		leading = c.policy.Leading
		c.pending = !leading && c.policy.Trailing
	} else {
		c.timer.Stop()
		c.pending = c.policy.Trailing
	}

	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.policy.Wait, func() { c.expire(gen) })
	c.mu.Unlock()

	if leading {
		c.fn()
	}
}

// Flush runs an owed trailing call immediately and closes the window.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	run := c.closeWindow()
	c.mu.Unlock()
	if run {
		c.fn()
	}
}

// Pending reports whether a trailing call is scheduled.
func (c *Coalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Stop drops any scheduled call. Later triggers are ignored.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	c.closeWindow()
	c.stopped = true
	c.mu.Unlock()
}

func (c *Coalescer) expire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.timer == nil {
		// Superseded by a later trigger.
		c.mu.Unlock()
		return
	}
	run := c.closeWindow()
	c.mu.Unlock()
	if run {
		c.fn()
	}
}

// closeWindow must be called with mu held. It reports whether a trailing
// call was owed.
func (c *Coalescer) closeWindow() bool {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	run := c.pending
	c.pending = false
	return run
}
