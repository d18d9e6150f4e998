package testutil

import "sync"

// ManualClock is a settable ledger clock for tests and scenario replay.
//
// It reads whole seconds and only moves when told to, so an operation
// sequence replayed against a ManualClock sees exactly the same times on
// every run. ManualClock satisfies ledger.Clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

// NewManualClock creates a clock reading start.
func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading without changing it.
func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t. Moving backwards is allowed: the ledger
// evaluates each call against the time it is given and keeps no notion
// of "latest".
func (c *ManualClock) Set(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d seconds and returns the new
// reading. It saturates at the maximum uint64 instead of wrapping.
func (c *ManualClock) Advance(d uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now > ^uint64(0)-d {
		c.now = ^uint64(0)
	} else {
		c.now += d
	}
	return c.now
}

// Reset moves the clock back to 0.
func (c *ManualClock) Reset() {
	c.Set(0)
}
