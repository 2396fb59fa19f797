package ledger

import "sync/atomic"

// ManualClock is a settable clock for simulations and tests.
type ManualClock struct {
	now atomic.Uint64
}

// NewManualClock returns a clock set to start.
func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

// Now returns the current timestamp.
func (c *ManualClock) Now() uint64 {
	return c.now.Load()
}

// Set moves the clock to ts.
func (c *ManualClock) Set(ts uint64) {
	c.now.Store(ts)
}

// Advance moves the clock forward by seconds.
func (c *ManualClock) Advance(seconds uint64) uint64 {
	return c.now.Add(seconds)
}
