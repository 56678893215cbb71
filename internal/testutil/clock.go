package testutil

import "sync/atomic"

// DeterministicClock stamps recorded steps with logical time.
//
// Stamp returns 0 first, matching the seq of a loop's seed commit, so a
// recorder that stamps every interpreted state reproduces commit seqs for
// a loop interpreted in order.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	next atomic.Int64
}

// NewDeterministicClock creates a clock whose first stamp is 0.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Stamp returns the current value and advances the clock.
func (c *DeterministicClock) Stamp() int64 {
	return c.next.Add(1) - 1
}

// Current returns the value the next Stamp will return.
func (c *DeterministicClock) Current() int64 {
	return c.next.Load()
}

// Reset rewinds the clock so the same scenario can be replayed with
// identical stamps.
func (c *DeterministicClock) Reset() {
	c.next.Store(0)
}
