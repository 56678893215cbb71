package loop

import "sync/atomic"

// Clock is the monotonic logical clock that stamps commits.
//
// The seed is committed at the clock's initial value (0); every derived
// state takes Next(). Commit order is therefore seq order, and a replay of
// the same mutations produces the same seqs.
//
// Thread-safety: Clock is safe for concurrent use, but only the instance's
// single writer calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
