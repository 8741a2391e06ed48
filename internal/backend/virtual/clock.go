package virtual

import "sync/atomic"

// Clock is a monotonic submission counter.
//
// Every scheduled operation is stamped with a strictly increasing seq
// from this clock. Two operations scheduled for the same backend time
// are ordered by seq, which is exactly the "last submitted wins"
// tie-break the automation contract promises.
//
// Thread-safety: safe for concurrent use (atomic operations), though
// the scheduling core is single-threaded in practice.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
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
