package directory

import "sync/atomic"

// Clock is a monotonic logical clock for record revisions.
//
// Every insert and update stamps the record with the next value, so a
// record's revision orders it against every other mutation in the directory.
// Replaying the same operations yields the same revisions. Next is safe
// for concurrent use even though the directory itself is not.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
