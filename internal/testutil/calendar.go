package testutil

import (
	"sync"
	"time"
)

// FixedCalendar is a settable "today" for tests of date-dependent computed
// fields. It never reads the wall clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedCalendar struct {
	mu  sync.Mutex
	day time.Time
}

// NewFixedCalendar creates a calendar fixed on the given day.
func NewFixedCalendar(year int, month time.Month, day int) *FixedCalendar {
	return &FixedCalendar{day: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the fixed day at midnight UTC.
func (c *FixedCalendar) Today() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

// Set moves the calendar to t's date.
func (c *FixedCalendar) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Advance moves the calendar by n days. n may be negative.
func (c *FixedCalendar) Advance(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = c.day.AddDate(0, 0, n)
}
