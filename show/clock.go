package show

import (
	"sync"
	"time"
)

// Clock is the external time base shows are started, synchronized and advanced against.
type Clock interface {
	Now() time.Time
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock is a Clock that only moves when told to. It is used to drive the
// engine deterministically from tests and simulations.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a ManualClock positioned at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// syncBoundary returns the first multiple of syncMS milliseconds on the Unix time
// base at or after t.
func syncBoundary(t time.Time, syncMS int) time.Time {
	if syncMS <= 0 {
		return t
	}
	period := int64(syncMS) * int64(time.Millisecond)
	n := t.UnixNano()
	b := ((n + period - 1) / period) * period
	return time.Unix(0, b)
}
