package engine

import "sync/atomic"

// Clock hands out the insertion sequence numbers that break the last tie in
// event ordering. Two events with equal time, priority and secondary value
// fire in the order they were scheduled.
//
// Clock is safe for concurrent use, although the engine only calls it from
// the Run goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
