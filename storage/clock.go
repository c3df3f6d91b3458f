package storage

import (
	"sync/atomic"
	"time"
)

// clock hands out strictly increasing creation times so that tasks created
// in the same nanosecond still sort deterministically.
type clock struct {
	last atomic.Int64
	now  func() time.Time
}

func (c *clock) next() time.Time {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	for {
		ts := now().UnixNano()
		last := c.last.Load()
		if ts <= last {
			ts = last + 1
		}
		if c.last.CompareAndSwap(last, ts) {
			return time.Unix(0, ts).UTC()
		}
	}
}
