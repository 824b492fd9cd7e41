package simulator

import (
	"sync"
	"sync/atomic"
)

// InFlight counts requests currently being handled. The zero value is ready
// to use.
type InFlight struct {
	n    atomic.Int64
	peak atomic.Int64
}

// Acquire increments the counter and returns the new value with its release
// func. Only the first call to release decrements.
func (c *InFlight) Acquire() (int64, func()) {
	n := c.n.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}

	var once sync.Once
	return n, func() { once.Do(c.release) }
}

func (c *InFlight) release() {
	if c.n.Add(-1) < 0 {
		panic("simulator: in-flight counter went negative")
	}
}

// Load returns the current number of requests in flight.
func (c *InFlight) Load() int64 { return c.n.Load() }

// Peak returns the highest value the counter has reached.
func (c *InFlight) Peak() int64 { return c.peak.Load() }
