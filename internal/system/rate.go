package system

import (
	"fmt"
	"sync"
	"time"
)

// rateCounter turns a monotonically increasing byte total into a per-second
// rate between consecutive samples.
type rateCounter struct {
	mu     sync.Mutex
	name   string
	read   func() (uint64, error)
	now    func() time.Time
	prev   uint64
	prevAt time.Time
	closed bool
}

// newRateCounter reads the baseline immediately, so the first Sample reports
// the rate since the counter was opened.
func newRateCounter(name string, read func() (uint64, error), now func() time.Time) (*rateCounter, error) {
	if now == nil {
		now = time.Now
	}
	total, err := read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInitialization, name, err)
	}
	return &rateCounter{
		name:   name,
		read:   read,
		now:    now,
		prev:   total,
		prevAt: now(),
	}, nil
}

func (c *rateCounter) Sample() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, fmt.Errorf("%w: %s counter closed", ErrSourceUnavailable, c.name)
	}

	total, err := c.read()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read %s: %w", ErrSourceUnavailable, c.name, err)
	}
	at := c.now()
	elapsed := at.Sub(c.prevAt).Seconds()

	prev := c.prev
	c.prev, c.prevAt = total, at

	// A shrinking total means the kernel counter was reset or wrapped.
	if total < prev || elapsed <= 0 {
		return 0, nil
	}
	return float64(total-prev) / elapsed, nil
}

func (c *rateCounter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
