package series

import "sync"

// DefaultCapacity is one minute of history at a 1s sampling period.
const DefaultCapacity = 60

// Series is a fixed-capacity FIFO buffer of samples. Once full, every Push
// evicts the oldest value. It is safe for one writer and any number of
// concurrent readers.
type Series struct {
	mu       sync.RWMutex
	values   []float64
	capacity int
}

// New creates a series holding at most capacity values. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Series{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a value, dropping the oldest one if the series is full
func (s *Series) Push(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == s.capacity {
		copy(s.values, s.values[1:])
		s.values[len(s.values)-1] = value
		return
	}
	s.values = append(s.values, value)
}

// Last returns the most recent value. The boolean is false when nothing has
// been pushed yet.
func (s *Series) Last() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.values) == 0 {
		return 0, false
	}
	return s.values[len(s.values)-1], true
}

// Snapshot returns a copy of the values, oldest first
func (s *Series) Snapshot() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Len returns the number of values currently held
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Cap returns the fixed capacity
func (s *Series) Cap() int {
	return s.capacity
}
