package sampler

import (
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ngenohkevin/hivedeck-monitor/internal/series"
	"github.com/ngenohkevin/hivedeck-monitor/internal/system"
)

const bytesPerMB = 1024 * 1024

// Sampler reads every open counter once per tick and records the converted
// values in one series per channel. A failing channel never stops the others.
type Sampler struct {
	counters map[system.Channel]system.Counter
	series   map[system.Channel]*series.Series

	mu      sync.Mutex
	failing map[system.Channel]bool
	closed  bool
}

// New creates a sampler over the given counters. Channels without a counter
// keep an empty series and are reported as unsupported.
func New(counters map[system.Channel]system.Counter, capacity int) *Sampler {
	s := &Sampler{
		counters: make(map[system.Channel]system.Counter, len(counters)),
		series:   make(map[system.Channel]*series.Series, len(system.Channels)),
		failing:  make(map[system.Channel]bool),
	}
	for _, ch := range system.Channels {
		s.series[ch] = series.New(capacity)
		if c, ok := counters[ch]; ok && c != nil {
			s.counters[ch] = c
		}
	}
	return s
}

// Tick samples every supported channel once
func (s *Sampler) Tick() {
	for _, ch := range system.Channels {
		c, ok := s.counters[ch]
		if !ok {
			continue
		}

		raw, err := c.Sample()
		if err != nil {
			s.markFailing(ch, err)
			continue
		}
		s.markHealthy(ch)
		s.series[ch].Push(Convert(ch, raw))
	}
}

// Convert rounds percentages to one decimal and turns byte rates into MB/s
// rounded to two decimals.
func Convert(ch system.Channel, raw float64) float64 {
	if ch.IsPercent() {
		return round(raw, 1)
	}
	return round(raw/bytesPerMB, 2)
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func (s *Sampler) markFailing(ch system.Channel, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.failing[ch] {
		log.WithField("channel", ch).Warnf("failed to sample: %v", err)
	} else {
		log.WithField("channel", ch).Debugf("failed to sample: %v", err)
	}
	s.failing[ch] = true
}

func (s *Sampler) markHealthy(ch system.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing[ch] {
		log.WithField("channel", ch).Info("sampling recovered")
		delete(s.failing, ch)
	}
}

// Supported reports whether ch has an open counter
func (s *Sampler) Supported(ch system.Channel) bool {
	_, ok := s.counters[ch]
	return ok
}

// Healthy reports whether the last read of ch succeeded
func (s *Sampler) Healthy(ch system.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Supported(ch) && !s.failing[ch]
}

// History returns a copy of the recorded values for ch, oldest first
func (s *Sampler) History(ch system.Channel) []float64 {
	sr, ok := s.series[ch]
	if !ok {
		return nil
	}
	return sr.Snapshot()
}

// Latest returns the newest value for ch, false when none was recorded
func (s *Sampler) Latest(ch system.Channel) (float64, bool) {
	sr, ok := s.series[ch]
	if !ok {
		return 0, false
	}
	return sr.Last()
}

// Capacity returns the per-channel history size
func (s *Sampler) Capacity() int {
	return s.series[system.ChannelCPU].Cap()
}

// Close releases every counter. Calling it again does nothing.
func (s *Sampler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for ch, c := range s.counters {
		if err := c.Close(); err != nil {
			log.WithField("channel", ch).Warnf("failed to close counter: %v", err)
		}
	}
}
