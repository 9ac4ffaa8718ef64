package system

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultSettle is the pause between the two probes of one interface.
const DefaultSettle = 100 * time.Millisecond

// ProbeFunc returns an instantaneous throughput sample for an interface.
type ProbeFunc func(name string) (float64, error)

// Selector picks the network interface that carries traffic.
type Selector struct {
	Settle time.Duration
	Sleep  func(time.Duration)
}

// NewSelector creates a selector that waits settle between probes
func NewSelector(settle time.Duration) *Selector {
	if settle < 0 {
		settle = DefaultSettle
	}
	return &Selector{
		Settle: settle,
		Sleep:  time.Sleep,
	}
}

// Select probes candidates in order and returns the first one that shows
// traffic on either of two probes. When none does, the first candidate is
// returned. The boolean is false only for an empty candidate list.
func (s *Selector) Select(candidates []string, probe ProbeFunc) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	for _, name := range candidates {
		if s.active(name, probe) {
			log.WithField("interface", name).Debug("selected active network interface")
			return name, true
		}
	}

	log.WithField("interface", candidates[0]).Debug("no interface showed traffic, using first candidate")
	return candidates[0], true
}

func (s *Selector) active(name string, probe ProbeFunc) bool {
	if sampleOrZero(name, probe) > 0 {
		return true
	}
	if s.Sleep != nil {
		s.Sleep(s.Settle)
	}
	return sampleOrZero(name, probe) > 0
}

func sampleOrZero(name string, probe ProbeFunc) float64 {
	v, err := probe(name)
	if err != nil {
		log.WithField("interface", name).Debugf("probe failed: %v", err)
		return 0
	}
	return v
}

// InterfaceProbe samples interface throughput through a Source. The first
// probe of an interface opens its counter and reads zero, like any freshly
// opened rate counter.
type InterfaceProbe struct {
	src      Source
	mu       sync.Mutex
	counters map[string]Counter
}

// NewInterfaceProbe creates a probe backed by src
func NewInterfaceProbe(src Source) *InterfaceProbe {
	return &InterfaceProbe{
		src:      src,
		counters: make(map[string]Counter),
	}
}

// Sample implements ProbeFunc
func (p *InterfaceProbe) Sample(name string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.counters[name]
	if !ok {
		opened, err := p.src.OpenThroughput(name)
		if err != nil {
			return 0, err
		}
		p.counters[name] = opened
		return 0, nil
	}
	return c.Sample()
}

// Close releases every counter the probe opened
func (p *InterfaceProbe) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, c := range p.counters {
		_ = c.Close()
		delete(p.counters, name)
	}
}

// ResolveInterface runs the selection heuristic once against src
func ResolveInterface(src Source, settle time.Duration) (string, error) {
	names, err := src.InterfaceNames()
	if err != nil {
		return "", err
	}

	probe := NewInterfaceProbe(src)
	defer probe.Close()

	name, ok := NewSelector(settle).Select(names, probe.Sample)
	if !ok {
		return "", ErrNoActiveInterface
	}
	return name, nil
}
