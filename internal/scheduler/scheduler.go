package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultMetricsInterval = time.Second
	DefaultProcessInterval = 2 * time.Second
)

// ErrNotRunning is returned by Do when the loop is not running.
var ErrNotRunning = errors.New("scheduler is not running")

// MetricTicker samples the metric channels once
type MetricTicker interface {
	Tick()
}

// ProcessTicker reconciles the process registry once
type ProcessTicker interface {
	Tick(ctx context.Context) error
}

type request struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// Scheduler drives the metric and process ticks from a single goroutine, so
// no two tick bodies ever run at the same time. Work submitted through Do
// runs on the same goroutine between ticks.
type Scheduler struct {
	sampler      MetricTicker
	poller       ProcessTicker
	metricsEvery time.Duration
	processEvery time.Duration

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	requests    chan request
	teardown    []func()
	subscribers map[chan struct{}]struct{}
	running     bool
	stopped     bool
}

// New creates a scheduler. Non-positive intervals use the defaults.
func New(sampler MetricTicker, poller ProcessTicker, metricsEvery, processEvery time.Duration) *Scheduler {
	if metricsEvery <= 0 {
		metricsEvery = DefaultMetricsInterval
	}
	if processEvery <= 0 {
		processEvery = DefaultProcessInterval
	}
	return &Scheduler{
		sampler:      sampler,
		poller:       poller,
		metricsEvery: metricsEvery,
		processEvery: processEvery,
		requests:     make(chan request),
		subscribers:  make(map[chan struct{}]struct{}),
	}
}

// OnTeardown registers fn to run once when the scheduler stops
func (s *Scheduler) OnTeardown(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown = append(s.teardown, fn)
}

// Start runs one process tick and begins the loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	s.TickProcesses(ctx)
	go s.loop(ctx)

	log.WithFields(log.Fields{
		"metrics_interval": s.metricsEvery,
		"process_interval": s.processEvery,
	}).Info("scheduler started")
	return nil
}

// Stop halts both timers, waits for the running tick to finish and runs the
// teardown functions. Only the first call has any effect.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, done, running := s.cancel, s.done, s.running
	teardown := s.teardown
	s.teardown = nil
	s.mu.Unlock()

	if running {
		cancel()
		<-done
	}

	for _, fn := range teardown {
		fn()
	}
	log.Info("scheduler stopped")
}

// Do runs fn on the scheduler goroutine and waits for it to finish
func (s *Scheduler) Do(ctx context.Context, fn func(ctx context.Context)) error {
	s.mu.Lock()
	done, running := s.done, s.running
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	req := request{fn: fn, done: make(chan struct{})}
	select {
	case s.requests <- req:
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-done:
		return ErrNotRunning
	}
}

// Subscribe returns a channel signalled after every metric tick. Slow
// readers miss signals instead of blocking the loop.
func (s *Scheduler) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.subscribers, ch)
		s.mu.Unlock()
	}
}

// TickMetrics runs one metric tick on the calling goroutine
func (s *Scheduler) TickMetrics() {
	defer s.recoverTick("metrics")

	s.sampler.Tick()
	s.notify()
}

// TickProcesses runs one process tick on the calling goroutine
func (s *Scheduler) TickProcesses(ctx context.Context) {
	defer s.recoverTick("processes")

	if err := s.poller.Tick(ctx); err != nil {
		log.Warnf("process tick failed: %v", err)
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	metrics := time.NewTicker(s.metricsEvery)
	defer metrics.Stop()
	procs := time.NewTicker(s.processEvery)
	defer procs.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-metrics.C:
			s.TickMetrics()
		case <-procs.C:
			s.TickProcesses(ctx)
		case req := <-s.requests:
			s.run(ctx, req)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, req request) {
	defer close(req.done)
	defer s.recoverTick("request")
	req.fn(ctx)
}

func (s *Scheduler) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Scheduler) recoverTick(name string) {
	if r := recover(); r != nil {
		log.WithField("tick", name).Errorf("[PANIC] %v", r)
	}
}
