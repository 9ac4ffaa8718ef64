// Package monitor assembles the sampler, process registry and scheduler
// into one running host monitor.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ngenohkevin/hivedeck-monitor/config"
	"github.com/ngenohkevin/hivedeck-monitor/internal/process"
	"github.com/ngenohkevin/hivedeck-monitor/internal/sampler"
	"github.com/ngenohkevin/hivedeck-monitor/internal/scheduler"
	"github.com/ngenohkevin/hivedeck-monitor/internal/system"
)

// Deps are the OS bindings the monitor reads from. Nil fields use the
// gopsutil backed implementations.
type Deps struct {
	Source system.Source
	Table  process.Table
	Cores  int
}

// ChannelStatus describes one metric channel
type ChannelStatus struct {
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Supported bool   `json:"supported"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
}

// Status is a point-in-time summary of the monitor
type Status struct {
	Interface string          `json:"interface"`
	Cores     int             `json:"logical_cores"`
	History   int             `json:"history_size"`
	Processes int             `json:"processes"`
	Handles   int             `json:"cpu_counters"`
	Running   bool            `json:"running"`
	Channels  []ChannelStatus `json:"channels"`
}

// Monitor owns every counter and handle for its lifetime
type Monitor struct {
	iface      string
	cores      int
	initErrors map[system.Channel]error

	sampler   *sampler.Sampler
	registry  *process.Registry
	poller    *process.Poller
	manager   *process.Manager
	scheduler *scheduler.Scheduler

	mu      sync.Mutex
	running bool
}

// New resolves the network interface, opens the metric counters and builds
// the registry and scheduler. Counters that fail to open are reported by
// Status and never stop construction.
func New(cfg *config.Config, deps Deps) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if deps.Source == nil {
		deps.Source = system.NewOSSource()
	}
	if deps.Table == nil {
		deps.Table = process.NewOSTable()
	}
	if deps.Cores <= 0 {
		deps.Cores = system.LogicalCores()
	}

	m := &Monitor{
		cores:      deps.Cores,
		initErrors: make(map[system.Channel]error),
	}
	m.iface = resolveInterface(cfg, deps.Source)

	counters := make(map[system.Channel]system.Counter, len(system.Channels))
	for _, ch := range system.Channels {
		if ch.IsNetwork() && m.iface == "" {
			m.initErrors[ch] = fmt.Errorf("%w: %w", system.ErrInitialization, system.ErrNoActiveInterface)
			continue
		}
		c, err := deps.Source.OpenCounter(ch, m.iface)
		if err != nil {
			if !errors.Is(err, system.ErrInitialization) {
				err = fmt.Errorf("%w: %w", system.ErrInitialization, err)
			}
			log.WithField("channel", ch.String()).Errorf("failed to open counter: %v", err)
			m.initErrors[ch] = err
			continue
		}
		counters[ch] = c
	}

	m.sampler = sampler.New(counters, cfg.HistorySize)
	m.registry = process.NewRegistry(deps.Table, deps.Cores)
	m.poller = process.NewPoller(deps.Table, m.registry)
	m.manager = process.NewManager(deps.Table, cfg.TerminateEnabled, cfg.ProtectedProcesses)
	m.scheduler = scheduler.New(m.sampler, m.poller, cfg.SampleInterval, cfg.ProcessInterval)
	m.scheduler.OnTeardown(m.sampler.Close)
	m.scheduler.OnTeardown(m.registry.Close)

	log.WithFields(log.Fields{
		"interface": m.iface,
		"cores":     m.cores,
		"channels":  len(counters),
	}).Info("monitor initialized")

	return m, nil
}

func resolveInterface(cfg *config.Config, src system.Source) string {
	if cfg.NetInterface != "" {
		return cfg.NetInterface
	}
	name, err := system.ResolveInterface(src, cfg.ProbeSettle)
	if err != nil {
		log.Warnf("network channels disabled: %v", err)
		return ""
	}
	return name
}

// Start begins sampling. The registry holds a first reconcile when it returns.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	return nil
}

// Stop halts sampling and releases every counter and handle. It is safe to
// call more than once, and without Start.
func (m *Monitor) Stop() {
	m.scheduler.Stop()
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// Refresh rebuilds the process registry between ticks
func (m *Monitor) Refresh(ctx context.Context) error {
	var err error
	if doErr := m.scheduler.Do(ctx, func(ctx context.Context) {
		err = m.poller.Refresh(ctx)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Terminate ends a tracked process and marks its record as terminating
func (m *Monitor) Terminate(ctx context.Context, pid int32) error {
	var err error
	if doErr := m.scheduler.Do(ctx, func(context.Context) {
		rec, ok := m.registry.Get(pid)
		if !ok {
			err = fmt.Errorf("%w: pid %d", process.ErrNotFound, pid)
			return
		}
		if err = m.manager.Terminate(pid, rec.Name); err != nil {
			return
		}
		m.registry.MarkTerminating(pid)
		log.WithFields(log.Fields{"pid": pid, "name": rec.Name}).Info("process terminated")
	}); doErr != nil {
		return doErr
	}
	return err
}

// Status reports channel support, the interface in use and registry size
func (m *Monitor) Status() Status {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	st := Status{
		Interface: m.iface,
		Cores:     m.cores,
		History:   m.sampler.Capacity(),
		Processes: m.registry.Len(),
		Handles:   m.registry.HandleCount(),
		Running:   running,
		Channels:  make([]ChannelStatus, 0, len(system.Channels)),
	}
	for _, ch := range system.Channels {
		cs := ChannelStatus{
			Name:      ch.String(),
			Unit:      ch.Unit(),
			Supported: m.sampler.Supported(ch),
			Healthy:   m.sampler.Healthy(ch),
		}
		if err := m.InitError(ch); err != nil {
			cs.Error = err.Error()
		}
		st.Channels = append(st.Channels, cs)
	}
	return st
}

// Interface returns the sampled network interface, empty when none
func (m *Monitor) Interface() string {
	return m.iface
}

// InitError returns the error that kept ch from opening, if any
func (m *Monitor) InitError(ch system.Channel) error {
	return m.initErrors[ch]
}

// Sampler returns the metric sampler
func (m *Monitor) Sampler() *sampler.Sampler {
	return m.sampler
}

// Registry returns the process registry
func (m *Monitor) Registry() *process.Registry {
	return m.registry
}

// Manager returns the termination guard
func (m *Monitor) Manager() *process.Manager {
	return m.manager
}

// Scheduler returns the tick scheduler
func (m *Monitor) Scheduler() *scheduler.Scheduler {
	return m.scheduler
}
