package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
)

// OSTable reads the host process table through gopsutil.
type OSTable struct{}

// NewOSTable creates a gopsutil backed process table
func NewOSTable() *OSTable {
	return &OSTable{}
}

// Snapshot enumerates running processes. Processes whose name cannot be read
// are skipped; a failed memory lookup is recorded on the entry.
func (t *OSTable) Snapshot(ctx context.Context) (Snapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get processes: %w", err)
	}

	snap := make(Snapshot, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}

		entry := Entry{PID: p.Pid, Name: name}
		if created, err := p.CreateTimeWithContext(ctx); err == nil {
			entry.CreateTime = created
		}

		memInfo, err := p.MemoryInfoWithContext(ctx)
		switch {
		case err != nil:
			entry.Err = classify(err)
		case memInfo != nil:
			entry.WorkingSetBytes = memInfo.RSS
		}

		snap[p.Pid] = entry
	}
	return snap, nil
}

// OpenCPUCounter opens a CPU counter for pid. The first reading is taken
// immediately so later samples cover the time since the previous one.
func (t *OSTable) OpenCPUCounter(pid int32, name string) (Handle, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, classify(err)
	}

	current, err := p.Name()
	if err != nil {
		return nil, classify(err)
	}
	if current != name {
		return nil, fmt.Errorf("%w: pid %d is now %q", ErrNotFound, pid, current)
	}

	if _, err := p.Percent(0); err != nil {
		return nil, classify(err)
	}
	return &cpuHandle{proc: p}, nil
}

// Terminate asks the process to exit
func (t *OSTable) Terminate(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return classify(err)
	}
	if err := p.Terminate(); err != nil {
		return classify(err)
	}
	return nil
}

type cpuHandle struct {
	mu     sync.Mutex
	proc   *process.Process
	closed bool
}

// Sample returns CPU percent since the previous sample, summed over cores
func (h *cpuHandle) Sample() (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, fmt.Errorf("%w: counter closed", ErrNotFound)
	}
	v, err := h.proc.Percent(0)
	if err != nil {
		return 0, classify(err)
	}
	return v, nil
}

func (h *cpuHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// classify maps OS errors onto ErrNotFound and ErrAccessDenied
func classify(err error) error {
	switch {
	case errors.Is(err, process.ErrorProcessNotRunning),
		errors.Is(err, os.ErrNotExist),
		errors.Is(err, os.ErrProcessDone),
		errors.Is(err, syscall.ESRCH):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, os.ErrPermission),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.EACCES):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return err
}
