package process

import "context"

// Status is advisory UI state, not authoritative liveness.
type Status string

const (
	StatusRunning     Status = "Running"
	StatusTerminating Status = "Terminating"
)

// Record is one tracked process
type Record struct {
	PID         int32   `json:"pid"`
	Name        string  `json:"name"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
	Status      Status  `json:"status"`
	CreateTime  int64   `json:"create_time,omitempty"` // ms since epoch, 0 when unknown
	Tracked     bool    `json:"cpu_tracked"`
}

// Entry is one row of a live process table snapshot. Err is set when the
// process was enumerated but could not be queried afterwards.
type Entry struct {
	PID             int32
	Name            string
	WorkingSetBytes uint64
	CreateTime      int64
	Err             error
}

// Snapshot maps process id to its live entry
type Snapshot map[int32]Entry

// Handle is an open per-process CPU counter. Close is idempotent.
type Handle interface {
	Sample() (float64, error)
	Close() error
}

// CounterOpener creates per-process CPU counters
type CounterOpener interface {
	OpenCPUCounter(pid int32, name string) (Handle, error)
}

// Terminator ends processes
type Terminator interface {
	Terminate(pid int32) error
}

// Table is the OS process table
type Table interface {
	CounterOpener
	Terminator
	Snapshot(ctx context.Context) (Snapshot, error)
}
