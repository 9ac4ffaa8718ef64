package process

import (
	"errors"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Registry tracks the known process set and owns one optional CPU counter
// per process. Every handle in handles belongs to a pid in records; a handle
// is closed exactly once, when its record goes away.
//
// Reconcile, FullRefresh, MarkTerminating and Close mutate state and must be
// called from a single goroutine. CurrentRecords and Get may be called from
// anywhere.
type Registry struct {
	opener CounterOpener
	cores  float64

	mu      sync.RWMutex
	records map[int32]*Record
	handles map[int32]Handle
	closed  bool
}

// NewRegistry creates an empty registry. cores divides raw per-process CPU
// samples; values below one are treated as one.
func NewRegistry(opener CounterOpener, cores int) *Registry {
	if cores < 1 {
		cores = 1
	}
	return &Registry{
		opener:  opener,
		cores:   float64(cores),
		records: make(map[int32]*Record),
		handles: make(map[int32]Handle),
	}
}

// Reconcile aligns the registry with a live snapshot in three passes:
// removal, update, addition. The order matters because process ids are
// recycled by the OS.
func (r *Registry) Reconcile(live Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.removeGone(live)
	r.update(live)
	r.add(live)
}

// FullRefresh drops every record and handle and rebuilds from live
func (r *Registry) FullRefresh(live Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	for pid := range r.records {
		r.drop(pid)
	}
	r.add(live)
}

// MarkTerminating flags a record as terminating. It stays tracked until the
// process disappears from the table.
func (r *Registry) MarkTerminating(pid int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[pid]
	if !ok {
		return false
	}
	rec.Status = StatusTerminating
	return true
}

// CurrentRecords returns a copy of every tracked record in no particular order
func (r *Registry) CurrentRecords() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out
}

// Get returns a copy of the record for pid
func (r *Registry) Get(pid int32) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[pid]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of tracked records
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// HandleCount returns the number of open per-process counters
func (r *Registry) HandleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close releases every handle and drops all records. Later calls, and later
// reconciles, do nothing.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	for pid := range r.records {
		r.drop(pid)
	}
	r.closed = true
}

// removeGone drops records whose pid left the table or now belongs to a
// different process.
func (r *Registry) removeGone(live Snapshot) {
	for pid, rec := range r.records {
		e, ok := live[pid]
		if !ok || !sameProcess(rec, e) {
			r.drop(pid)
		}
	}
}

func (r *Registry) update(live Snapshot) {
	for pid, rec := range r.records {
		e := live[pid]
		if errors.Is(e.Err, ErrAccessDenied) {
			rec.CPUPercent = 0
			continue
		}
		if e.Err != nil {
			log.WithField("pid", pid).Debugf("process lookup failed, dropping: %v", e.Err)
			r.drop(pid)
			continue
		}

		rec.MemoryBytes = e.WorkingSetBytes

		h, ok := r.handles[pid]
		if !ok {
			continue
		}
		raw, err := h.Sample()
		if err != nil {
			log.WithField("pid", pid).Debugf("cpu sample failed: %v", err)
			rec.CPUPercent = 0
			continue
		}
		// Dividing by logical cores is an approximation kept on purpose.
		rec.CPUPercent = math.Round(raw/r.cores*10) / 10
	}
}

func (r *Registry) add(live Snapshot) {
	for pid, e := range live {
		if _, ok := r.records[pid]; ok {
			continue
		}
		if e.Err != nil && !errors.Is(e.Err, ErrAccessDenied) {
			continue
		}

		rec := &Record{
			PID:         pid,
			Name:        e.Name,
			MemoryBytes: e.WorkingSetBytes,
			Status:      StatusRunning,
			CreateTime:  e.CreateTime,
		}

		if r.opener != nil && e.Err == nil {
			h, err := r.opener.OpenCPUCounter(pid, e.Name)
			if err != nil {
				log.WithField("pid", pid).Debugf("no cpu counter for %s: %v", e.Name, err)
			} else if h != nil {
				r.handles[pid] = h
				rec.Tracked = true
			}
		}

		r.records[pid] = rec
	}
}

// drop removes a record and closes its handle, if any
func (r *Registry) drop(pid int32) {
	if h, ok := r.handles[pid]; ok {
		if err := h.Close(); err != nil {
			log.WithField("pid", pid).Debugf("failed to close cpu counter: %v", err)
		}
		delete(r.handles, pid)
	}
	delete(r.records, pid)
}

// sameProcess reports whether a live entry is the process already tracked
// under its pid. Creation time decides when both sides know it, otherwise
// the name does.
func sameProcess(rec *Record, e Entry) bool {
	if rec.CreateTime != 0 && e.CreateTime != 0 {
		return rec.CreateTime == e.CreateTime
	}
	return rec.Name == e.Name
}
