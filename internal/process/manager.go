package process

import (
	"fmt"
	"strings"
)

// Manager decides whether a process may be terminated and forwards allowed
// requests to the table.
type Manager struct {
	table     Terminator
	enabled   bool
	protected map[string]bool
}

// NewManager creates a manager. Termination is refused unless enabled, and
// always refused for protected names.
func NewManager(table Terminator, enabled bool, protected []string) *Manager {
	m := &Manager{
		table:     table,
		enabled:   enabled,
		protected: make(map[string]bool),
	}
	for _, name := range protected {
		if name = strings.TrimSpace(name); name != "" {
			m.protected[strings.ToLower(name)] = true
		}
	}
	return m
}

// Enabled reports whether termination is switched on
func (m *Manager) Enabled() bool {
	return m.enabled
}

// IsProtected checks if a process name is on the protected list
func (m *Manager) IsProtected(name string) bool {
	return m.protected[strings.ToLower(name)]
}

// Terminate ends pid, which is expected to be running as name
func (m *Manager) Terminate(pid int32, name string) error {
	if !m.enabled {
		return ErrTerminateDisabled
	}
	if m.IsProtected(name) {
		return fmt.Errorf("%w: %s", ErrProtected, name)
	}
	if err := m.table.Terminate(pid); err != nil {
		return fmt.Errorf("failed to terminate process %d: %w", pid, err)
	}
	return nil
}
