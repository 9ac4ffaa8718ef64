package process

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTerminator struct {
	pids []int32
	err  error
}

func (r *recordingTerminator) Terminate(pid int32) error {
	r.pids = append(r.pids, pid)
	return r.err
}

func TestManager_Disabled(t *testing.T) {
	term := &recordingTerminator{}
	m := NewManager(term, false, nil)

	err := m.Terminate(10, "bash")
	assert.ErrorIs(t, err, ErrTerminateDisabled)
	assert.Empty(t, term.pids)
	assert.False(t, m.Enabled())
}

func TestManager_Protected(t *testing.T) {
	term := &recordingTerminator{}
	m := NewManager(term, true, []string{"systemd", " SSHD ", ""})

	assert.True(t, m.IsProtected("sshd"))
	assert.True(t, m.IsProtected("Systemd"))
	assert.False(t, m.IsProtected(""))

	err := m.Terminate(1, "systemd")
	assert.ErrorIs(t, err, ErrProtected)
	assert.Empty(t, term.pids)
}

func TestManager_ForwardsErrors(t *testing.T) {
	term := &recordingTerminator{err: ErrAccessDenied}
	m := NewManager(term, true, nil)

	err := m.Terminate(77, "bash")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, []int32{77}, term.pids)

	term.err = nil
	assert.NoError(t, m.Terminate(78, "bash"))
}

func TestOSTable_SnapshotContainsSelf(t *testing.T) {
	table := NewOSTable()

	snap, err := table.Snapshot(context.Background())
	require.NoError(t, err)

	self, ok := snap[int32(os.Getpid())]
	require.True(t, ok)
	assert.NotEmpty(t, self.Name)
	assert.NoError(t, self.Err)
	assert.NotZero(t, self.WorkingSetBytes)

	h, err := table.OpenCPUCounter(self.PID, self.Name)
	require.NoError(t, err)
	_, err = h.Sample()
	assert.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	_, err = h.Sample()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOSTable_OpenCounterNameMismatch(t *testing.T) {
	_, err := NewOSTable().OpenCPUCounter(int32(os.Getpid()), "definitely-not-this-binary")
	assert.ErrorIs(t, err, ErrNotFound)
}
