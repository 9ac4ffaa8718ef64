package process

import "errors"

var (
	// ErrAccessDenied means the OS refused access to a process.
	ErrAccessDenied = errors.New("process access denied")
	// ErrNotFound means the process no longer exists.
	ErrNotFound = errors.New("process not found")
	// ErrTerminateDisabled means termination is switched off in config.
	ErrTerminateDisabled = errors.New("process termination is disabled")
	// ErrProtected means the process name is on the protected list.
	ErrProtected = errors.New("process is protected")
)
