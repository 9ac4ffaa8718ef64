package system

import "errors"

var (
	// ErrSourceUnavailable means a counter could not be read this tick.
	ErrSourceUnavailable = errors.New("metric source unavailable")
	// ErrInitialization means a counter could not be opened at startup.
	ErrInitialization = errors.New("counter initialization failed")
	// ErrNoActiveInterface means there is no network interface to sample.
	ErrNoActiveInterface = errors.New("no active network interface")
)
