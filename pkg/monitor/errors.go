package monitor

import "errors"

// Common errors returned by the monitor package.
var (
	// ErrDisabled is returned when monitoring is not enabled for
	// the repository.
	ErrDisabled = errors.New("fsmonitor is disabled")

	// ErrIncompatible is returned when the repository environment
	// cannot support monitoring.
	ErrIncompatible = errors.New("repository is incompatible with fsmonitor")
)
