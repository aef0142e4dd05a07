package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidDebounce is returned when the debounce interval is <= 0.
	ErrInvalidDebounce = errors.New("invalid debounce interval: must be > 0")

	// ErrInvalidJournalDepth is returned when the journal depth is <= 0.
	ErrInvalidJournalDepth = errors.New("invalid journal depth: must be > 0")

	// ErrInvalidHookTimeout is returned when the hook timeout is <= 0.
	ErrInvalidHookTimeout = errors.New("invalid hook timeout: must be > 0")

	// ErrNoStateDB is returned when no state database path is set.
	ErrNoStateDB = errors.New("no state database path specified")

	// ErrInvalidLogLevel is returned when the log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when the log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidYAML is returned when the options file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in options file")
)
