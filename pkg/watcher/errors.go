package watcher

import "errors"

// Common errors returned by the watcher package.
var (
	// ErrWatcherClosed is returned when operating on a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrNotStarted is returned when stopping a watcher that never started.
	ErrNotStarted = errors.New("watcher not started")

	// ErrMissingWorktree is returned when the watch root does not exist.
	ErrMissingWorktree = errors.New("working tree does not exist")
)
