// Package watcher provides the in-process worktree watcher behind the
// IPC monitor mode.
//
// It watches a repository working tree with fsnotify (excluding the
// gitdir), debounces rapid rewrites of the same file, and journals
// every change under a monotonic token. Callers that remember the
// token from their previous query can ask for exactly the paths that
// changed since; callers with a stale or foreign token are told to
// rescan.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{}, r.WorkTree, r.GitDir,
//	    watcher.NewMemoryStateStore(), logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	token := w.Token()
//	// ... later ...
//	paths, ok := w.ChangesSince(token)
package watcher

import (
	"context"
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota // File created
	OpWrite                 // File modified
	OpRemove                // File deleted
	OpRename                // File renamed/moved
	OpChmod                 // File permissions changed
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Event represents one observed working-tree change.
type Event struct {
	// Path is the worktree-relative path that changed.
	Path string

	// Op is the operation that triggered the event.
	Op Op

	// Timestamp is when the event was observed.
	Timestamp time.Time
}

// Watcher observes one working tree.
type Watcher interface {
	// Start begins watching the working tree. It returns once the
	// watches are established; event processing continues until the
	// context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully shuts down event processing.
	Stop() error

	// Close releases all resources. The watcher cannot be restarted.
	Close() error

	// Events returns the channel of debounced change events.
	Events() <-chan Event

	// Errors returns the channel of non-fatal watcher errors.
	Errors() <-chan error

	// Token returns the current journal position, to be passed to a
	// later ChangesSince call.
	Token() string

	// ChangesSince returns the deduplicated worktree-relative paths
	// changed since token, and true, when the token is one of ours
	// and the journal still covers it. Otherwise it returns false
	// and the caller must rescan the working tree.
	ChangesSince(token string) ([]string, bool)
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval is the time to wait before journaling an
	// event; rapid rewrites of the same path coalesce into one.
	// Default: 100ms.
	DebounceInterval time.Duration

	// JournalDepth is the maximum number of journal entries kept.
	// Tokens older than the retained window force a rescan.
	// Default: 8192.
	JournalDepth int
}
