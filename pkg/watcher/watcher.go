package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/repowatch/repowatch/pkg/logger"
)

// tokenScheme prefixes every token this watcher hands out.
const tokenScheme = "watch"

// journalEntry records one change under its journal sequence number.
type journalEntry struct {
	seq  uint64
	path string
}

// watcher implements the Watcher interface using fsnotify.
type watcher struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config

	root   string // working tree, absolute
	gitdir string // excluded from watching

	events chan Event
	errors chan error

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}

	// Debouncing state.
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// Journal state, guarded by journalMu.
	journalMu sync.Mutex
	session   string
	seq       uint64
	minSeq    uint64
	journal   []journalEntry
	store     StateStore
}

// New creates a watcher for the working tree rooted at root.
//
// gitdir is excluded from watching; events under it never reach the
// journal. The state store persists the watcher session across
// restarts so previously issued tokens are recognized as stale rather
// than misattributed.
func New(cfg Config, root, gitdir string, store StateStore, log logger.Logger) (Watcher, error) {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if cfg.JournalDepth == 0 {
		cfg.JournalDepth = 8192
	}
	if store == nil {
		store = NewMemoryStateStore()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &watcher{
		fsw:            fsw,
		logger:         log,
		config:         cfg,
		root:           filepath.Clean(root),
		gitdir:         filepath.Clean(gitdir),
		events:         make(chan Event, 100),
		errors:         make(chan error, 10),
		stopChan:       make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
		store:          store,
	}

	if err := w.initSession(); err != nil {
		_ = fsw.Close() // nolint:errcheck
		return nil, err
	}

	log.Info("worktree watcher created",
		"root", w.root,
		"session", w.session,
		"debounce_interval", cfg.DebounceInterval)

	return w, nil
}

// initSession restores or creates the watcher session.
func (w *watcher) initSession() error {
	state, err := w.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load watcher state: %w", err)
	}

	if state.Session == "" {
		state.Session = strconv.FormatInt(time.Now().UnixNano(), 16)
		state.Seq = 0
	}

	// Advance past anything journaled by a previous process: those
	// entries are gone from memory, so tokens predating this start
	// must force a rescan.
	state.Seq++
	if err := w.store.Save(state); err != nil {
		return fmt.Errorf("failed to save watcher state: %w", err)
	}

	w.session = state.Session
	w.seq = state.Seq
	w.minSeq = state.Seq
	return nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.running = true
	w.mu.Unlock()

	if _, err := os.Stat(w.root); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingWorktree, w.root)
		}
		return fmt.Errorf("failed to stat working tree %s: %w", w.root, err)
	}

	if err := w.addTreeRecursive(w.root); err != nil {
		return fmt.Errorf("failed to watch working tree %s: %w", w.root, err)
	}

	w.logger.Info("watcher started", "root", w.root)

	go w.processEvents(ctx)
	return nil
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.running {
		return ErrNotStarted
	}

	close(w.stopChan)
	w.running = false

	w.logger.Info("watcher stopped")
	return nil
}

// Events implements Watcher.Events.
func (w *watcher) Events() <-chan Event {
	return w.events
}

// Errors implements Watcher.Errors.
func (w *watcher) Errors() <-chan error {
	return w.errors
}

// Close implements Watcher.Close.
func (w *watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.running {
		close(w.stopChan)
		w.running = false
	}

	close(w.events)
	close(w.errors)

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	w.debounceTimers = nil
	w.debounceMu.Unlock()

	w.journalMu.Lock()
	saveErr := w.store.Save(State{Session: w.session, Seq: w.seq})
	w.journalMu.Unlock()
	if saveErr != nil {
		w.logger.Error("failed to persist watcher state", "error", saveErr)
	}

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Info("watcher closed")
	return nil
}

// Token implements Watcher.Token.
func (w *watcher) Token() string {
	w.journalMu.Lock()
	defer w.journalMu.Unlock()
	return fmt.Sprintf("%s:%s:%d", tokenScheme, w.session, w.seq)
}

// ChangesSince implements Watcher.ChangesSince.
func (w *watcher) ChangesSince(token string) ([]string, bool) {
	session, seq, ok := parseToken(token)
	if !ok {
		return nil, false
	}

	w.journalMu.Lock()
	defer w.journalMu.Unlock()

	if session != w.session || seq < w.minSeq || seq > w.seq {
		return nil, false
	}

	seen := make(map[string]struct{})
	var paths []string
	for _, e := range w.journal {
		if e.seq <= seq {
			continue
		}
		if _, dup := seen[e.path]; dup {
			continue
		}
		seen[e.path] = struct{}{}
		paths = append(paths, e.path)
	}
	return paths, true
}

// parseToken splits "watch:<session>:<seq>".
func parseToken(token string) (session string, seq uint64, ok bool) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] != tokenScheme || parts[1] == "" {
		return "", 0, false
	}
	n, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return parts[1], n, true
}

// processEvents drains fsnotify until stopped.
func (w *watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("event processing stopped", "reason", "context cancelled")
			return

		case <-w.stopChan:
			w.logger.Info("event processing stopped", "reason", "stop signal")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("fsnotify events channel closed")
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("fsnotify errors channel closed")
				return
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("error channel full, dropping error", "error", err)
			}
		}
	}
}

// handleEvent filters and debounces a single fsnotify event.
func (w *watcher) handleEvent(event fsnotify.Event) {
	if w.excluded(event.Name) {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}

	var op Op
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		op = OpCreate
		// New directories must be watched too.
		if fi, statErr := os.Stat(event.Name); statErr == nil && fi.IsDir() {
			if addErr := w.addTreeRecursive(event.Name); addErr != nil {
				w.logger.Warn("failed to watch new directory",
					"path", event.Name, "error", addErr)
			}
		}
	case event.Op&fsnotify.Write == fsnotify.Write:
		op = OpWrite
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		op = OpRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		op = OpRename
	case event.Op&fsnotify.Chmod == fsnotify.Chmod:
		op = OpChmod
	default:
		return
	}

	w.debounceEvent(Event{
		Path:      filepath.ToSlash(rel),
		Op:        op,
		Timestamp: time.Now(),
	})
}

// excluded reports whether path lies inside the gitdir.
func (w *watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.gitdir, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// debounceEvent coalesces rapid events for the same path, then
// journals and publishes the survivor.
func (w *watcher) debounceEvent(event Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimers == nil {
		return
	}
	if timer, exists := w.debounceTimers[event.Path]; exists {
		timer.Stop()
	}

	w.debounceTimers[event.Path] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.flush(event)

		w.debounceMu.Lock()
		delete(w.debounceTimers, event.Path)
		w.debounceMu.Unlock()
	})
}

// flush journals one debounced event and delivers it to subscribers.
func (w *watcher) flush(event Event) {
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return
	}

	w.journalMu.Lock()
	w.seq++
	w.journal = append(w.journal, journalEntry{seq: w.seq, path: event.Path})
	if len(w.journal) > w.config.JournalDepth {
		drop := len(w.journal) - w.config.JournalDepth
		w.minSeq = w.journal[drop-1].seq
		w.journal = append([]journalEntry(nil), w.journal[drop:]...)
	}
	state := State{Session: w.session, Seq: w.seq}
	w.journalMu.Unlock()

	if err := w.store.Save(state); err != nil {
		w.logger.Warn("failed to persist watcher state", "error", err)
	}

	select {
	case w.events <- event:
	default:
		w.logger.Warn("event channel full, dropping event", "path", event.Path)
	}
}

// addTreeRecursive watches dir and every subdirectory under it,
// skipping the gitdir.
func (w *watcher) addTreeRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("error walking path", "path", path, "error", err)
			return nil // Skip but continue walking.
		}
		if !info.IsDir() {
			return nil
		}
		if w.excluded(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", addErr)
			return nil
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}
