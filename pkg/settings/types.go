// Package settings resolves whether and how filesystem-monitor
// integration is active for a repository.
//
// The result is one of four modes: disabled, delegated to a hook
// script, handled by the in-process IPC watcher, or incompatible with
// the repository's environment. Callers use the mode to decide whether
// working-tree scans can be skipped.
//
// Resolution merges several sources in a fixed precedence order: the
// primary config key (a tri-state boolean-or-pathname), a deprecated
// legacy boolean key, and a test/debug environment override, all gated
// by per-platform incompatibility checks. The decision is computed
// lazily, once, and cached on the Resolver; explicit Set* calls are
// the only way to change it afterwards.
//
// Example usage:
//
//	r, _ := repo.Open(".")
//	res := settings.New(r, settings.Options{Oracle: compat.New()})
//	switch res.Mode() {
//	case settings.ModeHook:
//	    runHook(res.HookPath())
//	case settings.ModeIPC:
//	    startWatcher()
//	}
package settings

import "github.com/repowatch/repowatch/pkg/repo"

// Mode describes how filesystem monitoring is performed.
type Mode int

// Monitor modes.
const (
	// ModeDisabled means no monitor integration is active.
	ModeDisabled Mode = iota

	// ModeHook delegates change queries to an external hook script.
	ModeHook

	// ModeIPC uses the in-process watcher.
	ModeIPC

	// ModeIncompatible means the repository environment cannot
	// support monitoring; see Reason for why.
	ModeIncompatible
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeHook:
		return "hook"
	case ModeIPC:
		return "ipc"
	case ModeIncompatible:
		return "incompatible"
	default:
		return "unknown"
	}
}

// Reason explains an incompatible mode. It is ReasonOk for every other
// mode.
type Reason int

// Incompatibility reasons.
const (
	// ReasonOk means monitoring is not vetoed.
	ReasonOk Reason = iota

	// ReasonBare means the repository has no working tree to watch.
	ReasonBare

	// ReasonError means the environment could not be probed.
	ReasonError

	// ReasonRemote means the working tree is on a network filesystem.
	ReasonRemote

	// ReasonVirtualFS means the working tree is served by a
	// virtualized filesystem provider that monitoring cannot observe.
	ReasonVirtualFS

	// ReasonNoSockets means the platform cannot host the local
	// socket the IPC watcher needs.
	ReasonNoSockets
)

// String returns a human-readable reason name.
func (r Reason) String() string {
	switch r {
	case ReasonOk:
		return "ok"
	case ReasonBare:
		return "bare"
	case ReasonError:
		return "error"
	case ReasonRemote:
		return "remote"
	case ReasonVirtualFS:
		return "virtualfs"
	case ReasonNoSockets:
		return "nosockets"
	default:
		return "unknown"
	}
}

// Oracle vetoes monitoring for environments where it cannot work.
//
// Check returns ReasonOk to allow monitoring, or a specific reason to
// veto it. Implementations must be pure functions of the environment
// and repository location. A nil Oracle allows everything.
type Oracle interface {
	Check(r *repo.Repo) Reason
}

// Settings is the resolved monitor decision for one repository.
//
// Invariants:
// - hookPath is non-empty if and only if mode == ModeHook.
// - reason != ReasonOk if and only if mode == ModeIncompatible.
type Settings struct {
	mode     Mode
	reason   Reason
	hookPath string
}

// Mode returns the resolved mode.
func (s *Settings) Mode() Mode { return s.mode }

// Reason returns the incompatibility reason.
func (s *Settings) Reason() Reason { return s.reason }

// HookPath returns the hook pathname, empty unless Mode is ModeHook.
func (s *Settings) HookPath() string { return s.hookPath }

func newSettings() *Settings {
	return &Settings{mode: ModeDisabled, reason: ReasonOk}
}

func (s *Settings) setIncompatible(reason Reason) {
	s.mode = ModeIncompatible
	s.reason = reason
	s.hookPath = ""
}
