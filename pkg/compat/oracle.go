// Package compat decides whether a repository's environment can
// support filesystem monitoring at all.
//
// The checks are platform-specific: network-backed working trees do
// not deliver change events to local watchers, virtualized filesystem
// providers (FUSE and friends) are known to drop or reorder them, and
// some volumes cannot host the local socket the IPC watcher listens
// on. Each platform contributes a strategy behind build tags; on
// platforms with no known incompatibilities the oracle is a no-op that
// allows everything.
//
// An oracle is a pure function of the environment and the repository
// location. It keeps no state between calls.
package compat

import (
	"github.com/repowatch/repowatch/pkg/repo"
	"github.com/repowatch/repowatch/pkg/settings"
)

// New returns the incompatibility oracle for the current platform.
func New() settings.Oracle {
	return newPlatform()
}

// Noop returns an oracle that allows monitoring everywhere.
func Noop() settings.Oracle {
	return noopOracle{}
}

type noopOracle struct{}

// Check implements settings.Oracle.
func (noopOracle) Check(*repo.Repo) settings.Reason {
	return settings.ReasonOk
}
