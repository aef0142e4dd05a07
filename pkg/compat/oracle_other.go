//go:build !linux && !darwin

package compat

import "github.com/repowatch/repowatch/pkg/settings"

// No known incompatibilities on this platform.
func newPlatform() settings.Oracle {
	return noopOracle{}
}
