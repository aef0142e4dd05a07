//go:build linux

package compat

import (
	"golang.org/x/sys/unix"

	"github.com/repowatch/repowatch/pkg/repo"
	"github.com/repowatch/repowatch/pkg/settings"
)

// Filesystem magic numbers from statfs(2). Only the types with a known
// monitoring outcome are listed; everything else is treated as a local
// filesystem.
const (
	magicNFS   = 0x6969
	magicSMB   = 0x517b
	magicSMB2  = 0xfe534d42
	magicCIFS  = 0xff534d42
	magicNinep = 0x01021997
	magicCeph  = 0x00c36400
	magicAFS   = 0x5346414f
	magicFUSE  = 0x65735546
)

type linuxOracle struct{}

func newPlatform() settings.Oracle {
	return linuxOracle{}
}

// Check implements settings.Oracle.
func (linuxOracle) Check(r *repo.Repo) settings.Reason {
	return classifyPath(r.WorkTree)
}

func classifyPath(path string) settings.Reason {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return settings.ReasonError
	}

	switch uint32(st.Type) {
	case magicNFS, magicSMB, magicSMB2, magicCIFS, magicNinep, magicCeph, magicAFS:
		return settings.ReasonRemote
	case magicFUSE:
		// FUSE covers sshfs as well as virtual providers; neither
		// delivers reliable inotify events.
		return settings.ReasonVirtualFS
	default:
		return settings.ReasonOk
	}
}
