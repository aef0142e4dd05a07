//go:build darwin

package compat

import (
	"bytes"

	"golang.org/x/sys/unix"

	"github.com/repowatch/repowatch/pkg/repo"
	"github.com/repowatch/repowatch/pkg/settings"
)

type darwinOracle struct{}

func newPlatform() settings.Oracle {
	return darwinOracle{}
}

// Check implements settings.Oracle.
//
// The working tree must be a local, non-virtualized volume, and the
// gitdir must be able to host a Unix-domain socket: network volumes
// cannot, so a repository whose metadata lives on one gets
// ReasonNoSockets even when the working tree itself is fine.
func (darwinOracle) Check(r *repo.Repo) settings.Reason {
	wtType, err := fsTypeName(r.WorkTree)
	if err != nil {
		return settings.ReasonError
	}
	if reason := classifyTypeName(wtType); reason != settings.ReasonOk {
		return reason
	}

	gdType, err := fsTypeName(r.GitDir)
	if err != nil {
		return settings.ReasonError
	}
	if classifyTypeName(gdType) == settings.ReasonRemote {
		return settings.ReasonNoSockets
	}

	return settings.ReasonOk
}

// fsTypeName returns the filesystem type name of the volume holding
// path, as reported by statfs(2).
func fsTypeName(path string) (string, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(st.Fstypename[:], "\x00")), nil
}

func classifyTypeName(name string) settings.Reason {
	switch name {
	case "nfs", "smbfs", "cifs", "afpfs", "webdav":
		return settings.ReasonRemote
	case "osxfuse", "macfuse", "fusefs":
		return settings.ReasonVirtualFS
	default:
		return settings.ReasonOk
	}
}
