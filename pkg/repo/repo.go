// Package repo locates and describes a git repository on disk.
//
// It resolves the working tree and gitdir for a path, following the
// ".git" gitfile indirection used by worktrees and submodules, and
// recognizes bare repositories (which have no working tree at all).
//
// Example usage:
//
//	r, err := repo.Open("/path/to/checkout")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(r.WorkTree, r.GitDir, r.Bare())
package repo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Repo describes one repository context.
//
// Invariants:
// - GitDir is always an absolute path.
// - WorkTree is an absolute path, or empty for a bare repository.
type Repo struct {
	// WorkTree is the root of the working tree. Empty when the
	// repository is bare.
	WorkTree string

	// GitDir is the repository metadata directory (".git" for a
	// normal checkout, the repository root when bare).
	GitDir string
}

// Bare reports whether the repository has no working tree.
func (r *Repo) Bare() bool {
	return r.WorkTree == ""
}

// String returns a short human-readable description of the repository.
func (r *Repo) String() string {
	if r.Bare() {
		return fmt.Sprintf("bare repository at %s", r.GitDir)
	}
	return fmt.Sprintf("repository at %s", r.WorkTree)
}

// Path returns the location that best identifies the repository to a
// user: the working tree when present, the gitdir otherwise.
func (r *Repo) Path() string {
	if r.Bare() {
		return r.GitDir
	}
	return r.WorkTree
}

// Open resolves the repository rooted at path.
//
// Resolution order:
//  1. path/.git is a directory: normal checkout.
//  2. path/.git is a file: gitfile indirection ("gitdir: <target>"),
//     as written for linked worktrees and submodules.
//  3. path itself looks like a bare repository (HEAD, objects/, refs/).
//
// Returns ErrNotRepository when none of the above match.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	gitPath := filepath.Join(abs, ".git")
	fi, err := os.Stat(gitPath)
	switch {
	case err == nil && fi.IsDir():
		return &Repo{WorkTree: abs, GitDir: gitPath}, nil

	case err == nil:
		gitDir, gfErr := readGitFile(gitPath, abs)
		if gfErr != nil {
			return nil, gfErr
		}
		return &Repo{WorkTree: abs, GitDir: gitDir}, nil

	case os.IsNotExist(err):
		if looksBare(abs) {
			return &Repo{WorkTree: "", GitDir: abs}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, abs)

	default:
		return nil, fmt.Errorf("failed to stat %s: %w", gitPath, err)
	}
}

// readGitFile parses a ".git" gitfile and returns the absolute gitdir
// it points at. Relative targets are resolved against base.
func readGitFile(path, base string) (string, error) {
	f, err := os.Open(path) // nolint:gosec
	if err != nil {
		return "", fmt.Errorf("failed to open gitfile: %w", err)
	}
	defer f.Close() // nolint:errcheck

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", fmt.Errorf("%w: %s", ErrMalformedGitFile, path)
	}

	line := strings.TrimSpace(scanner.Text())
	target, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMalformedGitFile, path)
	}

	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("%w: %s", ErrMalformedGitFile, path)
	}

	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	return filepath.Clean(target), nil
}

// looksBare reports whether dir has the layout of a bare repository.
func looksBare(dir string) bool {
	if fi, err := os.Stat(filepath.Join(dir, "HEAD")); err != nil || fi.IsDir() {
		return false
	}
	for _, sub := range []string{"objects", "refs"} {
		fi, err := os.Stat(filepath.Join(dir, sub))
		if err != nil || !fi.IsDir() {
			return false
		}
	}
	return true
}
