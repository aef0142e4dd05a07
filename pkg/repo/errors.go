package repo

import "errors"

// Common errors returned by the repo package.
var (
	// ErrNotRepository is returned when a path is not a git repository.
	ErrNotRepository = errors.New("not a git repository")

	// ErrMalformedGitFile is returned when a .git gitfile cannot be parsed.
	ErrMalformedGitFile = errors.New("malformed .git file")
)
