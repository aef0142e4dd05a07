// Package gitcfg reads git configuration for a repository and exposes
// values with git's lookup semantics.
//
// The package distinguishes three states for a key: unset, an explicit
// boolean (git spelling: true/yes/on/1 and false/no/off/0), and an
// arbitrary string. Callers receive a tagged Value and must handle all
// three states.
//
// File parsing is delegated to github.com/gopasspw/gitconfig, which
// loads the system, global, and repository-local scopes with git's
// precedence. That library does not represent valueless keys, so a key
// whose value is empty is reported as unset here.
package gitcfg

import (
	"strings"

	"github.com/gopasspw/gitconfig"
)

// Source supplies raw configuration values.
//
// Get returns the effective value for key and whether the key is set.
type Source interface {
	Get(key string) (string, bool)
}

// Kind identifies the state of a looked-up configuration value.
type Kind int

// Value states.
const (
	// KindUnset means the key is not present in any scope.
	KindUnset Kind = iota

	// KindBool means the value parses as a git boolean.
	KindBool

	// KindString means the value is an arbitrary string.
	KindString
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is the result of a tri-state configuration lookup.
type Value struct {
	// Kind tags which of the remaining fields is meaningful.
	Kind Kind

	// Bool holds the parsed boolean when Kind is KindBool.
	Bool bool

	// Str holds the raw string when Kind is KindString.
	Str string
}

// Lookup reads key from src and classifies the result.
func Lookup(src Source, key string) Value {
	raw, ok := src.Get(key)
	if !ok {
		return Value{Kind: KindUnset}
	}
	if b, isBool := ParseBool(raw); isBool {
		return Value{Kind: KindBool, Bool: b}
	}
	return Value{Kind: KindString, Str: raw}
}

// ParseBool parses a git-style boolean.
//
// Accepted spellings (case-insensitive): true/yes/on/1 and
// false/no/off/0. Anything else is not a boolean.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0":
		return false, true
	default:
		return false, false
	}
}

// FileSource reads configuration from the git config files of one
// repository, with system and global scopes layered underneath.
type FileSource struct {
	cs *gitconfig.Configs
}

// NewFileSource loads configuration for the repository whose gitdir is
// given. All standard scopes participate with git's precedence.
func NewFileSource(gitdir string) *FileSource {
	cs := gitconfig.New()
	cs.LocalConfig = "config"
	cs.WorktreeConfig = "config.worktree"
	cs.LoadAll(gitdir)
	return &FileSource{cs: cs}
}

// NewLocalSource loads only the repository-local configuration,
// ignoring the system and global scopes. Intended for tests and
// hermetic callers.
func NewLocalSource(gitdir string) *FileSource {
	cs := gitconfig.New()
	cs.SystemConfig = ""
	cs.GlobalConfig = ""
	cs.LocalConfig = "config"
	cs.WorktreeConfig = "config.worktree"
	cs.LoadAll(gitdir)
	return &FileSource{cs: cs}
}

// Get implements Source.Get.
//
// An empty effective value is reported as unset; see the package
// documentation for why.
func (f *FileSource) Get(key string) (string, bool) {
	v := f.cs.Get(key)
	if v == "" {
		return "", false
	}
	return v, true
}

// MapSource is an in-memory Source for tests and programmatic callers.
type MapSource map[string]string

// Get implements Source.Get.
func (m MapSource) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}
