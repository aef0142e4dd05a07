// Package config carries the runtime options for the monitoring side
// of repowatch: watcher tuning, state storage, and logging.
//
// These options are deliberately separate from git configuration. The
// settings package decides *whether* monitoring runs by reading git
// config; this package only tunes *how* the watcher behaves once it
// does. Options load from an optional fsmonitor.yml in the gitdir,
// with environment overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the options file looked up inside the gitdir.
const FileName = "fsmonitor.yml"

// Environment overrides applied after the file is read.
const (
	EnvLogLevel = "REPOWATCH_LOG_LEVEL"
	EnvStateDB  = "REPOWATCH_STATE_DB"
)

// Config represents the complete runtime configuration.
//
// Invariants:
// - Watcher.DebounceInterval must be > 0
// - Watcher.JournalDepth must be > 0
// - Watcher.HookTimeout must be > 0
// - Logging.Level must be one of debug, info, warn, error.
type Config struct {
	// Watcher tuning
	Watcher WatcherConfig `yaml:"watcher"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// WatcherConfig tunes the in-process watcher and the hook client.
type WatcherConfig struct {
	// Time to wait before journaling an event
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Maximum journal entries kept in memory
	JournalDepth int `yaml:"journal_depth"`

	// Bound on a single hook invocation
	HookTimeout time.Duration `yaml:"hook_timeout"`
}

// StorageConfig locates persistent watcher state.
type StorageConfig struct {
	// Path to the state database; relative paths resolve against
	// the gitdir
	StateDB string `yaml:"state_db"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Watcher: WatcherConfig{
			DebounceInterval: 100 * time.Millisecond,
			JournalDepth:     8192,
			HookTimeout:      10 * time.Second,
		},
		Storage: StorageConfig{
			StateDB: "fsmonitor.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}

// Validate checks if the configuration satisfies all invariants.
func (c *Config) Validate() error {
	if c.Watcher.DebounceInterval <= 0 {
		return ErrInvalidDebounce
	}
	if c.Watcher.JournalDepth <= 0 {
		return ErrInvalidJournalDepth
	}
	if c.Watcher.HookTimeout <= 0 {
		return ErrInvalidHookTimeout
	}
	if c.Storage.StateDB == "" {
		return ErrNoStateDB
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// StateDBPath returns the absolute state database location for the
// given gitdir.
func (c *Config) StateDBPath(gitdir string) string {
	if filepath.IsAbs(c.Storage.StateDB) {
		return c.Storage.StateDB
	}
	return filepath.Join(gitdir, c.Storage.StateDB)
}

// Load reads the options for the repository whose gitdir is given.
//
// A missing options file is not an error; defaults apply. A present
// but malformed file is.
func Load(gitdir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(gitdir, FileName)
	data, err := os.ReadFile(path) // nolint:gosec
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read options file %s: %w", path, err)
	default:
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
		cfg = merge(cfg, &fileCfg)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// merge overlays non-zero file values onto the defaults.
func merge(base, override *Config) *Config {
	result := *base

	if override.Watcher.DebounceInterval > 0 {
		result.Watcher.DebounceInterval = override.Watcher.DebounceInterval
	}
	if override.Watcher.JournalDepth > 0 {
		result.Watcher.JournalDepth = override.Watcher.JournalDepth
	}
	if override.Watcher.HookTimeout > 0 {
		result.Watcher.HookTimeout = override.Watcher.HookTimeout
	}
	if override.Storage.StateDB != "" {
		result.Storage.StateDB = override.Storage.StateDB
	}
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnv applies environment variable overrides in place.
func applyEnv(cfg *Config) {
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if db := os.Getenv(EnvStateDB); db != "" {
		cfg.Storage.StateDB = db
	}
}
