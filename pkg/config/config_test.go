package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Watcher.DebounceInterval <= 0 {
		t.Error("DebounceInterval not set")
	}
	if cfg.Watcher.JournalDepth <= 0 {
		t.Error("JournalDepth not set")
	}
	if cfg.Storage.StateDB == "" {
		t.Error("StateDB not set")
	}
	if cfg.Logging.Level == "" {
		t.Error("Log level not set")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"zero debounce", func(c *Config) { c.Watcher.DebounceInterval = 0 }, ErrInvalidDebounce},
		{"zero journal depth", func(c *Config) { c.Watcher.JournalDepth = 0 }, ErrInvalidJournalDepth},
		{"zero hook timeout", func(c *Config) { c.Watcher.HookTimeout = 0 }, ErrInvalidHookTimeout},
		{"empty state db", func(c *Config) { c.Storage.StateDB = "" }, ErrNoStateDB},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load() without file = %+v, want defaults", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	gitdir := t.TempDir()
	content := `
watcher:
  debounce_interval: 250ms
  journal_depth: 64
storage:
  state_db: /var/lib/repowatch/state.db
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(filepath.Join(gitdir, FileName), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(gitdir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Watcher.DebounceInterval != 250*time.Millisecond {
		t.Errorf("DebounceInterval = %v, want 250ms", cfg.Watcher.DebounceInterval)
	}
	if cfg.Watcher.JournalDepth != 64 {
		t.Errorf("JournalDepth = %d, want 64", cfg.Watcher.JournalDepth)
	}
	// Unset fields keep their defaults.
	if cfg.Watcher.HookTimeout != Default().Watcher.HookTimeout {
		t.Errorf("HookTimeout = %v, want default", cfg.Watcher.HookTimeout)
	}
	if cfg.Storage.StateDB != "/var/lib/repowatch/state.db" {
		t.Errorf("StateDB = %s", cfg.Storage.StateDB)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	gitdir := t.TempDir()
	if err := os.WriteFile(filepath.Join(gitdir, FileName), []byte("watcher: [broken"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(gitdir); !errors.Is(err, ErrInvalidYAML) {
		t.Errorf("Load() error = %v, want ErrInvalidYAML", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvStateDB, "/env/state.db")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Storage.StateDB != "/env/state.db" {
		t.Errorf("StateDB = %s, want /env/state.db", cfg.Storage.StateDB)
	}
}

func TestStateDBPath(t *testing.T) {
	cfg := Default()

	if got := cfg.StateDBPath("/repo/.git"); got != filepath.Join("/repo/.git", "fsmonitor.db") {
		t.Errorf("StateDBPath() = %s", got)
	}

	cfg.Storage.StateDB = "/abs/state.db"
	if got := cfg.StateDBPath("/repo/.git"); got != "/abs/state.db" {
		t.Errorf("StateDBPath() with absolute path = %s", got)
	}
}
