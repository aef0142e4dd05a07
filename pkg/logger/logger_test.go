package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestGetWriter(t *testing.T) {
	if w, err := getWriter("stdout"); err != nil || w != os.Stdout {
		t.Errorf("getWriter(stdout) = %v, %v", w, err)
	}
	if w, err := getWriter("stderr"); err != nil || w != os.Stderr {
		t.Errorf("getWriter(stderr) = %v, %v", w, err)
	}
	if w, err := getWriter(""); err != nil || w != os.Stderr {
		t.Errorf("getWriter(\"\") = %v, %v", w, err)
	}

	// File destination.
	path := filepath.Join(t.TempDir(), "out.log")
	w, err := getWriter(path)
	if err != nil {
		t.Fatalf("getWriter(file) error = %v", err)
	}
	if f, ok := w.(*os.File); ok {
		_ = f.Close() // nolint:errcheck
	}

	// Unwritable destination.
	if _, err := getWriter(filepath.Join(t.TempDir(), "missing", "out.log")); err == nil {
		t.Error("getWriter() with missing parent dir: expected error")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repowatch.log")

	log := New(Config{Level: "debug", Output: path, Format: "json"})
	log.Info("resolved", "mode", "hook")
	log.Debug("detail", "key", "value")

	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"mode":"hook"`) {
		t.Errorf("log file missing expected field, got: %s", data)
	}
}

func TestWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "with.log")

	log := New(Config{Level: "info", Output: path, Format: "text"})
	child := log.With("worktree", "/repo")
	child.Info("event")

	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "worktree=/repo") {
		t.Errorf("With() fields not propagated, got: %s", data)
	}
}

func TestDefaultAndNoop(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	// Noop should never write or panic.
	n := Noop()
	n.Debug("a")
	n.Info("b")
	n.Warn("c")
	n.Error("d")
	n.With("k", "v").Info("e")
}
