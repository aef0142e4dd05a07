package advice

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

const testSuppressEnv = "REPOWATCH_TEST_SUPPRESS_ADVICE"

func clearEnv(t *testing.T) {
	t.Helper()
	prev, had := os.LookupEnv(testSuppressEnv)
	if err := os.Unsetenv(testSuppressEnv); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(testSuppressEnv, prev) // nolint:errcheck
		} else {
			_ = os.Unsetenv(testSuppressEnv) // nolint:errcheck
		}
	})
}

func TestErrorfAndHintf(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Errorf("repository '%s' is broken", "/repo")
	r.Hintf("try again")

	out := buf.String()
	if !strings.Contains(out, "error: repository '/repo' is broken\n") {
		t.Errorf("missing error line, got: %q", out)
	}
	if !strings.Contains(out, "hint: try again\n") {
		t.Errorf("missing hint line, got: %q", out)
	}
	// Non-terminal output must not carry escape sequences.
	if strings.Contains(out, "\x1b[") {
		t.Errorf("unexpected color codes in non-terminal output: %q", out)
	}
}

func TestDeprecationOnce(t *testing.T) {
	clearEnv(t)

	var buf bytes.Buffer
	r := NewReporter(&buf)

	if !r.DeprecationOnce(testSuppressEnv, "old key is deprecated") {
		t.Fatal("first DeprecationOnce() = false, want true")
	}
	for i := 0; i < 3; i++ {
		if r.DeprecationOnce(testSuppressEnv, "old key is deprecated") {
			t.Fatal("repeated DeprecationOnce() = true, want false")
		}
	}

	if got := strings.Count(buf.String(), "deprecated"); got != 1 {
		t.Errorf("hint emitted %d times, want 1", got)
	}

	// The suppression variable is exported for child processes.
	if os.Getenv(testSuppressEnv) != "1" {
		t.Errorf("suppression env = %q, want 1", os.Getenv(testSuppressEnv))
	}
}

func TestDeprecationSuppressedByEnv(t *testing.T) {
	clearEnv(t)
	if err := os.Setenv(testSuppressEnv, "1"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	r := NewReporter(&buf)

	if r.DeprecationOnce(testSuppressEnv, "old key is deprecated") {
		t.Error("DeprecationOnce() = true despite suppression env")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestParseEnvBool(t *testing.T) {
	tests := []struct {
		input  string
		want   bool
		wantOK bool
	}{
		{"1", true, true},
		{"true", true, true},
		{"yes", true, true},
		{"on", true, true},
		{"", false, true},
		{"0", false, true},
		{"false", false, true},
		{"off", false, true},
		{"banana", false, false},
	}

	for _, tt := range tests {
		got, ok := ParseEnvBool(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseEnvBool(%q) = %v, %v, want %v, %v",
				tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDefaultReporterExists(t *testing.T) {
	if Default == nil {
		t.Fatal("Default reporter is nil")
	}
}
