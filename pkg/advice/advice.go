// Package advice emits user-facing diagnostics: error messages and
// one-shot deprecation hints.
//
// A Reporter owns the output stream and the one-shot state. Most
// callers share the process-wide Default reporter so a deprecation
// hint fires at most once per process; tests construct their own
// Reporter to observe output in isolation.
//
// Messages are prefixed "error:" or "hint:" and colored when the
// output is a terminal, matching the conventions of git's own
// diagnostics.
package advice

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// ANSI sequences used for terminal output.
const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// Reporter writes diagnostics to a single output stream.
//
// The zero value is not usable; construct with NewReporter.
type Reporter struct {
	mu    sync.Mutex
	out   io.Writer
	color bool

	// One-shot deprecation state. fired is set the first time a
	// deprecation hint is emitted and never cleared.
	fired bool

	// Environment suppression, checked once per Reporter.
	suppressChecked bool
	suppressed      bool
}

// Default is the process-wide reporter, writing to stderr.
var Default = NewReporter(os.Stderr)

// NewReporter creates a Reporter writing to out.
//
// Color is enabled only when out is a terminal.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{
		out:   out,
		color: isTerminal(out),
	}
}

// Errorf writes an "error:" diagnostic.
func (r *Reporter) Errorf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit(colorRed, "error", fmt.Sprintf(format, args...))
}

// Hintf writes a "hint:" diagnostic.
func (r *Reporter) Hintf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit(colorYellow, "hint", fmt.Sprintf(format, args...))
}

// DeprecationOnce emits msg as a hint at most once for the lifetime of
// the Reporter, and reports whether it was emitted.
//
// suppressEnv names an environment variable that silences the hint
// entirely. The variable is read once per Reporter; after the first
// emission it is set to "1" so that child processes stay quiet too.
func (r *Reporter) DeprecationOnce(suppressEnv, msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fired {
		return false
	}
	if !r.suppressChecked {
		r.suppressChecked = true
		if v, ok := ParseEnvBool(os.Getenv(suppressEnv)); ok && v {
			r.suppressed = true
		}
	}
	if r.suppressed {
		return false
	}

	r.fired = true
	if suppressEnv != "" {
		_ = os.Setenv(suppressEnv, "1") // nolint:errcheck
	}
	r.emit(colorYellow, "hint", msg)
	return true
}

// emit writes one prefixed line. Callers must hold r.mu.
func (r *Reporter) emit(color, prefix, msg string) {
	if r.color {
		fmt.Fprintf(r.out, "%s%s:%s %s\n", color, prefix, colorReset, msg)
		return
	}
	fmt.Fprintf(r.out, "%s: %s\n", prefix, msg)
}

// ParseEnvBool interprets an environment value as a boolean flag.
//
// Accepted true spellings: 1, true, yes, on. Accepted false spellings:
// 0, false, no, off, and empty. Anything else is not a flag.
func ParseEnvBool(s string) (value, ok bool) {
	switch s {
	case "1", "true", "yes", "on":
		return true, true
	case "", "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// isTerminal reports whether w is backed by a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
