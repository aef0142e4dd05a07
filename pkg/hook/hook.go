// Package hook queries an external fsmonitor hook script for
// working-tree changes.
//
// The hook is invoked as:
//
//	<hook> <protocol-version> <last-token>
//
// and answers on stdout with NUL-delimited records. An optional first
// record of the form "token:<t>" carries the token to pass on the next
// query; every other record is a worktree-relative path that changed
// since <last-token>. A record of "/", or a non-zero exit, tells the
// caller to trust nothing and rescan the whole working tree.
package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ProtocolVersion is the hook protocol version passed as the first
// argument.
const ProtocolVersion = 2

// tokenPrefix marks the optional token record in hook output.
const tokenPrefix = "token:"

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Result is the outcome of one hook query.
type Result struct {
	// Token to pass to the next query, empty if the hook did not
	// supply one.
	Token string

	// Paths are worktree-relative paths reported as changed.
	Paths []string

	// AllChanged means the hook could not answer incrementally and
	// the caller must rescan everything.
	AllChanged bool
}

// Client queries one hook script.
type Client interface {
	// Query runs the hook with the last known token and parses its
	// answer. A hook that exits non-zero yields AllChanged, not an
	// error; an error is returned only when the hook cannot be run
	// at all.
	Query(ctx context.Context, lastToken string) (Result, error)

	// Path returns the hook script path.
	Path() string
}

// Config contains hook client configuration.
type Config struct {
	// Timeout bounds a single hook invocation. Zero means no
	// client-side timeout. Default: 10s.
	Timeout time.Duration
}

// client implements the Client interface.
type client struct {
	path    string
	timeout time.Duration
	logger  Logger
}

// New creates a hook client for the script at path.
func New(path string, cfg Config, log Logger) Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &client{
		path:    path,
		timeout: cfg.Timeout,
		logger:  log,
	}
}

// Query implements Client.Query.
func (c *client) Query(ctx context.Context, lastToken string) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, strconv.Itoa(ProtocolVersion), lastToken) // nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The hook ran but declined to answer incrementally.
			c.logger.Warn("fsmonitor hook requested full rescan",
				"hook", c.path,
				"exit_code", exitErr.ExitCode())
			return Result{AllChanged: true}, nil
		}
		return Result{}, fmt.Errorf("%w: %s: %v", ErrHookFailed, c.path, err)
	}

	res := parseOutput(out)
	c.logger.Debug("fsmonitor hook answered",
		"hook", c.path,
		"paths", len(res.Paths),
		"all_changed", res.AllChanged)
	return res, nil
}

// Path implements Client.Path.
func (c *client) Path() string {
	return c.path
}

// parseOutput splits the hook's NUL-delimited answer into a Result.
func parseOutput(out []byte) Result {
	var res Result

	records := bytes.Split(out, []byte{0})
	for i, rec := range records {
		s := string(rec)
		if i == len(records)-1 && s == "" {
			// Trailing NUL.
			break
		}
		if i == 0 {
			if tok, ok := strings.CutPrefix(s, tokenPrefix); ok {
				res.Token = tok
				continue
			}
		}
		if s == "/" {
			res.AllChanged = true
			res.Paths = nil
			break
		}
		if s != "" {
			res.Paths = append(res.Paths, s)
		}
	}

	return res
}
