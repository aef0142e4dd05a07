package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/repowatch/repowatch/pkg/advice"
	"github.com/repowatch/repowatch/pkg/gitcfg"
	"github.com/repowatch/repowatch/pkg/logger"
	"github.com/repowatch/repowatch/pkg/repo"
)

// Configuration and environment keys consulted during resolution.
const (
	// ConfigKey is the primary key: a boolean to select the IPC
	// watcher or disable monitoring, or a hook pathname. This does
	// imply a hook script cannot be named "true" or "false".
	ConfigKey = "core.fsmonitor"

	// DeprecatedConfigKey is the legacy boolean key, consulted only
	// when ConfigKey is unset or holds a pathname.
	DeprecatedConfigKey = "core.useBuiltinFSMonitor"

	// EnvTestHook names a hook path for test and debug injection,
	// consulted only when neither config key decides the mode.
	EnvTestHook = "GIT_TEST_FSMONITOR"

	// EnvSuppressAdvice silences the deprecation hint for
	// DeprecatedConfigKey. It is set after the first emission so
	// child processes inherit the suppression.
	EnvSuppressAdvice = "GIT_SUPPRESS_USEBUILTINFSMONITOR_ADVICE"
)

const deprecationHint = DeprecatedConfigKey +
	" will be deprecated soon; use " + ConfigKey + " instead"

// Options configures a Resolver. The zero value selects reasonable
// defaults for every field.
type Options struct {
	// Config supplies git configuration. Defaults to the
	// repository's own config files.
	Config gitcfg.Source

	// Oracle vetoes monitoring on incompatible environments.
	// Nil allows everything; see the compat package for platform
	// implementations.
	Oracle Oracle

	// Reporter receives user-facing diagnostics. Defaults to the
	// process-wide advice.Default, which carries the one-shot
	// deprecation state.
	Reporter *advice.Reporter

	// Logger receives debug logging. Defaults to a no-op logger.
	Logger logger.Logger

	// Getenv reads environment variables. Defaults to os.Getenv.
	Getenv func(string) string
}

// Resolver computes and caches the monitor settings for one
// repository context.
//
// A Resolver is owned by the repository context that created it and is
// not safe for concurrent use; callers sharing one across goroutines
// must serialize access.
type Resolver struct {
	repo     *repo.Repo
	cfg      gitcfg.Source
	oracle   Oracle
	reporter *advice.Reporter
	logger   logger.Logger
	getenv   func(string) string

	// settings is nil until first resolution succeeds. Mutations
	// replace the value wholesale.
	settings *Settings
}

// New creates a Resolver for the repository.
func New(r *repo.Repo, opts Options) *Resolver {
	if opts.Config == nil {
		opts.Config = gitcfg.NewFileSource(r.GitDir)
	}
	if opts.Reporter == nil {
		opts.Reporter = advice.Default
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Resolver{
		repo:     r,
		cfg:      opts.Config,
		oracle:   opts.Oracle,
		reporter: opts.Reporter,
		logger:   opts.Logger,
		getenv:   opts.Getenv,
	}
}

// Mode returns the resolved monitor mode, computing it on first call.
//
// If resolution fails (for example a hook pathname that cannot be
// normalized) the failure is reported, nothing is cached, and
// ModeDisabled is returned; the next call retries.
func (r *Resolver) Mode() Mode {
	if err := r.ensure(); err != nil {
		return ModeDisabled
	}
	return r.settings.mode
}

// HookPath returns the resolved hook pathname, empty unless the mode
// is ModeHook.
func (r *Resolver) HookPath() string {
	if err := r.ensure(); err != nil {
		return ""
	}
	return r.settings.hookPath
}

// Reason returns the incompatibility reason, ReasonOk unless the mode
// is ModeIncompatible.
func (r *Resolver) Reason() Reason {
	if err := r.ensure(); err != nil {
		return ReasonOk
	}
	return r.settings.reason
}

// SetIPC forces the IPC watcher mode, subject to the incompatibility
// gate: on a vetoed repository the settings become incompatible with
// the oracle's reason instead.
func (r *Resolver) SetIPC() {
	s := newSettings()
	r.applyIPC(s)
	r.settings = s
}

// SetHook forces hook mode with the given script path, subject to the
// incompatibility gate. The path is normalized to an absolute path; if
// normalization fails the failure is reported and the cached settings
// are left unchanged.
func (r *Resolver) SetHook(path string) {
	norm, err := r.normalizePath(path)
	if err != nil {
		r.reporter.Errorf("invalid fsmonitor hook path '%s': %v", path, err)
		r.logger.Warn("rejected hook path", "path", path, "error", err)
		return
	}

	s := newSettings()
	r.applyHook(s, norm)
	r.settings = s
}

// SetDisabled turns monitoring off unconditionally: mode disabled,
// reason ok, no hook path.
func (r *Resolver) SetDisabled() {
	r.settings = newSettings()
}

// ErrorIfIncompatible reports whether the repository is incompatible
// with monitoring, emitting a reason-specific diagnostic when it is.
//
// Every reason maps to exactly one message; an unmapped reason is an
// internal-consistency failure and panics.
func (r *Resolver) ErrorIfIncompatible() bool {
	switch reason := r.Reason(); reason {
	case ReasonOk:
		return false
	case ReasonBare:
		r.reporter.Errorf("bare repository '%s' is incompatible with fsmonitor", r.repo.GitDir)
	case ReasonError:
		r.reporter.Errorf("repository '%s' is incompatible with fsmonitor due to errors", r.repo.WorkTree)
	case ReasonRemote:
		r.reporter.Errorf("remote repository '%s' is incompatible with fsmonitor", r.repo.WorkTree)
	case ReasonVirtualFS:
		r.reporter.Errorf("virtual repository '%s' is incompatible with fsmonitor", r.repo.WorkTree)
	case ReasonNoSockets:
		r.reporter.Errorf("repository '%s' is incompatible with fsmonitor due to lack of Unix sockets", r.repo.WorkTree)
	default:
		panic(fmt.Sprintf("settings: unhandled incompatibility reason %d", reason))
	}
	return true
}

// ensure lazily resolves the settings. The cache is written only on
// success, so a failed resolution is retried on the next access.
func (r *Resolver) ensure() error {
	if r.settings != nil {
		return nil
	}
	return r.resolve()
}

// resolve runs the precedence algorithm once.
//
// Order: bare/oracle gate, primary key as tri-state, deprecated legacy
// key, environment override. Enabling hook or IPC mode re-runs the
// gate at the point of enabling, matching the Set* contract.
func (r *Resolver) resolve() error {
	s := newSettings()

	// Nothing to watch without a working tree, and no point reading
	// config on an environment the oracle vetoes.
	if r.gate(s) {
		r.finish(s)
		return nil
	}

	switch v := gitcfg.Lookup(r.cfg, ConfigKey); v.Kind {
	case gitcfg.KindBool:
		// Explicit boolean: overrides the legacy key and the
		// environment override unconditionally.
		if v.Bool {
			r.applyIPC(s)
		}
		r.finish(s)
		return nil

	case gitcfg.KindUnset:
		if r.checkDeprecated(s) {
			r.finish(s)
			return nil
		}

		raw := strings.TrimSpace(r.getenv(EnvTestHook))
		if raw == "" {
			r.finish(s)
			return nil
		}

		path, err := r.normalizePath(raw)
		if err != nil {
			r.reportResolveFailure(raw, err)
			return err
		}
		r.applyHook(s, path)
		r.finish(s)
		return nil

	case gitcfg.KindString:
		// The legacy key wins even over a hook pathname.
		if r.checkDeprecated(s) {
			r.finish(s)
			return nil
		}

		path, err := r.normalizePath(v.Str)
		if err != nil {
			r.reportResolveFailure(v.Str, err)
			return err
		}
		r.applyHook(s, path)
		r.finish(s)
		return nil

	default:
		panic(fmt.Sprintf("settings: unhandled config value kind %d", v.Kind))
	}
}

// checkDeprecated consults the legacy boolean key. If the key is
// present the one-shot deprecation hint fires; if its value is true
// the IPC mode is applied and resolution is done. A false or
// unparsable value leaves the decision to later sources.
func (r *Resolver) checkDeprecated(s *Settings) bool {
	raw, ok := r.cfg.Get(DeprecatedConfigKey)
	if !ok {
		return false
	}

	r.reporter.DeprecationOnce(EnvSuppressAdvice, deprecationHint)

	if val, isBool := gitcfg.ParseBool(raw); isBool && val {
		r.applyIPC(s)
		return true
	}
	return false
}

// gate applies the incompatibility checks to s, returning true when
// monitoring is vetoed.
func (r *Resolver) gate(s *Settings) bool {
	if r.repo.Bare() {
		s.setIncompatible(ReasonBare)
		return true
	}
	if r.oracle != nil {
		if reason := r.oracle.Check(r.repo); reason != ReasonOk {
			s.setIncompatible(reason)
			return true
		}
	}
	return false
}

func (r *Resolver) applyIPC(s *Settings) {
	if r.gate(s) {
		return
	}
	s.mode = ModeIPC
	s.reason = ReasonOk
	s.hookPath = ""
}

func (r *Resolver) applyHook(s *Settings, path string) {
	if r.gate(s) {
		return
	}
	s.mode = ModeHook
	s.reason = ReasonOk
	s.hookPath = path
}

func (r *Resolver) finish(s *Settings) {
	r.settings = s
	r.logger.Debug("fsmonitor settings resolved",
		"repo", r.repo.Path(),
		"mode", s.mode.String(),
		"reason", s.reason.String(),
		"hook_path", s.hookPath)
}

func (r *Resolver) reportResolveFailure(raw string, err error) {
	r.reporter.Errorf("unable to resolve fsmonitor hook path '%s': %v", raw, err)
	r.logger.Warn("fsmonitor resolution aborted", "value", raw, "error", err)
}

// normalizePath expands a leading "~" and resolves relative paths
// against the working tree, returning a cleaned absolute path.
func (r *Resolver) normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand '~': %w", err)
		}
		if path == "~" {
			path = home
		} else if strings.HasPrefix(path, "~/") {
			path = filepath.Join(home, path[2:])
		} else {
			// "~user" expansion is not supported.
			return "", fmt.Errorf("unsupported home-relative path %q", path)
		}
	}

	if !filepath.IsAbs(path) {
		if r.repo.Bare() {
			return "", fmt.Errorf("relative hook path %q in a repository without a working tree", path)
		}
		path = filepath.Join(r.repo.WorkTree, path)
	}
	return filepath.Clean(path), nil
}
