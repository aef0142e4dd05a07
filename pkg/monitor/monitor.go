// Package monitor ties the pieces together: it resolves the monitor
// settings for a repository and hands back a change provider matching
// the resolved mode: the hook client for hook mode, the in-process
// watcher for IPC mode.
//
// Example usage:
//
//	r, _ := repo.Open(".")
//	m, err := monitor.New(r, monitor.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, err := m.Provider(ctx)
//	if errors.Is(err, monitor.ErrDisabled) {
//	    // fall back to a full working-tree scan
//	}
//	res, _ := p.Query(ctx, lastToken)
package monitor

import (
	"context"
	"fmt"

	"github.com/repowatch/repowatch/pkg/advice"
	"github.com/repowatch/repowatch/pkg/compat"
	"github.com/repowatch/repowatch/pkg/config"
	"github.com/repowatch/repowatch/pkg/gitcfg"
	"github.com/repowatch/repowatch/pkg/hook"
	"github.com/repowatch/repowatch/pkg/logger"
	"github.com/repowatch/repowatch/pkg/repo"
	"github.com/repowatch/repowatch/pkg/settings"
	"github.com/repowatch/repowatch/pkg/watcher"
)

// Result is the answer to one change query.
type Result struct {
	// Token to pass to the next query.
	Token string

	// Paths are worktree-relative paths changed since the queried
	// token. Meaningless when AllChanged is set.
	Paths []string

	// AllChanged means the provider could not answer incrementally;
	// the caller must scan the whole working tree.
	AllChanged bool
}

// Provider answers change queries for one repository.
type Provider interface {
	// Query returns the changes since token. An empty token asks
	// for a baseline: the caller gets AllChanged plus the token to
	// use from now on.
	Query(ctx context.Context, token string) (Result, error)

	// Close releases provider resources.
	Close() error
}

// Options configures a Monitor. The zero value selects defaults.
type Options struct {
	// Config supplies runtime options. Defaults to loading the
	// repository's fsmonitor.yml (or built-in defaults).
	Config *config.Config

	// GitConfig supplies git configuration to the settings
	// resolver. Defaults to the repository's config files.
	GitConfig gitcfg.Source

	// Oracle vetoes monitoring on incompatible environments.
	// Defaults to the platform oracle.
	Oracle settings.Oracle

	// Reporter receives user-facing diagnostics.
	Reporter *advice.Reporter

	// Logger receives structured logging. Defaults to a logger
	// built from the runtime logging options.
	Logger logger.Logger
}

// Monitor owns the resolved settings and builds providers for one
// repository context.
type Monitor struct {
	repo     *repo.Repo
	cfg      *config.Config
	resolver *settings.Resolver
	logger   logger.Logger
}

// New creates a Monitor for the repository.
func New(r *repo.Repo, opts Options) (*Monitor, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(r.GitDir)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	log := opts.Logger
	if log == nil {
		log = logger.New(logger.Config{
			Level:  cfg.Logging.Level,
			Output: cfg.Logging.Output,
			Format: cfg.Logging.Format,
		})
	}

	oracle := opts.Oracle
	if oracle == nil {
		oracle = compat.New()
	}

	resolver := settings.New(r, settings.Options{
		Config:   opts.GitConfig,
		Oracle:   oracle,
		Reporter: opts.Reporter,
		Logger:   log,
	})

	return &Monitor{
		repo:     r,
		cfg:      cfg,
		resolver: resolver,
		logger:   log,
	}, nil
}

// Settings returns the settings resolver owned by this monitor.
func (m *Monitor) Settings() *settings.Resolver {
	return m.resolver
}

// Provider returns the change provider matching the resolved mode.
//
// ErrDisabled means monitoring is simply off; ErrIncompatible means
// the environment vetoed it, with the reason already reported to the
// user.
func (m *Monitor) Provider(ctx context.Context) (Provider, error) {
	switch mode := m.resolver.Mode(); mode {
	case settings.ModeDisabled:
		return nil, ErrDisabled

	case settings.ModeIncompatible:
		m.resolver.ErrorIfIncompatible()
		return nil, fmt.Errorf("%w: %s", ErrIncompatible, m.resolver.Reason())

	case settings.ModeHook:
		c := hook.New(m.resolver.HookPath(), hook.Config{
			Timeout: m.cfg.Watcher.HookTimeout,
		}, m.logger)
		m.logger.Info("using fsmonitor hook", "hook", c.Path())
		return &hookProvider{client: c}, nil

	case settings.ModeIPC:
		return m.newIPCProvider(ctx)

	default:
		panic(fmt.Sprintf("monitor: unhandled mode %d", mode))
	}
}

// newIPCProvider starts the in-process watcher.
func (m *Monitor) newIPCProvider(ctx context.Context) (Provider, error) {
	store, err := watcher.NewBoltStateStore(m.cfg.StateDBPath(m.repo.GitDir))
	if err != nil {
		// Persistence is an optimization; watching still works,
		// previously issued tokens just go stale.
		m.logger.Warn("state database unavailable, using in-memory state",
			"error", err)
		store = watcher.NewMemoryStateStore()
	}

	w, err := watcher.New(watcher.Config{
		DebounceInterval: m.cfg.Watcher.DebounceInterval,
		JournalDepth:     m.cfg.Watcher.JournalDepth,
	}, m.repo.WorkTree, m.repo.GitDir, store, m.logger)
	if err != nil {
		_ = store.Close() // nolint:errcheck
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Start(ctx); err != nil {
		_ = w.Close()     // nolint:errcheck
		_ = store.Close() // nolint:errcheck
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	m.logger.Info("using in-process watcher", "worktree", m.repo.WorkTree)
	return &ipcProvider{watcher: w, store: store}, nil
}

// hookProvider adapts the hook client to the Provider interface.
type hookProvider struct {
	client hook.Client
}

// Query implements Provider.Query.
func (p *hookProvider) Query(ctx context.Context, token string) (Result, error) {
	res, err := p.client.Query(ctx, token)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Token:      res.Token,
		Paths:      res.Paths,
		AllChanged: res.AllChanged,
	}, nil
}

// Close implements Provider.Close.
func (p *hookProvider) Close() error {
	return nil
}

// ipcProvider adapts the worktree watcher to the Provider interface.
type ipcProvider struct {
	watcher watcher.Watcher
	store   watcher.StateStore
}

// Query implements Provider.Query.
func (p *ipcProvider) Query(_ context.Context, token string) (Result, error) {
	// Taking the new token first means a change racing with this
	// query is at worst reported twice, never lost.
	next := p.watcher.Token()

	if token == "" {
		return Result{Token: next, AllChanged: true}, nil
	}

	paths, ok := p.watcher.ChangesSince(token)
	if !ok {
		return Result{Token: next, AllChanged: true}, nil
	}
	return Result{Token: next, Paths: paths}, nil
}

// Close implements Provider.Close.
func (p *ipcProvider) Close() error {
	err := p.watcher.Close()
	if storeErr := p.store.Close(); err == nil {
		err = storeErr
	}
	return err
}
