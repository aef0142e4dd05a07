package monitor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repowatch/repowatch/pkg/advice"
	"github.com/repowatch/repowatch/pkg/config"
	"github.com/repowatch/repowatch/pkg/gitcfg"
	"github.com/repowatch/repowatch/pkg/hook"
	"github.com/repowatch/repowatch/pkg/logger"
	"github.com/repowatch/repowatch/pkg/repo"
	"github.com/repowatch/repowatch/pkg/settings"
)

// fixedOracle always answers with the same reason.
type fixedOracle struct {
	reason settings.Reason
}

func (o fixedOracle) Check(*repo.Repo) settings.Reason {
	return o.reason
}

// testRepo builds a throwaway checkout layout on disk.
func testRepo(t *testing.T) *repo.Repo {
	t.Helper()
	root := t.TempDir()
	gitdir := filepath.Join(root, ".git")
	require.NoError(t, os.Mkdir(gitdir, 0700))
	return &repo.Repo{WorkTree: root, GitDir: gitdir}
}

// testOptions wires hermetic collaborators: in-memory git config, a
// permissive oracle, and a quiet logger.
func testOptions(cfg map[string]string) Options {
	return Options{
		Config:    config.Default(),
		GitConfig: gitcfg.MapSource(cfg),
		Oracle:    fixedOracle{reason: settings.ReasonOk},
		Logger:    logger.Noop(),
	}
}

func TestProviderDisabled(t *testing.T) {
	m, err := New(testRepo(t), testOptions(nil))
	require.NoError(t, err)

	p, err := m.Provider(context.Background())
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestProviderIncompatible(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(map[string]string{
		settings.ConfigKey: "true",
	})
	opts.Oracle = fixedOracle{reason: settings.ReasonRemote}
	opts.Reporter = advice.NewReporter(&out)

	m, err := New(testRepo(t), opts)
	require.NoError(t, err)

	p, err := m.Provider(context.Background())
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrIncompatible)

	// The reason diagnostic goes to the user, not just the error.
	assert.Contains(t, out.String(), "remote")
}

func TestProviderHook(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test hook is a shell script")
	}

	r := testRepo(t)
	script := filepath.Join(t.TempDir(), "fsmonitor-hook")
	content := "#!/bin/sh\nprintf 'token:t9\\000a.go\\000'\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0700))

	m, err := New(r, testOptions(map[string]string{
		settings.ConfigKey: script,
	}))
	require.NoError(t, err)
	require.Equal(t, settings.ModeHook, m.Settings().Mode())

	p, err := m.Provider(context.Background())
	require.NoError(t, err)
	defer p.Close() // nolint:errcheck

	res, err := p.Query(context.Background(), "t8")
	require.NoError(t, err)
	assert.Equal(t, "t9", res.Token)
	assert.Equal(t, []string{"a.go"}, res.Paths)
	assert.False(t, res.AllChanged)
}

func TestProviderIPC(t *testing.T) {
	r := testRepo(t)
	opts := testOptions(map[string]string{
		settings.ConfigKey: "true",
	})
	opts.Config.Watcher.DebounceInterval = 10 * time.Millisecond

	m, err := New(r, opts)
	require.NoError(t, err)
	require.Equal(t, settings.ModeIPC, m.Settings().Mode())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := m.Provider(ctx)
	require.NoError(t, err)
	defer p.Close() // nolint:errcheck

	// An empty token asks for a baseline.
	base, err := p.Query(ctx, "")
	require.NoError(t, err)
	assert.True(t, base.AllChanged)
	require.NotEmpty(t, base.Token)

	require.NoError(t, os.WriteFile(filepath.Join(r.WorkTree, "tracked.go"),
		[]byte("package x\n"), 0600))

	// Event delivery is asynchronous; poll until the change shows up.
	deadline := time.After(3 * time.Second)
	for {
		res, err := p.Query(ctx, base.Token)
		require.NoError(t, err)
		require.False(t, res.AllChanged, "fresh token should stay answerable")
		if contains(res.Paths, "tracked.go") {
			break
		}
		select {
		case <-deadline:
			t.Fatal("change to tracked.go never reported")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestProviderIPCStateSurvivesInGitdir(t *testing.T) {
	r := testRepo(t)
	opts := testOptions(map[string]string{
		settings.ConfigKey: "true",
	})

	m, err := New(r, opts)
	require.NoError(t, err)

	p, err := m.Provider(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Close())

	// The bolt state database lands next to the repository metadata.
	_, err = os.Stat(filepath.Join(r.GitDir, "fsmonitor.db"))
	assert.NoError(t, err)
}

// stubClient fakes a hook for provider-mapping tests.
type stubClient struct {
	res hook.Result
	err error
}

func (c stubClient) Query(context.Context, string) (hook.Result, error) {
	return c.res, c.err
}

func (c stubClient) Path() string { return "/stub" }

func TestHookProviderMapping(t *testing.T) {
	p := &hookProvider{client: stubClient{
		res: hook.Result{Token: "t1", Paths: []string{"x"}, AllChanged: false},
	}}

	res, err := p.Query(context.Background(), "t0")
	require.NoError(t, err)
	assert.Equal(t, Result{Token: "t1", Paths: []string{"x"}}, res)
	assert.NoError(t, p.Close())
}

func TestHookProviderError(t *testing.T) {
	wantErr := errors.New("spawn failed")
	p := &hookProvider{client: stubClient{err: wantErr}}

	_, err := p.Query(context.Background(), "")
	assert.ErrorIs(t, err, wantErr)
}

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}
