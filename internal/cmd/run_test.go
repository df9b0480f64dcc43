package cmd

import (
	"bytes"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/keymapd/pkg/config"
	"github.com/offlinefirst/keymapd/pkg/session"
)

const testKeymap = `modes: [insert]
bindings:
  - keys: "Space L"
    shell: "echo hi"
  - keys: "Ctrl+C"
    mode_change: insert
  - mode: insert
    keys: "Escape"
    mode_change: default
  - mode: insert
    keys: "J"
    send: "Down"
`

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestContext(t *testing.T, keymapBody string) *AppContext {
	t.Helper()
	cfg := config.Default()
	cfg.Keymap.Watch = false
	if keymapBody != "" {
		path := filepath.Join(t.TempDir(), "keymap.yaml")
		require.NoError(t, os.WriteFile(path, []byte(keymapBody), 0o644))
		cfg.Keymap.Path = path
	}
	return &AppContext{Config: cfg, Logger: newTestLogger(), LevelVar: new(slog.LevelVar)}
}

func parseFlags(t *testing.T, cmd command, args ...string) *flag.FlagSet {
	t.Helper()
	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if cmd.configure != nil {
		cmd.configure(fs)
	}
	require.NoError(t, fs.Parse(args))
	return fs
}

func swapStdin(t *testing.T, input string) {
	t.Helper()
	orig := stdin
	stdin = strings.NewReader(input)
	t.Cleanup(func() { stdin = orig })
}

func TestRunDryRunFromStdin(t *testing.T) {
	ctx := newTestContext(t, testKeymap)
	swapStdin(t, "Space L\nCtrl+C\nJ J\n")

	sessionPath := filepath.Join(t.TempDir(), "session.json")
	fs := parseFlags(t, newRunCommand(), "--source", "stdin", "--dry-run", "--session-file", sessionPath)

	var stdout bytes.Buffer
	require.NoError(t, runDaemon(fs, nil, ctx, &stdout, io.Discard))

	out := stdout.String()
	assert.Contains(t, out, `Dry run finished in mode "insert" (4 bindings)`)
	assert.Contains(t, out, "Shell commands: 1\n  $ echo hi\n")
	assert.Contains(t, out, "Keys sent: 2\n  Down\n  Down\n")
	assert.Contains(t, out, "Last action: send(Down)\n")

	man, err := session.Load(sessionPath)
	require.NoError(t, err)
	assert.Equal(t, session.StateCompleted, man.Status.State)
	assert.Equal(t, session.TerminationSourceEnd, man.Status.Termination)
	assert.Equal(t, "insert", man.Status.Mode)
	assert.Equal(t, 4, man.Keymap.Bindings)
	assert.Equal(t, []string{"default", "insert"}, man.Keymap.Modes)
	assert.Equal(t, "stdin", man.Capture.Source)
	assert.True(t, man.Capture.DryRun)
	assert.NotEmpty(t, man.SessionID)
}

func TestRunReportsUnfinishedSequence(t *testing.T) {
	ctx := newTestContext(t, testKeymap)
	swapStdin(t, "Space\n")

	fs := parseFlags(t, newRunCommand(), "--source", "stdin", "--dry-run")
	var stdout bytes.Buffer
	require.NoError(t, runDaemon(fs, nil, ctx, &stdout, io.Discard))
	assert.Contains(t, stdout.String(), "Unfinished sequence: Space")
	assert.Contains(t, stdout.String(), "Shell commands: 0")
}

func TestRunKeymapFlagOverridesConfig(t *testing.T) {
	ctx := newTestContext(t, "")
	ctx.Config.Keymap.Path = filepath.Join(t.TempDir(), "missing.yaml")
	override := filepath.Join(t.TempDir(), "keymap.toml")
	require.NoError(t, os.WriteFile(override, []byte("[[bindings]]\nkeys = \"A\"\nshell = \"true\"\n"), 0o644))
	swapStdin(t, "A\n")

	fs := parseFlags(t, newRunCommand(), "--source", "stdin", "--dry-run", "--keymap", override)
	var stdout bytes.Buffer
	require.NoError(t, runDaemon(fs, nil, ctx, &stdout, io.Discard))
	assert.Contains(t, stdout.String(), "$ true")
}

func TestRunErrors(t *testing.T) {
	t.Run("missing keymap", func(t *testing.T) {
		ctx := newTestContext(t, "")
		ctx.Config.Keymap.Path = filepath.Join(t.TempDir(), "missing.yaml")
		fs := parseFlags(t, newRunCommand(), "--source", "stdin")
		err := runDaemon(fs, nil, ctx, io.Discard, io.Discard)
		assert.ErrorContains(t, err, "load keymap")
	})

	t.Run("invalid keymap", func(t *testing.T) {
		ctx := newTestContext(t, "bindings:\n  - keys: \"NoSuchKey\"\n    shell: x\n")
		fs := parseFlags(t, newRunCommand(), "--source", "stdin")
		err := runDaemon(fs, nil, ctx, io.Discard, io.Discard)
		assert.ErrorContains(t, err, "1 problem(s)")
	})

	t.Run("unknown source", func(t *testing.T) {
		ctx := newTestContext(t, testKeymap)
		fs := parseFlags(t, newRunCommand(), "--source", "tablet")
		err := runDaemon(fs, nil, ctx, io.Discard, io.Discard)
		assert.ErrorContains(t, err, `unknown source "tablet"`)
	})

	t.Run("bad consume policy", func(t *testing.T) {
		ctx := newTestContext(t, testKeymap)
		ctx.Config.Capture.Consume = "some"
		fs := parseFlags(t, newRunCommand(), "--source", "stdin")
		assert.Error(t, runDaemon(fs, nil, ctx, io.Discard, io.Discard))
	})

	t.Run("nil context", func(t *testing.T) {
		fs := parseFlags(t, newRunCommand())
		assert.Error(t, runDaemon(fs, nil, nil, io.Discard, io.Discard))
	})
}

func TestRunSessionWriteFailureIsNotFatal(t *testing.T) {
	ctx := newTestContext(t, testKeymap)
	swapStdin(t, "")

	orig := sessionSave
	var saves int
	sessionSave = func(session.Manifest, string) error {
		saves++
		return assert.AnError
	}
	t.Cleanup(func() { sessionSave = orig })

	fs := parseFlags(t, newRunCommand(), "--source", "stdin", "--dry-run", "--session-file", "ignored.json")
	require.NoError(t, runDaemon(fs, nil, ctx, io.Discard, io.Discard))
	assert.Equal(t, 2, saves)
}

func TestRunUsesFixedClockForSession(t *testing.T) {
	ctx := newTestContext(t, testKeymap)
	swapStdin(t, "")

	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)
	origTime := timeNow
	timeNow = func() time.Time { return now }
	defer func() { timeNow = origTime }()

	origHost := hostname
	hostname = func() (string, error) { return "test-host", nil }
	defer func() { hostname = origHost }()

	sessionPath := filepath.Join(t.TempDir(), "session.json")
	fs := parseFlags(t, newRunCommand(), "--source", "stdin", "--dry-run", "--session-file", sessionPath)
	require.NoError(t, runDaemon(fs, nil, ctx, io.Discard, io.Discard))

	man, err := session.Load(sessionPath)
	require.NoError(t, err)
	assert.Equal(t, "test-host", man.Hostname)
	assert.Equal(t, now, man.CreatedAt)
	require.NotNil(t, man.Status.StartedAt)
	assert.Equal(t, now, *man.Status.StartedAt)
}
