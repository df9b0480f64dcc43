package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/keymapd/pkg/capture"
	"github.com/offlinefirst/keymapd/pkg/keys"
	"github.com/offlinefirst/keymapd/pkg/metrics"
)

type fakeModes struct {
	mu       sync.Mutex
	switched []string
	err      error
}

func (f *fakeModes) SwitchMode(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.switched = append(f.switched, name)
	return nil
}

func withoutShellEnv(t *testing.T) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(string) (string, bool) { return "", false }
	t.Cleanup(func() { lookupEnv = orig })
}

func TestDispatchRoutesActions(t *testing.T) {
	runner := &RecordingRunner{}
	poster := &capture.RecordingPoster{}
	modes := &fakeModes{}
	d := &Dispatcher{Shell: runner, Poster: poster, Modes: modes, Metrics: metrics.New()}
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, keys.Nop()))
	require.NoError(t, d.Dispatch(ctx, keys.ShellCommand("notify owo yee")))
	require.NoError(t, d.Dispatch(ctx, keys.SendKey(keys.MustParseKeySpec("Cmd+Ctrl+Q"))))
	require.NoError(t, d.Dispatch(ctx, keys.ModeChange("insert")))
	d.Wait()

	assert.Equal(t, []string{"notify owo yee"}, runner.Commands())
	assert.Equal(t, []keys.KeySpec{keys.MustParseKeySpec("Cmd+Ctrl+Q")}, poster.Posted())
	assert.Equal(t, []string{"insert"}, modes.switched)
}

func TestDispatchMissingComponents(t *testing.T) {
	d := &Dispatcher{}
	ctx := context.Background()
	assert.NoError(t, d.Dispatch(ctx, keys.Nop()))
	assert.ErrorIs(t, d.Dispatch(ctx, keys.ShellCommand("true")), ErrUnsupportedAction)
	assert.ErrorIs(t, d.Dispatch(ctx, keys.SendKey(keys.MustParseKeySpec("A"))), ErrUnsupportedAction)
	assert.ErrorIs(t, d.Dispatch(ctx, keys.ModeChange("x")), ErrUnsupportedAction)
	assert.ErrorIs(t, d.Dispatch(ctx, keys.KeyAction{Kind: keys.ActionKind(99)}), ErrUnsupportedAction)
}

func TestDispatchPropagatesErrors(t *testing.T) {
	missing := errors.New("no such mode")
	d := &Dispatcher{
		Poster: capture.PosterFunc(func(keys.KeySpec) error { return capture.ErrPostUnsupported }),
		Modes:  &fakeModes{err: missing},
	}
	assert.ErrorIs(t, d.Dispatch(context.Background(), keys.SendKey(keys.MustParseKeySpec("A"))), capture.ErrPostUnsupported)
	assert.ErrorIs(t, d.Dispatch(context.Background(), keys.ModeChange("ghost")), missing)
}

func TestDispatchShellOutlivesCancelledContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var gotErr error
	runner := shellFunc(func(ctx context.Context, command string) (Result, error) {
		close(started)
		<-release
		gotErr = ctx.Err()
		return Result{}, nil
	})
	d := &Dispatcher{Shell: runner}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, keys.ShellCommand("long")))
	<-started
	cancel()
	close(release)
	d.Wait()
	assert.NoError(t, gotErr)
}

type shellFunc func(ctx context.Context, command string) (Result, error)

func (f shellFunc) Run(ctx context.Context, command string) (Result, error) {
	return f(ctx, command)
}

func TestExecRunnerWithShell(t *testing.T) {
	r := ExecRunner{Shell: "/bin/sh", Timeout: 5 * time.Second}

	res, err := r.Run(context.Background(), "echo hello; echo oops >&2")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "hello")
	assert.Contains(t, res.Output, "oops")

	res, err = r.Run(context.Background(), "exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestExecRunnerEnv(t *testing.T) {
	r := ExecRunner{Shell: "/bin/sh", Env: []string{"KEYMAPD_TEST_VALUE=chord"}}
	res, err := r.Run(context.Background(), "echo $KEYMAPD_TEST_VALUE")
	require.NoError(t, err)
	assert.Equal(t, "chord", res.Output)
}

func TestExecRunnerTimeout(t *testing.T) {
	r := ExecRunner{Shell: "/bin/sh", Timeout: 50 * time.Millisecond}
	start := time.Now()
	_, err := r.Run(context.Background(), "sleep 5")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecRunnerSplitsWithoutShell(t *testing.T) {
	withoutShellEnv(t)
	r := ExecRunner{}

	res, err := r.Run(context.Background(), `echo "hello   world"`)
	require.NoError(t, err)
	assert.Equal(t, "hello   world", res.Output)

	_, err = r.Run(context.Background(), `echo "unterminated`)
	assert.Error(t, err)

	_, err = r.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestExecRunnerUsesShellEnv(t *testing.T) {
	orig := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		if key == "SHELL" {
			return "/bin/sh", true
		}
		return "", false
	}
	t.Cleanup(func() { lookupEnv = orig })

	argv, err := ExecRunner{}.argv("echo a | tr a b")
	require.NoError(t, err)
	assert.Equal(t, []string{"/bin/sh", "-c", "echo a | tr a b"}, argv)

	argv, err = ExecRunner{Shell: "/bin/zsh"}.argv("ls")
	require.NoError(t, err)
	assert.Equal(t, []string{"/bin/zsh", "-c", "ls"}, argv)
}

func TestTruncate(t *testing.T) {
	long := make([]byte, maxOutput+10)
	for i := range long {
		long[i] = 'x'
	}
	got := truncate(string(long))
	assert.Len(t, []rune(got), maxOutput+1)
	assert.Equal(t, "short", truncate("  short \n"))
}
