//go:build unix

package cmd

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/offlinefirst/keymapd/pkg/pipeline"
)

func TestHandleControlSignals(t *testing.T) {
	signals := make(chan os.Signal, 1)
	orig := notifyControl
	notifyControl = func() (<-chan os.Signal, func()) { return signals, func() {} }
	t.Cleanup(func() { notifyControl = orig })

	app := &AppContext{Logger: newTestLogger(), LevelVar: new(slog.LevelVar)}
	app.Config.Logging.Level = "info"
	daemon := pipeline.NewDaemon(pipeline.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		handleControlSignals(ctx, daemon, app)
		close(done)
	}()

	signals <- pauseSignal
	assert.Eventually(t, func() bool { return daemon.Snapshot().Paused }, time.Second, 5*time.Millisecond)

	signals <- debugSignal
	assert.Eventually(t, func() bool { return app.LevelVar.Level() == slog.LevelDebug }, time.Second, 5*time.Millisecond)

	signals <- debugSignal
	assert.Eventually(t, func() bool { return app.LevelVar.Level() == slog.LevelInfo }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("signal handler did not exit")
	}
}
