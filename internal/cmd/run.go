package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/offlinefirst/keymapd/internal/buildinfo"
	"github.com/offlinefirst/keymapd/pkg/bindings"
	"github.com/offlinefirst/keymapd/pkg/capture"
	"github.com/offlinefirst/keymapd/pkg/dispatch"
	"github.com/offlinefirst/keymapd/pkg/keys"
	"github.com/offlinefirst/keymapd/pkg/logging"
	"github.com/offlinefirst/keymapd/pkg/metrics"
	"github.com/offlinefirst/keymapd/pkg/pipeline"
	"github.com/offlinefirst/keymapd/pkg/session"
)

func newRunCommand() command {
	return command{
		name:        "run",
		description: "Start the remapping daemon",
		configure: func(fs *flag.FlagSet) {
			configureSourceFlag(fs)
			fs.String("keymap", "", "Keymap file to load (overrides keymap.path)")
			fs.Bool("dry-run", false, "Match keystrokes and report actions without performing them")
			fs.Bool("no-watch", false, "Do not reload the keymap when it changes")
			fs.String("session-file", "", "Write a JSON session manifest to this path")
		},
		run: runDaemon,
	}
}

var sessionSave = session.Save

// keymapState applies keymap files to a running daemon and tracks what was
// loaded for the session manifest.
type keymapState struct {
	daemon  *pipeline.Daemon
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	modes    []string
	bindings int
	reloads  int
}

func (k *keymapState) apply(f *bindings.File) error {
	table, err := f.Table()
	if err != nil {
		return err
	}
	k.daemon.Load(table)
	k.metrics.ObserveReload(table.Len(), nil)

	k.mu.Lock()
	k.modes = table.Modes()
	k.bindings = table.Len()
	k.reloads++
	reloads := k.reloads
	k.mu.Unlock()

	k.logger.Info("keymap loaded", "path", f.Path, "bindings", table.Len(), "modes", table.Modes(), "loads", reloads)
	return nil
}

func (k *keymapState) reloadFailed(err error) {
	k.metrics.ObserveReload(0, err)
	k.logger.Warn("keymap reload failed, keeping previous bindings", "error", err)
}

func (k *keymapState) record(man *session.Manifest) {
	k.mu.Lock()
	defer k.mu.Unlock()
	man.Keymap.Modes = append([]string(nil), k.modes...)
	man.Keymap.Bindings = k.bindings
	// The initial load is not a reload.
	man.Keymap.Reloads = k.reloads - 1
	if man.Keymap.Reloads < 0 {
		man.Keymap.Reloads = 0
	}
}

func runDaemon(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	cfg := ctx.Config
	if path := stringFlag(fs, "keymap"); path != "" {
		cfg.Keymap.Path = path
	}
	if boolFlag(fs, "no-watch") {
		cfg.Keymap.Watch = false
	}
	dryRun := boolFlag(fs, "dry-run")
	sessionPath := stringFlag(fs, "session-file")

	consume, err := pipeline.ParseConsumePolicy(cfg.Capture.Consume)
	if err != nil {
		return err
	}
	quitChord, err := cfg.QuitChord()
	if err != nil {
		return err
	}
	src, sourceName, err := openSource(stringFlag(fs, "source"), ctx.Logger)
	if err != nil {
		return err
	}

	reg := metrics.New()
	daemon := pipeline.NewDaemon(pipeline.Options{
		Logger:  ctx.Logger,
		Metrics: reg,
		Consume: consume,
		Strict:  cfg.Keymap.Strict,
	})
	daemon.SetQuitChord(quitChord)

	recordedShell := &dispatch.RecordingRunner{}
	recordedKeys := &capture.RecordingPoster{}
	dispatcher := &dispatch.Dispatcher{
		Modes:   daemon,
		Logger:  ctx.Logger,
		Metrics: reg,
	}
	if dryRun {
		dispatcher.Shell = recordedShell
		dispatcher.Poster = recordedKeys
	} else {
		dispatcher.Shell = dispatch.ExecRunner{
			Shell:   cfg.Dispatch.Shell,
			Timeout: time.Duration(cfg.Dispatch.TimeoutSeconds) * time.Second,
		}
		dispatcher.Poster = newPoster()
	}
	daemon.SetDispatcher(dispatcher)

	state := &keymapState{daemon: daemon, metrics: reg, logger: ctx.Logger}
	file, err := bindings.Load(cfg.Keymap.Path)
	if err != nil {
		return fmt.Errorf("load keymap: %w", err)
	}
	if err := state.apply(file); err != nil {
		return fmt.Errorf("load keymap: %w", err)
	}

	var manifest *session.Manifest
	if sessionPath != "" {
		host, err := hostname()
		if err != nil {
			host = "unknown"
		}
		man := session.New(session.Options{
			SessionID:  ulid.Make().String(),
			PID:        getpid(),
			CreatedAt:  timeNow(),
			Hostname:   host,
			AppVersion: buildinfo.Version(),
			Config:     cfg,
			Source:     sourceName,
			DryRun:     dryRun,
		})
		manifest = &man
	}
	saveManifest := func() {
		if manifest == nil {
			return
		}
		state.record(manifest)
		manifest.Status.Mode = daemon.Mode()
		if err := sessionSave(*manifest, sessionPath); err != nil {
			ctx.Logger.Warn("write session manifest failed", "path", sessionPath, "error", err)
		}
	}

	sigCtx, stopSignals := notifyContext(context.Background())
	defer stopSignals()
	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		defer cancel()
		return daemon.Run(groupCtx, src)
	})

	if cfg.Keymap.Watch {
		watcher, err := bindings.NewWatcher(cfg.Keymap.Path, bindings.WatchOptions{
			OnLoad:  state.apply,
			OnError: state.reloadFailed,
		})
		if err != nil {
			ctx.Logger.Warn("keymap watch disabled", "path", cfg.Keymap.Path, "error", err)
		} else {
			ctx.Logger.Info("watching keymap", "path", watcher.Path())
			group.Go(func() error { return watcher.Run(groupCtx) })
		}
	}

	if cfg.Metrics.Listen != "" {
		ctx.Logger.Info("metrics listener enabled", "addr", cfg.Metrics.Listen)
		group.Go(func() error { return reg.Serve(groupCtx, cfg.Metrics.Listen) })
	}

	group.Go(func() error {
		handleControlSignals(groupCtx, daemon, ctx)
		return nil
	})

	if manifest != nil {
		manifest.Transition(session.StateRunning, "", timeNow())
		saveManifest()
	}

	ctx.Logger.Info("daemon started", "source", sourceName, "keymap", cfg.Keymap.Path, "dry_run", dryRun, "consume", string(consume))
	runErr := group.Wait()

	termination := session.TerminationSourceEnd
	switch {
	case runErr != nil:
		termination = session.TerminationError
	case sigCtx.Err() != nil:
		termination = session.TerminationSignal
	case daemon.Stopped():
		termination = session.TerminationQuit
	}
	ctx.Logger.Info("daemon stopped", "termination", termination)

	if manifest != nil {
		if runErr != nil {
			manifest.Status.Summary = runErr.Error()
			manifest.Transition(session.StateFailed, termination, timeNow())
		} else {
			manifest.Transition(session.StateCompleted, termination, timeNow())
		}
		manifest.Status.Termination = termination
		saveManifest()
	}

	if dryRun {
		dispatcher.Wait()
		printDryRun(stdout, daemon.Snapshot(), recordedShell.Commands(), recordedKeys.Posted())
	}

	if runErr != nil {
		return fmt.Errorf("run daemon: %w", runErr)
	}
	return nil
}

// handleControlSignals toggles pause and debug logging until ctx ends.
func handleControlSignals(ctx context.Context, daemon *pipeline.Daemon, app *AppContext) {
	signals, stop := notifyControl()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			switch sig {
			case pauseSignal:
				app.Logger.Info("pause toggled", "paused", daemon.TogglePause())
			case debugSignal:
				if app.LevelVar == nil {
					continue
				}
				level := logging.ToggleDebug(app.LevelVar, app.BaseLevel())
				app.Logger.Info("log level changed", "level", level.String())
			}
		}
	}
}

func printDryRun(stdout io.Writer, snap pipeline.Snapshot, commands []string, sent []keys.KeySpec) {
	fmt.Fprintf(stdout, "Dry run finished in mode %q (%d bindings)\n", snap.Mode, snap.Bindings)
	fmt.Fprintf(stdout, "Shell commands: %d\n", len(commands))
	for _, line := range commands {
		fmt.Fprintf(stdout, "  $ %s\n", line)
	}
	fmt.Fprintf(stdout, "Keys sent: %d\n", len(sent))
	for _, key := range sent {
		fmt.Fprintf(stdout, "  %s\n", key)
	}
	if snap.LastAction != nil {
		fmt.Fprintf(stdout, "Last action: %s\n", snap.LastAction)
	}
	if len(snap.Partial) > 0 {
		fmt.Fprintf(stdout, "Unfinished sequence: %s\n", snap.Partial)
	}
}
