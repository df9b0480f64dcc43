// Package dispatch performs the actions bound to key sequences.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/offlinefirst/keymapd/pkg/capture"
	"github.com/offlinefirst/keymapd/pkg/keys"
	"github.com/offlinefirst/keymapd/pkg/logging"
	"github.com/offlinefirst/keymapd/pkg/metrics"
)

// ModeSwitcher changes the active keymap mode.
type ModeSwitcher interface {
	SwitchMode(name string) error
}

// ErrUnsupportedAction is returned when the dispatcher lacks the component
// an action needs.
var ErrUnsupportedAction = errors.New("unsupported action")

// Dispatcher routes actions to the shell, the key poster or the daemon.
// Shell commands run in the background so a slow command never stalls key
// matching; Wait blocks until they finish.
type Dispatcher struct {
	Shell   ShellRunner
	Poster  capture.Poster
	Modes   ModeSwitcher
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	wg sync.WaitGroup
}

// Dispatch performs action. For shell actions it returns once the command
// has been started; failures are logged when it completes.
func (d *Dispatcher) Dispatch(ctx context.Context, action keys.KeyAction) error {
	id := ulid.Make().String()
	logger := d.logger().With("dispatch_id", id, "kind", action.Kind.String())

	switch action.Kind {
	case keys.ActionNop:
		logger.Debug("nop action")
		return nil
	case keys.ActionShell:
		if d.Shell == nil {
			return fmt.Errorf("%w: no shell runner for %s", ErrUnsupportedAction, action)
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runShell(context.WithoutCancel(ctx), logger, action.Command)
		}()
		return nil
	case keys.ActionSendKey:
		if d.Poster == nil {
			return fmt.Errorf("%w: no key poster for %s", ErrUnsupportedAction, action)
		}
		start := time.Now()
		err := d.Poster.Post(action.Key)
		d.Metrics.ObserveDispatch(action.Kind.String(), time.Since(start), err)
		if err != nil {
			return fmt.Errorf("send %s: %w", action.Key, err)
		}
		logger.Debug("key sent", "key", action.Key)
		return nil
	case keys.ActionModeChange:
		if d.Modes == nil {
			return fmt.Errorf("%w: no mode switcher for %s", ErrUnsupportedAction, action)
		}
		start := time.Now()
		err := d.Modes.SwitchMode(action.Mode)
		d.Metrics.ObserveDispatch(action.Kind.String(), time.Since(start), err)
		if err != nil {
			return fmt.Errorf("switch to mode %q: %w", action.Mode, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: kind %d", ErrUnsupportedAction, action.Kind)
	}
}

func (d *Dispatcher) runShell(ctx context.Context, logger *slog.Logger, command string) {
	logger.Info("running command", "command", command)
	res, err := d.Shell.Run(ctx, command)
	d.Metrics.ObserveDispatch(keys.ActionShell.String(), res.Duration, err)
	if err != nil {
		logger.Error("command failed", "command", command, "exit_code", res.ExitCode, "output", res.Output, "error", err)
		return
	}
	logger.Debug("command finished", "command", command, "duration", res.Duration, "output", res.Output)
}

// Wait blocks until every started shell command has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return logging.Discard()
	}
	return d.Logger
}
