package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/offlinefirst/keymapd/pkg/capture"
	"github.com/offlinefirst/keymapd/pkg/keymap"
	"github.com/offlinefirst/keymapd/pkg/keys"
	"github.com/offlinefirst/keymapd/pkg/logging"
	"github.com/offlinefirst/keymapd/pkg/metrics"
)

// ErrQuit is raised internally when the quit chord is pressed. Run turns it
// into a clean nil return.
var ErrQuit = errors.New("quit chord pressed")

// DefaultQuitChord stops the daemon. It is always forwarded, never matched.
var DefaultQuitChord = keys.Chord(keys.KeyF5, keys.Ctrl, keys.Alt, keys.Cmd, keys.Fn)

// Dispatcher performs resolved actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, action keys.KeyAction) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, action keys.KeyAction) error

// Dispatch calls the underlying function.
func (f DispatcherFunc) Dispatch(ctx context.Context, action keys.KeyAction) error {
	return f(ctx, action)
}

// ConsumePolicy decides whether queued keystrokes are swallowed.
type ConsumePolicy string

const (
	// ConsumeAll swallows every queued keystroke once a binding exists.
	ConsumeAll ConsumePolicy = "all"
	// ConsumeNone forwards everything; bindings fire alongside normal typing.
	ConsumeNone ConsumePolicy = "none"
)

// ParseConsumePolicy validates a policy name. Empty means ConsumeAll.
func ParseConsumePolicy(value string) (ConsumePolicy, error) {
	switch ConsumePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", ConsumeAll:
		return ConsumeAll, nil
	case ConsumeNone:
		return ConsumeNone, nil
	default:
		return "", fmt.Errorf("unsupported consume policy %q", value)
	}
}

// Options configures a Daemon.
type Options struct {
	Dispatcher Dispatcher
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Consume    ConsumePolicy
	Strict     bool
}

// Snapshot is a consistent view of the daemon state.
type Snapshot struct {
	Mode     string
	State    keymap.State
	Partial  keys.KeySequence
	Modes    []string
	Bindings int
	Paused   bool
	// LastAction is the action of the most recent resolved sequence, nil
	// until one resolves or after a keymap reload.
	LastAction *keys.KeyAction
}

// Daemon owns the matcher and the queue between capture and dispatch. Every
// exported method is safe for concurrent use.
type Daemon struct {
	mu     sync.Mutex
	engine *keymap.Engine

	queue      *Queue[capture.Event]
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	consume    ConsumePolicy

	quit     atomic.Value
	paused   atomic.Bool
	bindings atomic.Int64

	quitOnce sync.Once
	quitCh   chan struct{}
}

// NewDaemon returns a daemon with an empty keymap.
func NewDaemon(opts Options) *Daemon {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	consume := opts.Consume
	if consume == "" {
		consume = ConsumeAll
	}
	engine := keymap.NewEngine(nil)
	if opts.Strict {
		engine.SetPolicy(keymap.BindStrict)
	}
	d := &Daemon{
		engine:     engine,
		queue:      NewQueue[capture.Event](),
		dispatcher: opts.Dispatcher,
		logger:     logger,
		metrics:    opts.Metrics,
		consume:    consume,
		quitCh:     make(chan struct{}),
	}
	d.quit.Store(DefaultQuitChord)
	return d
}

// SetQuitChord changes the quit chord. keys.None disables it.
func (d *Daemon) SetQuitChord(chord keys.KeySpec) {
	d.quit.Store(chord)
}

// QuitChord returns the active quit chord.
func (d *Daemon) QuitChord() keys.KeySpec {
	return d.quit.Load().(keys.KeySpec)
}

// SetDispatcher replaces the dispatcher. Call it before Run.
func (d *Daemon) SetDispatcher(dispatcher Dispatcher) {
	d.mu.Lock()
	d.dispatcher = dispatcher
	d.mu.Unlock()
}

// Register binds seq to action in mode.
func (d *Daemon) Register(seq keys.KeySequence, action keys.KeyAction, mode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.engine.Register(seq, action, mode); err != nil {
		return err
	}
	d.countBindings()
	return nil
}

// Unregister removes the binding for seq in mode.
func (d *Daemon) Unregister(seq keys.KeySequence, mode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.engine.Unregister(seq, mode); err != nil {
		return err
	}
	d.countBindings()
	return nil
}

// AddMode creates a mode.
func (d *Daemon) AddMode(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.AddMode(name)
}

// RemoveMode deletes a mode and its bindings.
func (d *Daemon) RemoveMode(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.engine.RemoveMode(name); err != nil {
		return err
	}
	d.countBindings()
	return nil
}

// SwitchMode activates a mode, dropping partial input.
func (d *Daemon) SwitchMode(name string) error {
	d.mu.Lock()
	err := d.engine.SwitchMode(name)
	mode := d.engine.Mode()
	d.mu.Unlock()
	if err != nil {
		return err
	}
	d.metrics.ObserveModeSwitch(mode)
	d.logger.Info("mode switched", "mode", mode)
	return nil
}

// Reset abandons partial input and returns the discarded chords.
func (d *Daemon) Reset() keys.KeySequence {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Reset()
}

// Feed passes one chord to the engine.
func (d *Daemon) Feed(key keys.KeySpec) (keys.KeyAction, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.MakeInput(key)
}

// Load swaps in a complete table, keeping the active mode when it survives.
func (d *Daemon) Load(table *keymap.ModeTable) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.Replace(table)
	d.countBindings()
}

// Mode returns the active mode name.
func (d *Daemon) Mode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Mode()
}

// Snapshot captures the current state.
func (d *Daemon) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := Snapshot{
		Mode:     d.engine.Mode(),
		State:    d.engine.State(),
		Partial:  d.engine.Partial(),
		Modes:    d.engine.Modes().Modes(),
		Bindings: d.engine.Modes().Len(),
		Paused:   d.paused.Load(),
	}
	if leaf, ok := d.engine.LastResolved(); ok {
		action := leaf.Action
		snap.LastAction = &action
	}
	return snap
}

// Pause stops remapping: events are forwarded and nothing is queued.
func (d *Daemon) Pause() {
	if !d.paused.Swap(true) {
		d.logger.Info("remapping paused")
	}
}

// Resume undoes Pause.
func (d *Daemon) Resume() {
	if d.paused.Swap(false) {
		d.logger.Info("remapping resumed")
	}
}

// TogglePause flips the paused state and reports the new value.
func (d *Daemon) TogglePause() bool {
	if d.paused.Load() {
		d.Resume()
		return false
	}
	d.Pause()
	return true
}

// Stop asks a running daemon to exit, as the quit chord does.
func (d *Daemon) Stop() {
	d.quitOnce.Do(func() {
		close(d.quitCh)
	})
}

// Stopped reports whether Stop was called or the quit chord pressed.
func (d *Daemon) Stopped() bool {
	select {
	case <-d.quitCh:
		return true
	default:
		return false
	}
}

// countBindings must be called with d.mu held.
func (d *Daemon) countBindings() {
	d.bindings.Store(int64(d.engine.Modes().Len()))
}

// Capture is the source handler. It never blocks.
func (d *Daemon) Capture(ev capture.Event) capture.Verdict {
	verdict := d.classify(ev)
	d.metrics.ObserveEvent(verdict.String())
	return verdict
}

func (d *Daemon) classify(ev capture.Event) capture.Verdict {
	if ev.Synthetic || ev.Type != capture.EventKeyDown || ev.Key.IsModifierOnly() {
		return capture.Forward
	}
	if quit := d.QuitChord(); !quit.IsNone() && ev.Key == quit {
		d.Stop()
		return capture.Forward
	}
	if d.paused.Load() {
		return capture.Forward
	}
	if !d.queue.Push(ev) {
		return capture.Forward
	}
	d.metrics.SetQueueDepth(d.queue.Len())
	if d.consume == ConsumeAll && d.bindings.Load() > 0 {
		return capture.Consume
	}
	return capture.Forward
}

// Run streams src into the matcher until ctx is cancelled, the quit chord
// is pressed or the source ends. A daemon runs at most once.
func (d *Daemon) Run(ctx context.Context, src capture.Source) error {
	if src == nil {
		return errors.New("pipeline: nil source")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := src.Stream(groupCtx, d.Capture)
		d.queue.Close()
		if err != nil && !isCancellation(err) {
			return fmt.Errorf("capture: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		err := d.consumeLoop(groupCtx)
		cancel()
		return err
	})

	group.Go(func() error {
		select {
		case <-d.quitCh:
			return ErrQuit
		case <-groupCtx.Done():
			return nil
		}
	})

	d.logger.Info("pipeline started", "mode", d.Mode(), "consume", string(d.consume), "quit_chord", d.QuitChord())
	err := group.Wait()
	if errors.Is(err, ErrQuit) {
		d.logger.Info("quit chord received, stopping")
		return nil
	}
	return err
}

func (d *Daemon) consumeLoop(ctx context.Context) error {
	for {
		ev, err := d.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || isCancellation(err) {
				return nil
			}
			return err
		}
		d.metrics.SetQueueDepth(d.queue.Len())
		d.process(ctx, ev.Key)
	}
}

// process matches one chord and dispatches the result with the lock released.
func (d *Daemon) process(ctx context.Context, key keys.KeySpec) {
	d.mu.Lock()
	action, resolved, err := d.engine.MakeInput(key)
	var discarded keys.KeySequence
	if errors.Is(err, keymap.ErrKeyNotFound) {
		discarded = d.engine.Reset()
	}
	mode := d.engine.Mode()
	dispatcher := d.dispatcher
	d.mu.Unlock()

	switch {
	case errors.Is(err, keymap.ErrKeyNotFound):
		d.metrics.ObserveKeyNotFound()
		d.logger.Debug("no binding", "key", key, "mode", mode, "discarded", discarded)
		return
	case err != nil:
		d.logger.Warn("match failed", "key", key, "mode", mode, "error", err)
		return
	case !resolved:
		d.logger.Debug("sequence pending", "key", key, "mode", mode)
		return
	}

	d.metrics.ObserveResolved(action.Kind.String())
	d.logger.Debug("sequence resolved", "key", key, "mode", mode, "action", action)
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Dispatch(ctx, action); err != nil {
		d.logger.Error("dispatch failed", "action", action, "error", err)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
