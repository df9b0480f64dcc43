package bindings

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events editors produce on save.
const DefaultDebounce = 150 * time.Millisecond

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// OnLoad receives every file that decoded cleanly. A returned error is
	// passed to OnError, and the caller keeps its previous keymap.
	OnLoad  func(*File) error
	OnError func(error)
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// Watcher reloads a keymap file when it changes. The parent directory is
// watched so that editors which save by renaming are picked up too.
type Watcher struct {
	path     string
	opts     WatchOptions
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher starts watching path's directory.
func NewWatcher(path string, opts WatchOptions) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve keymap path: %w", err)
	}
	if opts.OnLoad == nil {
		return nil, fmt.Errorf("watch %s: OnLoad is required", abs)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: abs, opts: opts, watcher: fsw, debounce: debounce}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run processes change events until ctx is cancelled, then releases the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.report(fmt.Errorf("watch keymap: %w", err))
		}
	}
}

func (w *Watcher) reload() {
	f, err := Load(w.path)
	if err != nil {
		w.report(err)
		return
	}
	if err := w.opts.OnLoad(f); err != nil {
		w.report(err)
	}
}

func (w *Watcher) report(err error) {
	if w.opts.OnError != nil {
		w.opts.OnError(err)
	}
}
