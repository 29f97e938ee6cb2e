// Package watcher reports debounced changes to a single file.
//
// The watcher observes the file's directory rather than the file itself, so
// editors that save by writing a temp file and renaming it over the original
// are still seen.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of file events.
const DefaultDebounce = 200 * time.Millisecond

// WatchError wraps an fsnotify failure with the operation that hit it.
type WatchError struct {
	Op    string // "create", "add", "watch"
	Path  string
	Cause error
}

func (e WatchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

func (e WatchError) Unwrap() error {
	return e.Cause
}

// Watcher signals on Changed after the watched file was written, created,
// renamed or removed and then stayed quiet for the debounce interval.
type Watcher struct {
	path     string
	debounce time.Duration
	onError  func(error)

	fsw     *fsnotify.Watcher
	changed chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the quiet period before a change is reported.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler receives fsnotify errors. The default logs them.
func WithErrorHandler(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// NewWatcher creates a watcher for path. Call Start to begin watching.
func NewWatcher(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, WatchError{Op: "create", Path: abs, Cause: err}
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     filepath.Clean(abs),
		debounce: DefaultDebounce,
		onError: func(err error) {
			log.Printf("warning: file watcher: %v", err)
		},
		fsw:     fsw,
		changed: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Changed delivers one value per debounced burst of changes. Signals that are
// not consumed coalesce.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Start begins watching. It is idempotent.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return errors.New("watcher already stopped")
	}
	if w.started {
		return nil
	}
	dir := filepath.Dir(w.path)
	if err := w.fsw.Add(dir); err != nil {
		return WatchError{Op: "add", Path: dir, Cause: err}
	}
	w.started = true
	go w.loop()
	return nil
}

// Stop halts the watcher and releases its resources. It is idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	wasStarted := w.started
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.cancel()
	_ = w.fsw.Close()
	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(WatchError{Op: "watch", Path: w.path, Cause: err})
			}
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
