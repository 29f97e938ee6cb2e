// This file implements the BackgroundWorker that reloads the document off
// the UI thread when it changes on disk.
package ui

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"

	"github.com/vanderheijden86/treegrid/pkg/loader"
	"github.com/vanderheijden86/treegrid/pkg/watcher"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is loading the document.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "read", "parse"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Number of consecutive failures
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// DocumentReadyMsg is sent to the UI when a changed document was loaded.
type DocumentReadyMsg struct {
	Doc  *loader.Document
	Hash string
}

// DocumentErrorMsg is sent to the UI when reloading fails.
type DocumentErrorMsg struct {
	Err         error
	Recoverable bool // True if we expect to recover on next file change
}

// BackgroundWorker owns the file watcher, coalesces change bursts and loads
// the document off the UI thread. Content identical to the last load or to
// a write announced with MarkWritten is skipped.
type BackgroundWorker struct {
	docPath       string
	debounceDelay time.Duration

	mu       sync.RWMutex
	state    WorkerState
	dirty    bool // a change came in while processing
	doc      *loader.Document
	started  bool
	lastHash string

	lastError  *WorkerError
	errorCount int

	watcher *watcher.Watcher
	program *tea.Program

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	DocPath       string
	DebounceDelay time.Duration
	Program       *tea.Program
	// Watch enables the file watcher. Without it the worker only loads on
	// TriggerRefresh.
	Watch bool
}

// NewBackgroundWorker creates a new background worker.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = watcher.DefaultDebounce
	}

	w := &BackgroundWorker{
		docPath:       cfg.DocPath,
		debounceDelay: cfg.DebounceDelay,
		program:       cfg.Program,
		state:         WorkerIdle,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	if cfg.DocPath != "" && cfg.Watch {
		fw, err := watcher.NewWatcher(cfg.DocPath,
			watcher.WithDebounceDuration(cfg.DebounceDelay),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}

	return w, nil
}

// SetProgram sets the program that receives DocumentReadyMsg and
// DocumentErrorMsg. The program is usually created after the worker because
// the model holds the worker.
func (w *BackgroundWorker) SetProgram(p *tea.Program) {
	w.mu.Lock()
	w.program = p
	w.mu.Unlock()
}

// Start begins watching for file changes. Start is idempotent.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher != nil {
		if err := w.watcher.Start(); err != nil {
			return err
		}
		go w.processLoop()
	} else {
		// No watcher - close done channel immediately so Stop() doesn't block
		close(w.done)
	}
	return nil
}

// Stop halts the worker and the watcher. Stop is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()

	if w.watcher != nil {
		w.watcher.Stop()
	}

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// TriggerRefresh loads the document now. While a load is running the
// request is folded into a second pass.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	go w.process()
}

// MarkWritten records data as the current content so the change event
// caused by writing it is not reloaded.
func (w *BackgroundWorker) MarkWritten(data []byte) {
	w.mu.Lock()
	w.lastHash = contentHash(data)
	w.mu.Unlock()
}

// Document returns the last loaded document (may be nil).
func (w *BackgroundWorker) Document() *loader.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.doc
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *BackgroundWorker) processLoop() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.process()
		}
	}
}

func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	doc, hash := w.loadDocument()

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if doc != nil {
		w.doc = doc
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	program := w.program
	w.mu.Unlock()

	if program != nil && doc != nil {
		program.Send(DocumentReadyMsg{Doc: doc, Hash: hash})
	}

	if wasDirty {
		go w.process()
	}
}

// safeCompute executes fn and recovers from any panics.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: errors.Newf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{
				Phase: phase,
				Cause: err,
				Time:  time.Now(),
			}
		}
	}()
	return result
}

// recordError tracks an error and updates error state.
func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// LastError returns the most recent error (nil if last operation succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

func (w *BackgroundWorker) fail(err *WorkerError) {
	log.Printf("reload: %s: %v", w.docPath, err)
	w.recordError(err)
	w.mu.RLock()
	program := w.program
	w.mu.RUnlock()
	if program != nil {
		program.Send(DocumentErrorMsg{Err: err, Recoverable: true})
	}
}

// loadDocument reads and parses the document. It returns nil when the path
// is empty, loading fails, or the content is unchanged.
func (w *BackgroundWorker) loadDocument() (*loader.Document, string) {
	if w.docPath == "" {
		return nil, ""
	}
	start := time.Now()

	var data []byte
	if werr := w.safeCompute("read", func() error {
		var err error
		data, err = os.ReadFile(w.docPath)
		return err
	}); werr != nil {
		w.fail(werr)
		return nil, ""
	}

	hash := contentHash(data)
	w.mu.RLock()
	lastHash := w.lastHash
	w.mu.RUnlock()
	if hash == lastHash {
		log.Printf("reload: content unchanged (hash=%s), skipping", hashPrefix(hash))
		w.recordError(nil)
		return nil, ""
	}

	var doc *loader.Document
	if werr := w.safeCompute("parse", func() error {
		var err error
		doc, err = loader.Decode(w.docPath, data)
		return err
	}); werr != nil {
		w.fail(werr)
		return nil, ""
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	log.Printf("reload: loaded %s (%d bytes, %v, hash=%s)", w.docPath, len(data), time.Since(start), hashPrefix(hash))
	return doc, hash
}

// WatcherChanged returns the watcher's change notification channel.
func (w *BackgroundWorker) WatcherChanged() <-chan struct{} {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Changed()
}

// LastHash returns the content hash of the last loaded or written document.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// ResetHash clears the stored content hash, forcing the next load to
// deliver a document even if the content is unchanged.
func (w *BackgroundWorker) ResetHash() {
	w.mu.Lock()
	w.lastHash = ""
	w.mu.Unlock()
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashPrefix returns up to 16 characters of hash for logging.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
