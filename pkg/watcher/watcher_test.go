package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newStartedWatcher(t *testing.T, path string, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(path, WithDebounceDuration(debounce), WithErrorHandler(func(err error) {
		t.Logf("watch error: %v", err)
	}))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func waitChanged(w *Watcher, timeout time.Duration) bool {
	select {
	case <-w.Changed():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcherReportsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	if err := os.WriteFile(path, []byte("root: {name: a}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := newStartedWatcher(t, path, 20*time.Millisecond)

	if err := os.WriteFile(path, []byte("root: {name: b}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitChanged(w, 2*time.Second) {
		t.Fatal("expected a change notification")
	}
}

// TestWatcherCoalescesBursts verifies a burst of writes yields one signal
func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w := newStartedWatcher(t, path, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if !waitChanged(w, 2*time.Second) {
		t.Fatal("expected a change notification")
	}
	if waitChanged(w, 300*time.Millisecond) {
		t.Error("burst produced more than one notification")
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w := newStartedWatcher(t, path, 20*time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if waitChanged(w, 200*time.Millisecond) {
		t.Error("a sibling file should not trigger a change")
	}
}

func TestWatcherSeesRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w := newStartedWatcher(t, path, 20*time.Millisecond)

	tmp := filepath.Join(dir, ".doc.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if !waitChanged(w, 2*time.Second) {
		t.Fatal("expected a change after an atomic save")
	}
}

func TestWatcherLifecycle(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(filepath.Join(dir, "doc.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Errorf("second Start: %v", err)
	}
	w.Stop()
	w.Stop()
	if err := w.Start(); err == nil {
		t.Error("Start after Stop should fail")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "doc.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	err = w.Start()
	var we WatchError
	if !errors.As(err, &we) || we.Op != "add" {
		t.Errorf("expected an add WatchError, got %v", err)
	}
}
