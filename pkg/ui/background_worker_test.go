package ui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/treegrid/pkg/loader"
)

const workerDoc = `root:
  name: plan
  children:
    - name: alpha
      fields: {owner: ana}
`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func newTestWorker(t *testing.T, path string, watch bool) *BackgroundWorker {
	t.Helper()
	worker, err := NewBackgroundWorker(WorkerConfig{
		DocPath:       path,
		DebounceDelay: 30 * time.Millisecond,
		Watch:         watch,
	})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	t.Cleanup(worker.Stop)
	return worker
}

func TestBackgroundWorker_NewWithoutPath(t *testing.T) {
	worker := newTestWorker(t, "", true)

	if worker.State() != WorkerIdle {
		t.Errorf("Expected idle state, got %v", worker.State())
	}
	if worker.Document() != nil {
		t.Error("Expected nil document initially")
	}
	if worker.WatcherChanged() != nil {
		t.Error("WatcherChanged should return nil when no watcher")
	}
}

func TestBackgroundWorker_StartStop(t *testing.T) {
	worker := newTestWorker(t, writeDoc(t, workerDoc), true)

	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := worker.Start(); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	worker.Stop()
	worker.Stop()

	if worker.State() != WorkerStopped {
		t.Errorf("Expected stopped state, got %v", worker.State())
	}
	worker.TriggerRefresh()
	if worker.Document() != nil {
		t.Error("a stopped worker should not load")
	}
}

func TestBackgroundWorker_TriggerRefresh(t *testing.T) {
	worker := newTestWorker(t, writeDoc(t, workerDoc), false)

	worker.TriggerRefresh()
	if !waitFor(t, 2*time.Second, func() bool { return worker.Document() != nil }) {
		t.Fatal("Expected document after refresh")
	}
	doc := worker.Document()
	if doc.Tree.Find("alpha") == nil {
		t.Error("loaded document is missing alpha")
	}
	if worker.LastError() != nil {
		t.Errorf("unexpected error: %v", worker.LastError())
	}
}

func TestBackgroundWorker_ContentHashDedup(t *testing.T) {
	worker := newTestWorker(t, writeDoc(t, workerDoc), false)

	worker.TriggerRefresh()
	if !waitFor(t, 2*time.Second, func() bool { return worker.Document() != nil }) {
		t.Fatal("Expected document after first refresh")
	}
	doc1 := worker.Document()
	hash1 := worker.LastHash()
	if hash1 == "" {
		t.Error("Expected non-empty hash after first refresh")
	}

	worker.TriggerRefresh()
	waitFor(t, time.Second, func() bool { return worker.State() == WorkerIdle })
	time.Sleep(50 * time.Millisecond)

	if worker.LastHash() != hash1 {
		t.Errorf("Hash changed unexpectedly: %s -> %s", hash1, worker.LastHash())
	}
	if worker.Document() != doc1 {
		t.Error("Document pointer changed when content was unchanged - dedup failed")
	}
}

func TestBackgroundWorker_ContentHashChanges(t *testing.T) {
	path := writeDoc(t, workerDoc)
	worker := newTestWorker(t, path, false)

	worker.TriggerRefresh()
	if !waitFor(t, 2*time.Second, func() bool { return worker.Document() != nil }) {
		t.Fatal("Expected document after first refresh")
	}
	doc1 := worker.Document()

	if err := os.WriteFile(path, []byte(workerDoc+"    - name: beta\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	worker.TriggerRefresh()
	if !waitFor(t, 2*time.Second, func() bool { return worker.Document() != doc1 }) {
		t.Fatal("Document should have been reloaded after the content changed")
	}
	if worker.Document().Tree.Find("beta") == nil {
		t.Error("reloaded document is missing beta")
	}
}

func TestBackgroundWorker_MarkWrittenSkipsOwnWrite(t *testing.T) {
	path := writeDoc(t, workerDoc)
	worker := newTestWorker(t, path, false)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	worker.MarkWritten(data)
	worker.TriggerRefresh()
	waitFor(t, time.Second, func() bool { return worker.State() == WorkerIdle })
	time.Sleep(50 * time.Millisecond)

	if worker.Document() != nil {
		t.Error("content announced with MarkWritten should not be reloaded")
	}

	worker.ResetHash()
	worker.TriggerRefresh()
	if !waitFor(t, 2*time.Second, func() bool { return worker.Document() != nil }) {
		t.Error("ResetHash should force the next load")
	}
}

func TestBackgroundWorker_ParseErrorRecorded(t *testing.T) {
	worker := newTestWorker(t, writeDoc(t, "root: [unclosed\n"), false)

	worker.TriggerRefresh()
	if !waitFor(t, 2*time.Second, func() bool { return worker.LastError() != nil }) {
		t.Fatal("expected a recorded error")
	}
	werr := worker.LastError()
	if werr.Phase != "parse" || werr.Retries != 1 {
		t.Errorf("error = %+v", werr)
	}
	if worker.Document() != nil {
		t.Error("a failed load should not replace the document")
	}
}

func TestBackgroundWorker_WatchesFile(t *testing.T) {
	path := writeDoc(t, workerDoc)
	worker := newTestWorker(t, path, true)
	if worker.WatcherChanged() == nil {
		t.Fatal("WatcherChanged should return non-nil channel")
	}
	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := os.WriteFile(path, []byte(workerDoc+"    - name: gamma\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, 3*time.Second, func() bool {
		doc := worker.Document()
		return doc != nil && doc.Tree.Find("gamma") != nil
	})
	if !ok {
		t.Fatal("expected the watcher to reload the changed document")
	}
}

func TestWorkerError_Unwrap(t *testing.T) {
	cause := loader.ErrUnsupportedFormat
	err := WorkerError{Phase: "read", Cause: cause, Retries: 2}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
	if err.Error() == "" {
		t.Error("Error should not be empty")
	}
}
