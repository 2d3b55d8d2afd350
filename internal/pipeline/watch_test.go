package pipeline

import (
	"testing"

	"github.com/kokorotts/kokoro/internal/queue"
)

func TestWatcherEnqueue(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewManager()
	w := NewWatcher(dir, q)

	path := writeDoc(t, dir, "new.txt", "fresh content")

	if !w.enqueue(path) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 job, got %d", q.Len())
	}

	select {
	case job := <-w.Added:
		if job.Name() != "new.txt" {
			t.Errorf("unexpected job: %s", job.Name())
		}
	default:
		t.Error("expected a notification on Added")
	}

	// Duplicates are done with, not retried.
	if !w.enqueue(path) {
		t.Error("duplicate should report handled")
	}
	if q.Len() != 1 {
		t.Errorf("duplicate was queued: %d jobs", q.Len())
	}
}

func TestWatcherEnqueueRetriesWhileLocked(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewManager()
	w := NewWatcher(dir, q)

	path := writeDoc(t, dir, "during-run.txt", "content")

	q.Lock()
	if w.enqueue(path) {
		t.Error("expected enqueue to defer while the queue is locked")
	}
	q.Unlock()

	if !w.enqueue(path) {
		t.Error("expected enqueue to succeed after unlock")
	}
	if q.Len() != 1 {
		t.Errorf("expected 1 job, got %d", q.Len())
	}
}

func TestWatcherEnqueueSkipsMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewManager()
	w := NewWatcher(dir, q)

	if !w.enqueue(dir + "/missing.txt") {
		t.Error("missing file should be dropped, not retried")
	}

	empty := writeDoc(t, dir, "empty.txt", "")
	if !w.enqueue(empty) {
		t.Error("empty file should be dropped, not retried")
	}

	if q.Len() != 0 {
		t.Errorf("expected no jobs, got %d", q.Len())
	}
}
