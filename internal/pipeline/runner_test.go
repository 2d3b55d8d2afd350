package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kokorotts/kokoro/internal/cache"
	"github.com/kokorotts/kokoro/internal/queue"
	"github.com/kokorotts/kokoro/internal/tts"
	"github.com/kokorotts/kokoro/internal/tts/engines"
)

func writeDoc(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestRunner(t *testing.T, q *queue.Manager, c *cache.Cache) (*Runner, *engines.Mock) {
	t.Helper()
	mock := engines.NewMock(tts.EngineConfig{})
	r := New(mock, q, c, Config{
		OutputDir: t.TempDir(),
		Format:    "wav",
		Voice:     "mock-a",
		Speed:     1.0,
	})
	return r, mock
}

func drain(r *Runner) {
	for range r.Events() {
	}
}

func TestRunConvertsQueue(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewManager()
	q.Add(writeDoc(t, dir, "one.txt", "Hello there. This is the first document."))
	q.Add(writeDoc(t, dir, "two.txt", "And a second one."))

	r, mock := newTestRunner(t, q, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	drain(r)
	r.Wait()

	for _, job := range q.Jobs() {
		if job.Status != queue.StatusDone {
			t.Errorf("%s: expected done, got %s (%s)", job.Name(), job.Status, job.Error)
		}
		if !strings.HasSuffix(job.Output, ".wav") {
			t.Errorf("%s: expected WAV output, got %q", job.Name(), job.Output)
		}
		if _, err := os.Stat(job.Output); err != nil {
			t.Errorf("%s: output file missing: %v", job.Name(), err)
		}
	}
	if len(mock.Synthesized) == 0 {
		t.Error("expected synthesis calls")
	}
	if r.State() != tts.StateReady {
		t.Errorf("expected ready after run, got %s", r.State())
	}
}

func TestRunContinuesAfterJobFailure(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewManager()
	q.Add(writeDoc(t, dir, "first.txt", "The first document is fine."))
	q.Add(writeDoc(t, dir, "bad.txt", "This one contains poison."))
	q.Add(writeDoc(t, dir, "third.txt", "So is the third."))

	r, mock := newTestRunner(t, q, nil)
	mock.FailOn = "poison"

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	drain(r)
	r.Wait()

	jobs := q.Jobs()
	if jobs[0].Status != queue.StatusDone {
		t.Errorf("expected first.txt done, got %s (%s)", jobs[0].Status, jobs[0].Error)
	}
	if jobs[1].Status != queue.StatusFailed {
		t.Errorf("expected bad.txt failed, got %s", jobs[1].Status)
	}
	if jobs[1].Error == "" {
		t.Error("expected an error message on the failed job")
	}
	if jobs[2].Status != queue.StatusDone {
		t.Errorf("expected third.txt done, got %s (%s)", jobs[2].Status, jobs[2].Error)
	}
	// The successful jobs' outputs are untouched by the failure.
	for _, i := range []int{0, 2} {
		if _, err := os.Stat(jobs[i].Output); err != nil {
			t.Errorf("%s: output missing: %v", jobs[i].Name(), err)
		}
	}
}

func TestRunFailsJobWithNoText(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewManager()
	q.Add(writeDoc(t, dir, "empty.txt", "   \n\n  "))

	r, _ := newTestRunner(t, q, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	drain(r)
	r.Wait()

	job := q.Jobs()[0]
	if job.Status != queue.StatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
}

func TestStopRequeuesInFlightJob(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewManager()
	// Enough sentences to give the stop request a chunk boundary to land on.
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("This sentence pads the document out to many chunks. ")
	}
	q.Add(writeDoc(t, dir, "long.txt", b.String()))

	r, mock := newTestRunner(t, q, nil)
	mock.Delay = 20 * time.Millisecond

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		r.Stop()
	}()
	drain(r)
	r.Wait()

	job := q.Jobs()[0]
	if job.Status != queue.StatusQueued {
		t.Errorf("expected in-flight job requeued after stop, got %s", job.Status)
	}
	if q.Locked() {
		t.Error("queue should be unlocked after the run ends")
	}
}

func TestPauseAndResume(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewManager()
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("Short sentences make for many chunk boundaries in this test. ")
	}
	q.Add(writeDoc(t, dir, "doc.txt", b.String()))

	r, mock := newTestRunner(t, q, nil)
	mock.Delay = 10 * time.Millisecond

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	sawPaused := make(chan struct{}, 1)
	go func() {
		time.Sleep(30 * time.Millisecond)
		r.Pause()
		for r.State() != tts.StatePaused {
			time.Sleep(5 * time.Millisecond)
		}
		sawPaused <- struct{}{}
		r.Resume()
	}()
	drain(r)
	r.Wait()

	select {
	case <-sawPaused:
	default:
		t.Error("run never reached the paused state")
	}
	if got := q.Jobs()[0].Status; got != queue.StatusDone {
		t.Errorf("expected done after resume, got %s", got)
	}
}

func TestQueueLockedDuringRun(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewManager()
	q.Add(writeDoc(t, dir, "doc.txt", "A few words."))

	r, mock := newTestRunner(t, q, nil)
	mock.Delay = 50 * time.Millisecond

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !q.Locked() {
		t.Error("queue should be locked while the run is active")
	}
	drain(r)
	r.Wait()

	if q.Locked() {
		t.Error("queue should be unlocked after the run")
	}
}

func TestCacheSkipsResynthesis(t *testing.T) {
	text := "A cached sentence that appears in both runs."

	c, err := cache.New(cache.Config{
		MemoryCapacity: 1 << 20,
		DiskCapacity:   1 << 20,
		Dir:            filepath.Join(t.TempDir(), "cache"),
	})
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	defer c.Close()

	run := func() *engines.Mock {
		q := queue.NewManager()
		q.Add(writeDoc(t, t.TempDir(), "doc.txt", text))
		r, mock := newTestRunner(t, q, c)
		if err := r.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		drain(r)
		r.Wait()
		return mock
	}

	first := run()
	if len(first.Synthesized) != 1 {
		t.Fatalf("expected 1 synthesis on the first run, got %d", len(first.Synthesized))
	}

	second := run()
	if len(second.Synthesized) != 0 {
		t.Errorf("expected cache hit on the second run, got %d syntheses", len(second.Synthesized))
	}
}

func TestStartFailsWhenEngineCannotLoad(t *testing.T) {
	q := queue.NewManager()
	mock := engines.NewMock(tts.EngineConfig{})
	mock.FailLoad = true

	r := New(mock, q, nil, Config{OutputDir: t.TempDir(), Format: "wav"})
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail when the engine cannot load")
	}
	if q.Locked() {
		t.Error("queue should not be locked after a failed start")
	}
}
