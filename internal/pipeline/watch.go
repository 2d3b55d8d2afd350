package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/kokorotts/kokoro/internal/extract"
	"github.com/kokorotts/kokoro/internal/queue"
)

// settleDelay is how long a new file must stop growing before it is
// queued; downloads and copies arrive in pieces.
const settleDelay = 2 * time.Second

// Watcher enqueues supported documents as they appear in a directory.
type Watcher struct {
	dir   string
	queue *queue.Manager

	// Added is notified with each queued job.
	Added chan queue.Job
}

// NewWatcher watches dir for new documents to queue.
func NewWatcher(dir string, q *queue.Manager) *Watcher {
	return &Watcher{
		dir:   dir,
		queue: q,
		Added: make(chan queue.Job, 16),
	}
}

// Run blocks, queueing new files until ctx is cancelled. Files already
// present when the watch starts are not queued; use queue add for
// those.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("could not watch %s: %w", w.dir, err)
	}
	log.Info("watching for new documents", "dir", w.dir)

	// pending tracks files waiting to settle, keyed by path.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !extract.Supported(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case <-ticker.C:
			for path, last := range pending {
				if time.Since(last) < settleDelay {
					continue
				}
				if w.enqueue(path) {
					delete(pending, path)
				}
			}
		}
	}
}

// enqueue adds path to the queue, reporting whether the file is dealt
// with. A locked queue means a run is active; the file stays pending
// and is retried once the run releases the queue.
func (w *Watcher) enqueue(path string) bool {
	if info, err := os.Stat(path); err != nil || info.IsDir() || info.Size() == 0 {
		return true
	}

	job, err := w.queue.Add(path)
	if err != nil {
		if errors.Is(err, queue.ErrLocked) {
			return false
		}
		if !errors.Is(err, queue.ErrDuplicate) {
			log.Warn("could not queue file", "file", path, "error", err)
		}
		return true
	}
	log.Info("queued", "file", job.Name())

	select {
	case w.Added <- job:
	default:
	}
	return true
}
