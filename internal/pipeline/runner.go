// Package pipeline orchestrates a conversion run: it drains the job
// queue through extract, chunk, synthesize, and encode stages, and
// exposes pause/resume/stop control between chunks.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kokorotts/kokoro/internal/audio"
	"github.com/kokorotts/kokoro/internal/cache"
	"github.com/kokorotts/kokoro/internal/encode"
	"github.com/kokorotts/kokoro/internal/extract"
	"github.com/kokorotts/kokoro/internal/queue"
	"github.com/kokorotts/kokoro/internal/tts"
)

// chunkRetries is how many times a failed chunk synthesis is retried
// before the job is marked failed.
const chunkRetries = 2

// chunkGap is the silence inserted between chunks so sentence
// boundaries don't run together in the output.
const chunkGap = 200 * time.Millisecond

// Config holds the per-run options.
type Config struct {
	// OutputDir receives the finished audio files.
	OutputDir string

	// Format is "mp3" or "wav". MP3 silently degrades to WAV when
	// ffmpeg is unavailable.
	Format string

	// OptimizeMP3 re-encodes MP3 output at the standard bitrate.
	OptimizeMP3 bool

	// Voice and Speed identify the synthesis settings for cache keys.
	Voice string
	Speed float64

	// MaxChunkChars caps chunk size; zero uses the default.
	MaxChunkChars int
}

type controlMsg int

const (
	ctrlPause controlMsg = iota
	ctrlResume
	ctrlStop
)

// Runner drives one conversion run over the queue. A Runner is single
// use: construct, Start, wait, discard.
type Runner struct {
	engine  tts.Engine
	chunker tts.Chunker
	queue   *queue.Manager
	cache   *cache.Cache
	encoder *encode.Encoder
	cfg     Config

	sm      *tts.StateMachine
	smMu    sync.Mutex
	control chan controlMsg
	events  chan Event
	done    chan struct{}
}

// New creates a runner. cache may be nil to disable chunk caching.
func New(engine tts.Engine, q *queue.Manager, c *cache.Cache, cfg Config) *Runner {
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	return &Runner{
		engine:  engine,
		chunker: tts.NewTextChunker(cfg.MaxChunkChars),
		queue:   q,
		cache:   c,
		encoder: encode.New(),
		cfg:     cfg,
		sm:      tts.NewStateMachine(),
		control: make(chan controlMsg, 4),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
}

// Events returns the notification channel. It closes when the run ends.
func (r *Runner) Events() <-chan Event { return r.events }

// State returns the current run state.
func (r *Runner) State() tts.RunState {
	r.smMu.Lock()
	defer r.smMu.Unlock()
	return r.sm.Current()
}

// Pause requests a pause after the in-flight chunk finishes.
func (r *Runner) Pause() { r.send(ctrlPause) }

// Resume continues a paused run.
func (r *Runner) Resume() { r.send(ctrlResume) }

// Stop aborts the run. The in-flight job goes back to queued; finished
// outputs are untouched.
func (r *Runner) Stop() { r.send(ctrlStop) }

// Wait blocks until the run has fully wound down.
func (r *Runner) Wait() { <-r.done }

func (r *Runner) send(msg controlMsg) {
	select {
	case r.control <- msg:
	default:
	}
}

func (r *Runner) transition(to tts.RunState) bool {
	r.smMu.Lock()
	ok := r.sm.Transition(to)
	state := r.sm.Current()
	r.smMu.Unlock()
	if ok {
		r.emit(Event{Kind: EventStateChanged, State: state})
	}
	return ok
}

func (r *Runner) emit(e Event) {
	select {
	case r.events <- e:
	default:
		// UI fell behind; drop rather than stall the run.
	}
}

// Start loads the engine and launches the worker goroutine. The queue
// is locked against structural changes until the run ends.
func (r *Runner) Start(ctx context.Context) error {
	if !r.transition(tts.StateLoading) {
		return fmt.Errorf("%w: cannot start from %s", tts.ErrInvalidTransition, r.State())
	}

	if err := r.engine.Load(ctx); err != nil {
		r.transition(tts.StateError)
		close(r.events)
		close(r.done)
		return fmt.Errorf("engine load failed: %w", err)
	}
	r.transition(tts.StateReady)
	r.transition(tts.StateRunning)

	r.queue.Lock()
	go r.run(ctx)
	return nil
}

func (r *Runner) run(ctx context.Context) {
	var runErr error
	defer func() {
		r.queue.Unlock()
		r.emit(Event{Kind: EventRunFinished, Err: runErr})
		close(r.events)
		close(r.done)
	}()

	for {
		if stopped := r.checkControl(ctx); stopped {
			r.finish(tts.StateReady)
			return
		}

		job, ok := r.queue.NextPending()
		if !ok {
			r.finish(tts.StateReady)
			return
		}

		err := r.processJob(ctx, job)
		switch {
		case err == nil:
		case ctx.Err() != nil || isStop(err):
			// Stop or cancellation: the job goes back to queued so a
			// later run picks it up.
			r.setStatus(job.ID, queue.StatusQueued, "")
			r.finish(tts.StateReady)
			return
		case !tts.IsRecoverable(err):
			log.Error("run aborted", "job", job.Name(), "error", err)
			r.setStatus(job.ID, queue.StatusFailed, err.Error())
			runErr = err
			r.finish(tts.StateError)
			return
		default:
			log.Warn("job failed", "job", job.Name(), "error", err)
			r.setStatus(job.ID, queue.StatusFailed, err.Error())
		}
	}
}

// finish moves the state machine to its resting state.
func (r *Runner) finish(to tts.RunState) {
	r.smMu.Lock()
	cur := r.sm.Current()
	if cur == tts.StateRunning && to == tts.StateError {
		r.sm.Transition(tts.StateError)
	} else if cur == tts.StateRunning || cur == tts.StateStopping {
		r.sm.Transition(tts.StateReady)
	}
	state := r.sm.Current()
	r.smMu.Unlock()
	r.emit(Event{Kind: EventStateChanged, State: state})
}

// errStopped is an internal signal that a stop request interrupted a job.
var errStopped = errors.New("run stopped")

func isStop(err error) bool { return errors.Is(err, errStopped) }

// checkControl drains pending control messages and blocks while
// paused. It reports true when the run should stop.
func (r *Runner) checkControl(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case msg := <-r.control:
			switch msg {
			case ctrlStop:
				r.transition(tts.StateStopping)
				return true
			case ctrlPause:
				if !r.transition(tts.StatePaused) {
					continue
				}
				if stopped := r.waitResume(ctx); stopped {
					return true
				}
			}
		default:
			return false
		}
	}
}

// waitResume blocks until resume, stop, or cancellation.
func (r *Runner) waitResume(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case msg := <-r.control:
			switch msg {
			case ctrlResume:
				r.transition(tts.StateRunning)
				return false
			case ctrlStop:
				r.transition(tts.StateStopping)
				return true
			}
		}
	}
}

func (r *Runner) setStatus(id string, status queue.Status, errMsg string) {
	if err := r.queue.SetStatus(id, status, errMsg); err != nil {
		log.Debug("status update rejected", "job", id, "error", err)
		return
	}
	if job, err := r.queue.Get(id); err == nil {
		r.emit(Event{Kind: EventJobUpdated, Job: job})
	}
}

// processJob converts one document end to end.
func (r *Runner) processJob(ctx context.Context, job queue.Job) error {
	r.setStatus(job.ID, queue.StatusRunning, "")
	log.Info("converting", "file", job.Name())

	text, err := extract.Text(job.Source)
	if err != nil {
		return fmt.Errorf("text extraction failed: %w", err)
	}

	chunks := r.chunker.Split(text)
	if len(chunks) == 0 {
		return tts.ErrNoChunks
	}

	doc := &tts.Audio{}
	for i, chunk := range chunks {
		if stopped := r.pauseBetweenChunks(ctx, job.ID); stopped {
			return errStopped
		}

		chunkAudio, err := r.synthesizeChunk(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if err := doc.Append(chunkAudio); err != nil {
			return err
		}
		if i < len(chunks)-1 {
			doc.AppendSilence(chunkGap)
		}

		if job2, err := r.queue.Get(job.ID); err == nil {
			r.emit(Event{
				Kind: EventJobUpdated,
				Job:  job2,
				Progress: tts.Progress{
					Chunk:       i + 1,
					TotalChunks: len(chunks),
					Synthesized: doc.Duration(),
				},
			})
		}
	}

	output, err := r.writeOutput(ctx, job, doc)
	if err != nil {
		return err
	}

	r.queue.SetOutput(job.ID, output)
	r.setStatus(job.ID, queue.StatusDone, "")
	log.Info("finished", "file", job.Name(), "output", output, "duration", doc.Duration().Round(time.Second))
	return nil
}

// pauseBetweenChunks applies pause/stop control at a chunk boundary,
// keeping the job status in sync with the run state.
func (r *Runner) pauseBetweenChunks(ctx context.Context, jobID string) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case msg := <-r.control:
			switch msg {
			case ctrlStop:
				r.transition(tts.StateStopping)
				return true
			case ctrlPause:
				if r.transition(tts.StatePaused) {
					r.setStatus(jobID, queue.StatusPaused, "")
					if stopped := r.waitResume(ctx); stopped {
						return true
					}
					r.setStatus(jobID, queue.StatusRunning, "")
				}
			}
		default:
			return false
		}
	}
}

// synthesizeChunk produces audio for one chunk, consulting the cache
// and retrying transient synthesis failures.
func (r *Runner) synthesizeChunk(ctx context.Context, text string) (*tts.Audio, error) {
	key := r.cacheKey(text)
	if r.cache != nil {
		if data, ok := r.cache.Get(key); ok {
			if cached, err := audio.DecodeWAV(bytes.NewReader(data)); err == nil {
				return cached, nil
			}
			// Corrupt entry; fall through and resynthesize.
		}
	}

	var lastErr error
	for attempt := 0; attempt <= chunkRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := r.engine.Synthesize(ctx, text)
		if err == nil {
			if r.cache != nil {
				var buf bytes.Buffer
				if encErr := audio.EncodeWAV(&buf, a); encErr == nil {
					r.cache.Put(key, buf.Bytes())
				}
			}
			return a, nil
		}
		lastErr = err
		if !tts.IsRecoverable(err) {
			break
		}
		log.Debug("synthesis retry", "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (r *Runner) cacheKey(text string) string {
	speed := r.cfg.Speed
	if speed <= 0 {
		speed = 1.0
	}
	return cache.Key(string(r.engine.Type()), r.cfg.Voice, speed, text)
}

// writeOutput writes the document audio to its final location,
// encoding to MP3 when requested and possible.
func (r *Runner) writeOutput(ctx context.Context, job queue.Job, doc *tts.Audio) (string, error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create output dir: %w", err)
	}

	base := strings.TrimSuffix(job.Name(), filepath.Ext(job.Name()))
	wavPath := filepath.Join(r.cfg.OutputDir, base+".wav")

	if err := audio.WriteWAVFile(wavPath, doc); err != nil {
		return "", err
	}

	if r.cfg.Format != "mp3" {
		return wavPath, nil
	}
	if !r.encoder.Available() {
		log.Warn("ffmpeg not found, keeping WAV output", "file", wavPath)
		return wavPath, nil
	}

	mp3Path := filepath.Join(r.cfg.OutputDir, base+".mp3")
	if err := r.encoder.Encode(ctx, wavPath, mp3Path); err != nil {
		return "", fmt.Errorf("mp3 encoding failed: %w", err)
	}
	os.Remove(wavPath)

	if r.cfg.OptimizeMP3 {
		if err := r.encoder.Optimize(ctx, mp3Path); err != nil {
			// The un-optimized file is still valid output.
			log.Warn("mp3 optimize pass failed", "file", mp3Path, "error", err)
		}
	}
	return mp3Path, nil
}
