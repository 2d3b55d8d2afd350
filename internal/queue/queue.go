// Package queue manages the ordered list of conversion jobs. The queue
// is the single owner of job state: the pipeline mutates statuses
// through it and user-facing commands add, remove and reorder entries,
// but only while no run is active.
package queue

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLocked is returned for mutations attempted while a run is active.
	ErrLocked = errors.New("queue is locked while a conversion is running")

	// ErrNotFound is returned when a job ID is not in the queue.
	ErrNotFound = errors.New("job not found")

	// ErrDuplicate is returned when a source path is already queued.
	ErrDuplicate = errors.New("file is already queued")

	// ErrInvalidTransition is returned for status changes outside the
	// job state machine.
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one document conversion.
type Job struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Status Status `json:"status"`

	// Output is the written audio file, set when the job completes.
	Output string `json:"output,omitempty"`

	// Error holds the failure reason for failed jobs.
	Error string `json:"error,omitempty"`

	AddedAt     time.Time  `json:"added_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Name returns the job's source file name.
func (j Job) Name() string { return filepath.Base(j.Source) }

// Pending reports whether the job still needs processing.
func (j Job) Pending() bool { return j.Status == StatusQueued }

// Manager is the thread-safe ordered job queue.
type Manager struct {
	mu     sync.RWMutex
	jobs   []Job
	locked bool
}

// NewManager creates an empty queue.
func NewManager() *Manager {
	return &Manager{}
}

// Restore replaces the queue with a persisted snapshot. Jobs left in
// running or paused state by a previous session go back to queued.
func (m *Manager) Restore(jobs []Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs = make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.ID == "" {
			j.ID = uuid.New().String()
		}
		if j.Status == StatusRunning || j.Status == StatusPaused {
			j.Status = StatusQueued
			j.StartedAt = nil
		}
		m.jobs = append(m.jobs, j)
	}
}

// Add appends a job for path, rejecting duplicates by absolute path.
func (m *Manager) Add(path string) (Job, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Job{}, fmt.Errorf("failed to resolve path: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return Job{}, ErrLocked
	}
	for _, j := range m.jobs {
		if j.Source == abs {
			return Job{}, fmt.Errorf("%w: %s", ErrDuplicate, abs)
		}
	}

	job := Job{
		ID:      uuid.New().String(),
		Source:  abs,
		Status:  StatusQueued,
		AddedAt: time.Now(),
	}
	m.jobs = append(m.jobs, job)
	return job, nil
}

// Remove deletes the job with the given ID, preserving the relative
// order of the remaining jobs.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return ErrLocked
	}
	for i, j := range m.jobs {
		if j.ID == id {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Move shifts the job with the given ID by delta positions (negative is
// toward the front). Moves past either end clamp to the end.
func (m *Manager) Move(id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return ErrLocked
	}

	from := -1
	for i, j := range m.jobs {
		if j.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return ErrNotFound
	}

	to := from + delta
	if to < 0 {
		to = 0
	}
	if to >= len(m.jobs) {
		to = len(m.jobs) - 1
	}
	if to == from {
		return nil
	}

	job := m.jobs[from]
	m.jobs = append(m.jobs[:from], m.jobs[from+1:]...)
	m.jobs = append(m.jobs[:to], append([]Job{job}, m.jobs[to:]...)...)
	return nil
}

// ClearFinished removes done and failed jobs.
func (m *Manager) ClearFinished() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return 0, ErrLocked
	}

	kept := m.jobs[:0]
	removed := 0
	for _, j := range m.jobs {
		if j.Status == StatusDone || j.Status == StatusFailed {
			removed++
			continue
		}
		kept = append(kept, j)
	}
	m.jobs = kept
	return removed, nil
}

// Lock prevents structural mutation for the duration of a run.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = true
}

// Unlock re-enables structural mutation after a run.
func (m *Manager) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = false
}

// Locked reports whether a run currently owns the queue.
func (m *Manager) Locked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locked
}

// NextPending returns the first queued job, if any.
func (m *Manager) NextPending() (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.jobs {
		if j.Pending() {
			return j, true
		}
	}
	return Job{}, false
}

// Get returns the job with the given ID.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return Job{}, ErrNotFound
}

// Jobs returns a snapshot of the queue in order.
func (m *Manager) Jobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, len(m.jobs))
	copy(out, m.jobs)
	return out
}

// Len returns the number of jobs.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// SetStatus applies a status transition to the job with the given ID.
// Only transitions in the job state machine are allowed: a job runs
// once, pausing is a side branch of running, and done/failed are
// terminal until the job is re-queued.
func (m *Manager) SetStatus(id string, status Status, jobErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.jobs {
		if m.jobs[i].ID != id {
			continue
		}
		if !validTransition(m.jobs[i].Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.jobs[i].Status, status)
		}

		now := time.Now()
		m.jobs[i].Status = status
		m.jobs[i].Error = jobErr
		switch status {
		case StatusRunning:
			if m.jobs[i].StartedAt == nil {
				m.jobs[i].StartedAt = &now
			}
		case StatusDone, StatusFailed:
			m.jobs[i].CompletedAt = &now
		case StatusQueued:
			m.jobs[i].StartedAt = nil
			m.jobs[i].CompletedAt = nil
		}
		return nil
	}
	return ErrNotFound
}

// SetOutput records the output path for the job with the given ID.
func (m *Manager) SetOutput(id, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].ID == id {
			m.jobs[i].Output = output
			return nil
		}
	}
	return ErrNotFound
}

// Counts returns the number of jobs per status.
func (m *Manager) Counts() map[Status]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[Status]int)
	for _, j := range m.jobs {
		counts[j.Status]++
	}
	return counts
}

func validTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusRunning || to == StatusFailed
	case StatusRunning:
		return to == StatusPaused || to == StatusDone || to == StatusFailed || to == StatusQueued
	case StatusPaused:
		return to == StatusRunning || to == StatusFailed || to == StatusQueued
	case StatusDone, StatusFailed:
		return to == StatusQueued
	default:
		return false
	}
}
