package pipeline

import (
	"github.com/kokorotts/kokoro/internal/queue"
	"github.com/kokorotts/kokoro/internal/tts"
)

// EventKind discriminates pipeline events.
type EventKind int

const (
	// EventJobUpdated fires when a job changes status or progress.
	EventJobUpdated EventKind = iota

	// EventStateChanged fires when the run state machine transitions.
	EventStateChanged

	// EventRunFinished fires once after the last job of a run.
	EventRunFinished
)

// Event is a pipeline notification delivered on the Events channel.
// Consumers that fall behind lose events rather than stall synthesis.
type Event struct {
	Kind EventKind

	// Job is a snapshot of the affected job for EventJobUpdated.
	Job queue.Job

	// Progress is chunk-level progress for the running job.
	Progress tts.Progress

	// State is the new run state for EventStateChanged.
	State tts.RunState

	// Err carries the fatal error when a run ends in failure.
	Err error
}
