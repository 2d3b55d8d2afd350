package ui

import (
	"github.com/kokorotts/kokoro/internal/pipeline"
	"github.com/kokorotts/kokoro/internal/queue"
)

// Config contains TUI configuration. Fields tagged with env can be
// overridden from the environment for debugging.
type Config struct {
	EnableMouse  bool `env:"KOKORO_MOUSE" envDefault:"false"`
	ShowStatusNL bool `env:"KOKORO_STATUS_NEWLINE" envDefault:"false"`

	// Queue is the shared job queue; the TUI renders it and forwards
	// edits to it.
	Queue *queue.Manager

	// StartRun launches a conversion run over the queue. The TUI owns
	// the returned runner until its event channel closes.
	StartRun func() (*pipeline.Runner, error)

	// Engine and Voice label the status line.
	Engine string
	Voice  string
}
