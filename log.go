package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog configures the global logger. Output goes to stderr by
// default; KOKORO_LOGFILE redirects it to a file (required for TUI
// mode, where stderr belongs to the terminal UI), and KOKORO_DEBUG
// enables debug-level logging.
func setupLog() (func() error, error) {
	log.SetTimeFormat(time.Kitchen)
	if os.Getenv("KOKORO_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	}

	logFile := os.Getenv("KOKORO_LOGFILE")
	if logFile == "" {
		log.SetOutput(os.Stderr)
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	log.SetOutput(f)
	return f.Close, nil
}

// muteLog silences logging for the duration of a TUI session when no
// log file is configured.
func muteLog() {
	if os.Getenv("KOKORO_LOGFILE") == "" {
		log.SetOutput(io.Discard)
	}
}
