// Package settings persists user preferences and the job queue between
// sessions as a single JSON file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	gap "github.com/muesli/go-app-paths"

	"github.com/kokorotts/kokoro/internal/queue"
)

// FileName is the settings file name inside the app data directory.
const FileName = "kokoro-settings.json"

// Settings holds everything restored at startup: the user's last
// choices plus a snapshot of the queue.
type Settings struct {
	Engine      string  `json:"engine"`
	Voice       string  `json:"voice"`
	Speed       float64 `json:"speed"`
	OutputDir   string  `json:"output_dir"`
	Format      string  `json:"format"`
	OptimizeMP3 bool    `json:"optimize_mp3"`

	Queue []queue.Job `json:"queue"`
}

// Default returns the settings used when no file exists yet.
func Default() Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Settings{
		Engine:      "sherpa",
		Voice:       "",
		Speed:       1.0,
		OutputDir:   filepath.Join(home, "Audiobooks"),
		Format:      "mp3",
		OptimizeMP3: true,
	}
}

// Store reads and writes the settings file.
type Store struct {
	path string
}

// NewStore creates a store at the standard per-user data location.
func NewStore() (*Store, error) {
	scope := gap.NewScope(gap.User, "kokoro")
	path, err := scope.DataPath(FileName)
	if err != nil {
		return nil, fmt.Errorf("could not resolve settings path: %w", err)
	}
	return &Store{path: path}, nil
}

// NewStoreAt creates a store backed by an explicit file path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the settings file. A missing file yields defaults, not an
// error. Fields absent from an older file keep their default values.
func (s *Store) Load() (Settings, error) {
	settings := Default()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("could not read settings: %w", err)
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		return Default(), fmt.Errorf("could not parse %s: %w", s.path, err)
	}
	if settings.Speed <= 0 {
		settings.Speed = 1.0
	}
	return settings, nil
}

// Save writes the settings atomically: a temp file in the same
// directory is renamed over the target so a crash mid-write never
// leaves a truncated file.
func (s *Store) Save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode settings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return fmt.Errorf("could not create temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("could not write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not close settings file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not replace settings file: %w", err)
	}
	return nil
}
