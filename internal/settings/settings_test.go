package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kokorotts/kokoro/internal/queue"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreAt(filepath.Join(t.TempDir(), FileName))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s := tempStore(t)

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Default()
	if got.Engine != want.Engine || got.Speed != want.Speed || got.Format != want.Format {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := tempStore(t)

	in := Settings{
		Engine:      "piper",
		Voice:       "en_US-amy-medium",
		Speed:       1.25,
		OutputDir:   "/out",
		Format:      "wav",
		OptimizeMP3: false,
		Queue: []queue.Job{
			{ID: "1", Source: "/books/a.pdf", Status: queue.StatusQueued},
			{ID: "2", Source: "/books/b.pdf", Status: queue.StatusDone, Output: "/out/b.mp3"},
		},
	}

	if err := s.Save(in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if out.Engine != in.Engine || out.Voice != in.Voice || out.Speed != in.Speed {
		t.Errorf("settings did not round trip: %+v", out)
	}
	if len(out.Queue) != 2 || out.Queue[1].Output != "/out/b.mp3" {
		t.Errorf("queue snapshot did not round trip: %+v", out.Queue)
	}
}

func TestSaveIsAtomic(t *testing.T) {
	s := tempStore(t)

	if err := s.Save(Default()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// No temp files left behind next to the settings file.
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != FileName {
		t.Errorf("expected only %s in dir, got %v", FileName, entries)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	s := tempStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load()
	if err == nil {
		t.Error("expected an error for a corrupt file")
	}
	// Defaults still come back so the app can start.
	if got.Speed != Default().Speed {
		t.Errorf("expected defaults on corruption, got %+v", got)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	s := tempStore(t)
	if err := os.WriteFile(s.Path(), []byte(`{"voice":"af_bella"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Voice != "af_bella" {
		t.Errorf("expected voice from file, got %q", got.Voice)
	}
	if got.Engine != Default().Engine {
		t.Errorf("expected default engine, got %q", got.Engine)
	}
	if got.Speed != 1.0 {
		t.Errorf("expected speed fixed up to 1.0, got %v", got.Speed)
	}
}
