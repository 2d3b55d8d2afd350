package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kokorotts/kokoro/internal/queue"
	"github.com/kokorotts/kokoro/internal/settings"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAddSourcesScansDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "%PDF-1.4")
	writeFile(t, filepath.Join(dir, "notes", "b.txt"), "hello")
	writeFile(t, filepath.Join(dir, "notes", "c.md"), "# hi")
	writeFile(t, filepath.Join(dir, "cover.png"), "not a document")

	q := queue.NewManager()
	added := addSources(q, []string{dir}, strings.NewReader(""))

	if len(added) != 3 {
		t.Fatalf("queued %d jobs, want 3", len(added))
	}
	for _, job := range added {
		if job.Source == dir {
			t.Fatalf("directory %s was queued as a job", dir)
		}
		if info, err := os.Stat(job.Source); err != nil || info.IsDir() {
			t.Fatalf("queued source %s is not a regular file", job.Source)
		}
	}
}

func TestAddSourcesSkipsEmptyDirectory(t *testing.T) {
	q := queue.NewManager()
	added := addSources(q, []string{t.TempDir()}, strings.NewReader(""))
	if len(added) != 0 {
		t.Fatalf("queued %d jobs from an empty directory, want 0", len(added))
	}
	if q.Len() != 0 {
		t.Fatalf("queue holds %d jobs, want 0", q.Len())
	}
}

func TestAddSourcesReadsStdin(t *testing.T) {
	q := queue.NewManager()
	added := addSources(q, []string{"-"}, strings.NewReader("Read me aloud."))
	if len(added) != 1 {
		t.Fatalf("queued %d jobs, want 1", len(added))
	}
	t.Cleanup(func() { _ = os.Remove(added[0].Source) })

	if filepath.Ext(added[0].Source) != ".txt" {
		t.Errorf("stdin captured as %s, want a .txt file", added[0].Source)
	}
	data, err := os.ReadFile(added[0].Source)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Read me aloud." {
		t.Errorf("stdin capture = %q", data)
	}
}

func TestOptimizeFlagOverridesSettings(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("optimize")
	if flag == nil {
		t.Fatal("--optimize flag is not registered")
	}

	if err := flag.Value.Set("false"); err != nil {
		t.Fatal(err)
	}
	flag.Changed = true
	t.Cleanup(func() { flag.Changed = false })

	cfg := settings.Default()
	cfg.OptimizeMP3 = true
	overlayConfig(&cfg)
	if cfg.OptimizeMP3 {
		t.Error("--optimize=false should override persisted optimize_mp3")
	}
}

func TestAddSourcesKeepsPlainFiles(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "chapter.txt")
	writeFile(t, doc, "text")

	q := queue.NewManager()
	added := addSources(q, []string{doc, filepath.Join(dir, "missing.txt")}, strings.NewReader(""))
	if len(added) != 1 || added[0].Source != doc {
		t.Fatalf("added = %+v, want only %s", added, doc)
	}
}
