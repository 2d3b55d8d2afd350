package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kokorotts/kokoro/internal/queue"
)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func testModel(t *testing.T, files ...string) model {
	t.Helper()
	dir := t.TempDir()
	q := queue.NewManager()
	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("text"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := q.Add(path); err != nil {
			t.Fatal(err)
		}
	}
	return newModel(Config{Queue: q, Engine: "mock", Voice: "mock-a"})
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func TestCursorMovement(t *testing.T) {
	m := testModel(t, "a.txt", "b.txt", "c.txt")

	m = update(t, m, key('j'))
	m = update(t, m, key('j'))
	if m.cursor != 2 {
		t.Errorf("expected cursor 2, got %d", m.cursor)
	}

	// Clamped at the end.
	m = update(t, m, key('j'))
	if m.cursor != 2 {
		t.Errorf("cursor ran past the end: %d", m.cursor)
	}

	m = update(t, m, key('k'))
	if m.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", m.cursor)
	}
}

func TestReorderFollowsCursor(t *testing.T) {
	m := testModel(t, "a.txt", "b.txt", "c.txt")

	m = update(t, m, key('J'))
	jobs := m.cfg.Queue.Jobs()
	if jobs[1].Name() != "a.txt" {
		t.Errorf("expected a.txt moved down, got %v", jobs[1].Name())
	}
	if m.cursor != 1 {
		t.Errorf("cursor should follow the moved job, got %d", m.cursor)
	}

	m = update(t, m, key('K'))
	if m.cfg.Queue.Jobs()[0].Name() != "a.txt" {
		t.Error("expected a.txt moved back up")
	}
	if m.cursor != 0 {
		t.Errorf("cursor should follow back up, got %d", m.cursor)
	}
}

func TestDeleteUnderCursor(t *testing.T) {
	m := testModel(t, "a.txt", "b.txt")

	m = update(t, m, key('j'))
	m = update(t, m, key('d'))

	jobs := m.cfg.Queue.Jobs()
	if len(jobs) != 1 || jobs[0].Name() != "a.txt" {
		t.Errorf("expected only a.txt left, got %v", jobs)
	}
	if m.cursor != 0 {
		t.Errorf("cursor should move up after deleting the last entry, got %d", m.cursor)
	}
}

func TestStartWithoutRunnerFactory(t *testing.T) {
	m := testModel(t, "a.txt")

	// No StartRun configured; the key should be a no-op, not a panic.
	m = update(t, m, key('s'))
	if m.runner != nil {
		t.Error("expected no runner without a factory")
	}
}

func typeString(t *testing.T, m model, s string) model {
	t.Helper()
	for _, r := range s {
		m = update(t, m, key(r))
	}
	return m
}

func TestAddPromptQueuesFile(t *testing.T) {
	m := testModel(t)
	doc := filepath.Join(t.TempDir(), "chapter.txt")
	if err := os.WriteFile(doc, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}

	m = update(t, m, key('a'))
	if !m.adding {
		t.Fatal("expected the add prompt to open")
	}
	m = typeString(t, m, doc)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.adding {
		t.Error("expected the prompt to close on enter")
	}
	jobs := m.cfg.Queue.Jobs()
	if len(jobs) != 1 || jobs[0].Name() != "chapter.txt" {
		t.Errorf("expected chapter.txt queued, got %v", jobs)
	}
}

func TestAddPromptScansDirectory(t *testing.T) {
	m := testModel(t)
	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m = update(t, m, key('a'))
	m = typeString(t, m, dir)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	jobs := m.cfg.Queue.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected both documents queued, got %v", jobs)
	}
	for _, job := range jobs {
		if job.Source == dir {
			t.Error("the directory itself was queued")
		}
	}
}

func TestAddPromptEscapeCancels(t *testing.T) {
	m := testModel(t)

	m = update(t, m, key('a'))
	m = typeString(t, m, "/nowhere")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.adding {
		t.Error("expected esc to close the prompt")
	}
	if m.cfg.Queue.Len() != 0 {
		t.Errorf("expected nothing queued after cancel, got %d", m.cfg.Queue.Len())
	}
	if m.input.Value() != "" {
		t.Errorf("expected the prompt cleared, got %q", m.input.Value())
	}
}

func TestViewShowsQueue(t *testing.T) {
	m := testModel(t, "book.txt")
	m.width = 80

	view := m.View()
	if !strings.Contains(view, "book.txt") {
		t.Error("expected the queued file in the view")
	}
	if !strings.Contains(view, "Kokoro") {
		t.Error("expected the title in the view")
	}
}

func TestViewEmptyQueue(t *testing.T) {
	m := testModel(t)
	m.width = 80

	if !strings.Contains(m.View(), "queue is empty") {
		t.Error("expected the empty-queue hint")
	}
}
