// Package ui implements the interactive queue view: a list of jobs
// with live conversion progress and pause/resume/stop control.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/kokorotts/kokoro/internal/extract"
	"github.com/kokorotts/kokoro/internal/pipeline"
	"github.com/kokorotts/kokoro/internal/queue"
	"github.com/kokorotts/kokoro/internal/tts"
)

// NewProgram returns a new Tea program for the queue view.
func NewProgram(cfg Config) *tea.Program {
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg), opts...)
}

type eventMsg pipeline.Event

type runEndedMsg struct{}

type errMsg struct{ err error }

type model struct {
	cfg    Config
	runner *pipeline.Runner

	cursor   int
	width    int
	height   int
	state    tts.RunState
	progress tts.Progress
	current  string // job ID being converted
	fatal    error
	adding   bool

	spinner spinner.Model
	bar     progress.Model
	input   textinput.Model
}

func newModel(cfg Config) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	ti := textinput.New()
	ti.Prompt = "add> "
	ti.Placeholder = "path to a document or folder"

	return model{
		cfg:     cfg,
		state:   tts.StateIdle,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		input:   ti,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

// waitEvent delivers the next pipeline event as a message.
func waitEvent(r *pipeline.Runner) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-r.Events()
		if !ok {
			return runEndedMsg{}
		}
		return eventMsg(event)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case eventMsg:
		return m.handleEvent(pipeline.Event(msg))

	case runEndedMsg:
		m.runner = nil
		m.current = ""
		if m.state.Active() {
			m.state = tts.StateReady
		}
		return m, nil

	case errMsg:
		m.fatal = msg.err
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.adding {
		return m.handleAddKey(msg)
	}

	jobs := m.cfg.Queue.Jobs()

	switch msg.String() {
	case "a":
		m.adding = true
		m.fatal = nil
		return m, m.input.Focus()

	case "q", "ctrl+c", "esc":
		if m.runner != nil {
			m.runner.Stop()
		}
		return m, tea.Quit

	case "j", "down":
		if m.cursor < len(jobs)-1 {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "J":
		if m.cursor < len(jobs) {
			if err := m.cfg.Queue.Move(jobs[m.cursor].ID, 1); err == nil {
				m.cursor++
			}
		}

	case "K":
		if m.cursor < len(jobs) {
			if err := m.cfg.Queue.Move(jobs[m.cursor].ID, -1); err == nil {
				m.cursor--
			}
		}

	case "d", "x":
		if msg.String() == "x" && m.runner != nil {
			m.runner.Stop()
			break
		}
		if m.cursor < len(jobs) {
			if err := m.cfg.Queue.Remove(jobs[m.cursor].ID); err == nil && m.cursor > 0 {
				m.cursor--
			}
		}

	case "c":
		_, _ = m.cfg.Queue.ClearFinished()
		if n := m.cfg.Queue.Len(); m.cursor >= n && n > 0 {
			m.cursor = n - 1
		}

	case "s", "enter":
		if m.runner == nil && m.cfg.StartRun != nil {
			runner, err := m.cfg.StartRun()
			if err != nil {
				m.fatal = err
				break
			}
			m.runner = runner
			m.fatal = nil
			m.state = runner.State()
			return m, waitEvent(runner)
		}

	case " ":
		if m.runner == nil {
			break
		}
		if m.state == tts.StatePaused {
			m.runner.Resume()
		} else if m.state == tts.StateRunning {
			m.runner.Pause()
		}
	}

	return m, nil
}

// handleAddKey routes keys to the add prompt. Enter queues the typed
// path, esc abandons it.
func (m model) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		path := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Blur()
		m.input.SetValue("")
		if path != "" {
			m.queuePath(path)
		}
		return m, nil

	case "esc", "ctrl+c":
		m.adding = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// queuePath adds a file, or every document under a folder, to the
// queue. Errors land in the status area instead of a modal.
func (m *model) queuePath(path string) {
	info, err := os.Stat(path)
	if err != nil {
		m.fatal = err
		return
	}

	if !info.IsDir() {
		if _, err := m.cfg.Queue.Add(path); err != nil {
			m.fatal = err
		}
		return
	}

	docs, err := extract.FindDocuments(path)
	if err != nil {
		m.fatal = err
		return
	}
	if len(docs) == 0 {
		m.fatal = fmt.Errorf("no documents found under %s", path)
		return
	}
	for _, doc := range docs {
		if _, err := m.cfg.Queue.Add(doc); err != nil {
			m.fatal = err
		}
	}
}

func (m model) handleEvent(event pipeline.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{}
	if m.runner != nil {
		cmds = append(cmds, waitEvent(m.runner))
	}

	switch event.Kind {
	case pipeline.EventStateChanged:
		m.state = event.State

	case pipeline.EventJobUpdated:
		if event.Job.Status == queue.StatusRunning || event.Job.Status == queue.StatusPaused {
			m.current = event.Job.ID
		} else if event.Job.ID == m.current {
			m.current = ""
		}
		if event.Progress.TotalChunks > 0 {
			m.progress = event.Progress
			cmds = append(cmds, m.bar.SetPercent(event.Progress.Percent()))
		}

	case pipeline.EventRunFinished:
		if event.Err != nil {
			m.fatal = event.Err
		}
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("Kokoro"),
		"  ",
		m.statusLine(),
	)

	jobs := m.cfg.Queue.Jobs()
	list := ""
	if len(jobs) == 0 {
		list = dimStyle.Render("The queue is empty. Add documents with: kokoro queue add <path>")
	}
	for i, job := range jobs {
		list += m.renderJob(i, job) + "\n"
	}

	footer := helpStyle.Render("a add · s start · space pause · x stop · J/K reorder · d delete · c clear · q quit")

	out := header + "\n" + listStyle.Render(list) + "\n"
	if m.adding {
		out += "  " + m.input.View() + "\n"
	}
	if m.fatal != nil {
		out += errorStyle.Render("  "+m.fatal.Error()) + "\n"
	}
	return out + footer
}

func (m model) statusLine() string {
	label := fmt.Sprintf("%s · %s", m.cfg.Engine, m.cfg.Voice)
	switch {
	case m.state == tts.StateRunning:
		return m.spinner.View() + statusStyle.Render("converting ") + dimStyle.Render(label)
	case m.state == tts.StatePaused:
		return statusStyle.Render("paused ") + dimStyle.Render(label)
	case m.state == tts.StateLoading:
		return m.spinner.View() + statusStyle.Render("loading model ") + dimStyle.Render(label)
	default:
		counts := m.cfg.Queue.Counts()
		return dimStyle.Render(fmt.Sprintf("%d queued · %s", counts[queue.StatusQueued], label))
	}
}

func (m model) renderJob(i int, job queue.Job) string {
	glyph := statusGlyphs[string(job.Status)]
	name := job.Name()
	if m.width > 20 {
		name = truncate.StringWithTail(name, uint(m.width-20), "…")
	}

	line := fmt.Sprintf("%s %s", glyph, name)
	switch job.Status {
	case queue.StatusFailed:
		line = errorStyle.Render(line) + dimStyle.Render("  "+job.Error)
	case queue.StatusDone:
		line = dimStyle.Render(line)
	case queue.StatusRunning, queue.StatusPaused:
		line = statusStyle.Render(line)
	}

	if job.ID == m.current && m.progress.TotalChunks > 0 {
		line += fmt.Sprintf("\n   %s %s",
			m.bar.View(),
			dimStyle.Render(fmt.Sprintf("%d/%d · %s",
				m.progress.Chunk, m.progress.TotalChunks,
				m.progress.Synthesized.Round(time.Second))))
	}

	if i == m.cursor {
		return selectedStyle.Render("> ") + line
	}
	return "  " + line
}
