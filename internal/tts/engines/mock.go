package engines

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kokorotts/kokoro/internal/tts"
)

// Mock is an in-memory engine for tests. It produces a short burst of
// silence per word so duration scales with input length, records every
// text it synthesizes, and fails on demand.
type Mock struct {
	mu     sync.Mutex
	cfg    tts.EngineConfig
	loaded bool
	closed bool

	// Delay is how long each Synthesize call blocks, observing ctx.
	Delay time.Duration

	// FailLoad makes Load return ErrSynthesisFailed.
	FailLoad bool

	// FailOn makes Synthesize fail for texts containing this substring.
	FailOn string

	// Synthesized records the texts passed to Synthesize, in order.
	Synthesized []string
}

// NewMock creates a mock engine.
func NewMock(cfg tts.EngineConfig) *Mock {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 22050
	}
	return &Mock{cfg: cfg}
}

func (m *Mock) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoad {
		return tts.ErrSynthesisFailed
	}
	m.loaded = true
	return nil
}

func (m *Mock) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded && !m.closed
}

func (m *Mock) Synthesize(ctx context.Context, text string) (*tts.Audio, error) {
	m.mu.Lock()
	if !m.loaded || m.closed {
		m.mu.Unlock()
		return nil, tts.ErrEngineNotLoaded
	}
	delay := m.Delay
	failOn := m.FailOn
	m.mu.Unlock()

	if text == "" {
		return nil, tts.ErrEmptyText
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failOn != "" && strings.Contains(text, failOn) {
		return nil, tts.ErrSynthesisFailed
	}

	m.mu.Lock()
	m.Synthesized = append(m.Synthesized, text)
	m.mu.Unlock()

	// 50ms of audio per word keeps outputs deterministic but length-aware.
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	n := m.cfg.SampleRate * words / 20
	return &tts.Audio{
		Samples:    make([]float32, n),
		SampleRate: m.cfg.SampleRate,
		Channels:   1,
	}, nil
}

func (m *Mock) Voices() []tts.Voice {
	return []tts.Voice{
		{ID: "mock-a", Name: "Mock A", Language: "en-US"},
		{ID: "mock-b", Name: "Mock B", Language: "en-GB"},
	}
}

func (m *Mock) SetVoice(id string) error {
	for _, v := range m.Voices() {
		if v.ID == id {
			m.mu.Lock()
			m.cfg.Voice = id
			m.mu.Unlock()
			return nil
		}
	}
	return tts.ErrVoiceNotFound
}

func (m *Mock) Type() tts.EngineType { return tts.EngineMock }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.loaded = false
	return nil
}

var _ tts.Engine = (*Mock)(nil)
