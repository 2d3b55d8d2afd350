package engines

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kokorotts/kokoro/internal/audio"
	"github.com/kokorotts/kokoro/internal/tts"
)

// piperTimeout bounds a single chunk synthesis. Chunks are at most a
// few sentences, so anything longer means a wedged process.
const piperTimeout = 30 * time.Second

// Piper synthesizes by running the piper binary once per chunk with
// stdin pre-configured before the process starts. A fresh process per
// call costs a little startup time but cannot deadlock on pipes or leak
// state between chunks.
type Piper struct {
	mu         sync.RWMutex
	binary     string
	root       string // model file or directory as configured
	modelPath  string // resolved .onnx file
	configPath string
	voice      string
	speed      float64
	sampleRate int
	loaded     bool
}

// NewPiper creates a piper engine. cfg.ModelDir must contain exactly
// the .onnx model to use, or cfg.Voice may name the model file directly.
func NewPiper(cfg tts.EngineConfig) *Piper {
	binary := cfg.Binary
	if binary == "" {
		binary = "piper"
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1.0
	}
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 22050
	}
	return &Piper{
		binary:     binary,
		root:       cfg.ModelDir,
		voice:      cfg.Voice,
		speed:      speed,
		sampleRate: sampleRate,
	}
}

// Load resolves the binary and model file. No process is started; piper
// runs per synthesis call.
func (p *Piper) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	path, err := exec.LookPath(p.binary)
	if err != nil {
		return fmt.Errorf("piper binary not found: %w", err)
	}
	p.binary = path

	model, err := p.resolveModel()
	if err != nil {
		return err
	}
	p.modelPath = model
	p.configPath = strings.TrimSuffix(model, filepath.Ext(model)) + ".json"

	p.loaded = true
	return nil
}

// resolveModel finds the .onnx file to synthesize with. The voice name
// selects among multiple models in the model directory.
func (p *Piper) resolveModel() (string, error) {
	info, err := os.Stat(p.root)
	if err != nil {
		return "", fmt.Errorf("model path not accessible: %w", err)
	}
	if !info.IsDir() {
		return p.root, nil
	}

	matches, err := filepath.Glob(filepath.Join(p.root, "*.onnx"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no .onnx model found in %s", p.root)
	}
	if p.voice != "" {
		for _, m := range matches {
			if strings.Contains(filepath.Base(m), p.voice) {
				return m, nil
			}
		}
		return "", fmt.Errorf("%w: %q", tts.ErrVoiceNotFound, p.voice)
	}
	return matches[0], nil
}

func (p *Piper) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

func (p *Piper) Synthesize(ctx context.Context, text string) (*tts.Audio, error) {
	p.mu.RLock()
	if !p.loaded {
		p.mu.RUnlock()
		return nil, tts.ErrEngineNotLoaded
	}
	args := p.args()
	binary := p.binary
	sampleRate := p.sampleRate
	p.mu.RUnlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, piperTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)

	// Stdin must be set before the process starts; wiring it up
	// afterwards races with piper's first read.
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", tts.ErrSynthesisFailed, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v: %s", tts.ErrSynthesisFailed, err, strings.TrimSpace(stderr.String()))
	}

	raw := stdout.Bytes()
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: piper produced no audio: %s", tts.ErrSynthesisFailed, strings.TrimSpace(stderr.String()))
	}

	return &tts.Audio{
		Samples:    audio.SamplesFromPCM16(raw),
		SampleRate: sampleRate,
		Channels:   1,
	}, nil
}

// args builds the piper command line. Speed maps inversely onto piper's
// length scale: 2x speed means half-length audio.
func (p *Piper) args() []string {
	return []string{
		"--model", p.modelPath,
		"--config", p.configPath,
		"--output-raw",
		"--length-scale", fmt.Sprintf("%.2f", 1.0/p.speed),
	}
}

// Voices lists the .onnx models available next to the configured one.
func (p *Piper) Voices() []tts.Voice {
	p.mu.RLock()
	defer p.mu.RUnlock()

	dir := p.root
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.onnx"))
	if err != nil {
		return nil
	}
	voices := make([]tts.Voice, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".onnx")
		voices = append(voices, tts.Voice{ID: name, Name: name})
	}
	return voices
}

func (p *Piper) SetVoice(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.voice = id
	if !p.loaded {
		return nil
	}
	model, err := p.resolveModel()
	if err != nil {
		return err
	}
	p.modelPath = model
	p.configPath = strings.TrimSuffix(model, filepath.Ext(model)) + ".json"
	return nil
}

func (p *Piper) Type() tts.EngineType { return tts.EnginePiper }

func (p *Piper) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = false
	return nil
}

var _ tts.Engine = (*Piper)(nil)
