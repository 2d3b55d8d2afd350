package engines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/kokorotts/kokoro/internal/tts"
)

// kokoroVoices are the speakers baked into the Kokoro v0.19 model, in
// speaker-ID order.
var kokoroVoices = []tts.Voice{
	{ID: "af", Name: "Default (American female)", Language: "en-US", Gender: "female"},
	{ID: "af_bella", Name: "Bella", Language: "en-US", Gender: "female"},
	{ID: "af_nicole", Name: "Nicole", Language: "en-US", Gender: "female"},
	{ID: "af_sarah", Name: "Sarah", Language: "en-US", Gender: "female"},
	{ID: "af_sky", Name: "Sky", Language: "en-US", Gender: "female"},
	{ID: "am_adam", Name: "Adam", Language: "en-US", Gender: "male"},
	{ID: "am_michael", Name: "Michael", Language: "en-US", Gender: "male"},
	{ID: "bf_emma", Name: "Emma", Language: "en-GB", Gender: "female"},
	{ID: "bf_isabella", Name: "Isabella", Language: "en-GB", Gender: "female"},
	{ID: "bm_george", Name: "George", Language: "en-GB", Gender: "male"},
	{ID: "bm_lewis", Name: "Lewis", Language: "en-GB", Gender: "male"},
}

// Sherpa runs the Kokoro ONNX model in process through sherpa-onnx.
// The model loads once and is shared read-only across a whole run, so
// repeated jobs pay the load cost a single time.
type Sherpa struct {
	mu       sync.Mutex
	modelDir string
	voice    string
	speed    float64
	tts      *sherpa.OfflineTts
}

// NewSherpa creates a sherpa engine over the model files in
// cfg.ModelDir (model.onnx, voices.bin, tokens.txt, espeak-ng-data).
func NewSherpa(cfg tts.EngineConfig) *Sherpa {
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1.0
	}
	voice := cfg.Voice
	if voice == "" {
		voice = kokoroVoices[0].ID
	}
	return &Sherpa{
		modelDir: cfg.ModelDir,
		voice:    voice,
		speed:    speed,
	}
}

// Load reads the model into memory. This takes a few seconds for the
// Kokoro model and must complete before any Synthesize call.
func (s *Sherpa) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tts != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	model := filepath.Join(s.modelDir, "model.onnx")
	if _, err := os.Stat(model); err != nil {
		return fmt.Errorf("kokoro model not found: %w", err)
	}

	config := sherpa.OfflineTtsConfig{
		Model: sherpa.OfflineTtsModelConfig{
			Kokoro: sherpa.OfflineTtsKokoroModelConfig{
				Model:   model,
				Voices:  filepath.Join(s.modelDir, "voices.bin"),
				Tokens:  filepath.Join(s.modelDir, "tokens.txt"),
				DataDir: filepath.Join(s.modelDir, "espeak-ng-data"),
			},
			NumThreads: 2,
		},
		MaxNumSentences: 1,
	}

	engine := sherpa.NewOfflineTts(&config)
	if engine == nil {
		return fmt.Errorf("failed to initialize sherpa-onnx with model in %s", s.modelDir)
	}
	s.tts = engine
	return nil
}

func (s *Sherpa) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tts != nil
}

// Synthesize generates audio for text with the active voice. The
// underlying C call cannot be interrupted, so ctx is only checked
// before starting; the per-chunk text limit keeps each call short.
func (s *Sherpa) Synthesize(ctx context.Context, text string) (*tts.Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tts == nil {
		return nil, tts.ErrEngineNotLoaded
	}
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	generated := s.tts.Generate(text, s.speakerID(), float32(s.speed))
	if generated == nil || len(generated.Samples) == 0 {
		return nil, fmt.Errorf("%w: model produced no audio", tts.ErrSynthesisFailed)
	}

	return &tts.Audio{
		Samples:    generated.Samples,
		SampleRate: generated.SampleRate,
		Channels:   1,
	}, nil
}

func (s *Sherpa) speakerID() int {
	for i, v := range kokoroVoices {
		if v.ID == s.voice {
			return i
		}
	}
	return 0
}

func (s *Sherpa) Voices() []tts.Voice {
	voices := make([]tts.Voice, len(kokoroVoices))
	copy(voices, kokoroVoices)
	return voices
}

func (s *Sherpa) SetVoice(id string) error {
	for _, v := range kokoroVoices {
		if v.ID == id {
			s.mu.Lock()
			s.voice = id
			s.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", tts.ErrVoiceNotFound, id)
}

func (s *Sherpa) Type() tts.EngineType { return tts.EngineSherpa }

func (s *Sherpa) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tts != nil {
		sherpa.DeleteOfflineTts(s.tts)
		s.tts = nil
	}
	return nil
}

var _ tts.Engine = (*Sherpa)(nil)
