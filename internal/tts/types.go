package tts

import (
	"fmt"
	"time"
)

// EngineType identifies a TTS engine implementation.
type EngineType string

const (
	// EngineSherpa is the built-in sherpa-onnx engine running VITS-style
	// models in-process.
	EngineSherpa EngineType = "sherpa"

	// EnginePiper shells out to the piper binary for synthesis.
	EnginePiper EngineType = "piper"

	// EngineMock is a deterministic engine used in tests.
	EngineMock EngineType = "mock"
)

// Voice identifies a speaker the active engine can synthesize with.
type Voice struct {
	// ID is the engine-specific voice identifier.
	ID string

	// Name is a human-readable label.
	Name string

	// Language is a BCP-47 language code (e.g. "en-US").
	Language string

	// Gender is the voice gender if the engine reports one.
	Gender string
}

// Audio holds synthesized PCM samples.
type Audio struct {
	// Samples are mono or interleaved float32 samples in [-1, 1].
	Samples []float32

	// SampleRate is the sample rate in Hz.
	SampleRate int

	// Channels is the number of interleaved channels.
	Channels int
}

// Duration returns the playback duration of the audio.
func (a *Audio) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}
	frames := len(a.Samples) / a.Channels
	return time.Duration(float64(frames) / float64(a.SampleRate) * float64(time.Second))
}

// Append concatenates other onto a. Sample rates and channel counts must
// match; mixed-format concatenation is not supported.
func (a *Audio) Append(other *Audio) error {
	if other == nil || len(other.Samples) == 0 {
		return nil
	}
	if len(a.Samples) == 0 {
		a.SampleRate = other.SampleRate
		a.Channels = other.Channels
	}
	if a.SampleRate != other.SampleRate {
		return fmt.Errorf("%w: %d Hz vs %d Hz", ErrSampleRateMismatch, a.SampleRate, other.SampleRate)
	}
	if a.Channels != other.Channels {
		return fmt.Errorf("%w: %d channels vs %d channels", ErrSampleRateMismatch, a.Channels, other.Channels)
	}
	a.Samples = append(a.Samples, other.Samples...)
	return nil
}

// AppendSilence appends d worth of silence at the audio's sample rate.
func (a *Audio) AppendSilence(d time.Duration) {
	if a.SampleRate <= 0 || a.Channels <= 0 || d <= 0 {
		return
	}
	n := int(float64(a.SampleRate)*d.Seconds()) * a.Channels
	a.Samples = append(a.Samples, make([]float32, n)...)
}

// Chunk is a synthesizable unit of document text. Chunks are the
// granularity at which the pipeline observes pause and stop requests.
type Chunk struct {
	// Index is the chunk's position within the document.
	Index int

	// Text is the plain text to synthesize.
	Text string

	// Estimate is the estimated speaking duration.
	Estimate time.Duration
}

// EngineConfig holds settings shared by all engine implementations.
type EngineConfig struct {
	// Voice is the engine-specific voice identifier.
	Voice string

	// Speed is the speech rate multiplier (1.0 = normal).
	Speed float64

	// ModelDir is the directory holding model files for local engines.
	ModelDir string

	// Binary is the external synthesizer binary for subprocess engines.
	Binary string

	// SampleRate is the requested output sample rate in Hz.
	SampleRate int
}

// Progress reports how far a conversion has gotten through a document.
type Progress struct {
	Chunk       int           // Current chunk index (0-based)
	TotalChunks int           // Total chunks in the document
	Synthesized time.Duration // Audio produced so far
}

// Percent returns completion as a value between 0 and 1.
func (p Progress) Percent() float64 {
	if p.TotalChunks <= 0 {
		return 0
	}
	return float64(p.Chunk) / float64(p.TotalChunks)
}
