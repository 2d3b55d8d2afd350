package tts

import (
	"context"
	"time"
)

// Engine is a text-to-speech synthesizer. Implementations wrap a local
// model or an external binary; none of them perform synthesis themselves.
type Engine interface {
	// Load prepares the engine's model for use. For local engines this is
	// the expensive step: the model is read into memory once and shared
	// read-only across every job in a run. Load must be called before
	// Synthesize and fails fast if the model is missing or unreadable.
	Load(ctx context.Context) error

	// Loaded reports whether the model is ready for synthesis.
	Loaded() bool

	// Synthesize converts a chunk of plain text to audio.
	Synthesize(ctx context.Context, text string) (*Audio, error)

	// Voices returns the voices the loaded model provides.
	Voices() []Voice

	// SetVoice selects the active voice for subsequent synthesis.
	SetVoice(id string) error

	// Type returns the engine's identifier.
	Type() EngineType

	// Close releases the model and any subprocess resources.
	Close() error
}

// Chunker splits document text into synthesizable chunks.
type Chunker interface {
	// Split breaks text at sentence boundaries and packs the sentences
	// into chunks no longer than the chunker's size limit.
	Split(text string) []Chunk

	// EstimateDuration estimates speaking duration for text.
	EstimateDuration(text string) time.Duration
}
