package audio

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/kokorotts/kokoro/internal/tts"
)

// Preview plays audio on the default output device and blocks until
// playback finishes or ctx is cancelled. It is used by `kokoro voices
// --preview`; batch conversion never plays audio.
func Preview(ctx context.Context, a *tts.Audio) error {
	if a == nil || len(a.Samples) == 0 {
		return fmt.Errorf("no audio to play")
	}

	channels := a.Channels
	if channels <= 0 {
		channels = 1
	}

	op := &oto.NewContextOptions{
		SampleRate:   a.SampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}
	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	// The reader must outlive the player; keep the byte slice reachable
	// until playback is done.
	data := PCM16Bytes(a)
	player := otoCtx.NewPlayer(bytes.NewReader(data))
	defer player.Close()

	player.Play()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
