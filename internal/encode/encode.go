// Package encode converts WAV output to MP3 by shelling out to ffmpeg.
// When ffmpeg is not installed the encoder reports itself unavailable
// and the pipeline falls back to writing WAV files.
package encode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrUnavailable is returned when ffmpeg cannot be found on PATH.
var ErrUnavailable = errors.New("ffmpeg not found on PATH")

// Bitrate is the MP3 bitrate used for encoded output.
const Bitrate = "192k"

// Encoder wraps the ffmpeg binary.
type Encoder struct {
	binary string
}

// New locates ffmpeg. The returned encoder is usable even when ffmpeg
// is missing; Available reports which case applies.
func New() *Encoder {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		log.Debug("ffmpeg not found, MP3 output disabled")
		return &Encoder{}
	}
	return &Encoder{binary: path}
}

// NewWithBinary wraps an explicit ffmpeg path, mainly for tests.
func NewWithBinary(path string) *Encoder {
	return &Encoder{binary: path}
}

// Available reports whether MP3 encoding can run.
func (e *Encoder) Available() bool { return e.binary != "" }

// Encode converts src (WAV) into an MP3 at dst. The file is written
// under a temporary name and renamed into place on success, so an
// interrupted encode never leaves a half-written MP3 behind. Metadata
// from the source is stripped.
func (e *Encoder) Encode(ctx context.Context, src, dst string) error {
	if !e.Available() {
		return ErrUnavailable
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("could not create output dir: %w", err)
	}

	part := dst + ".part"
	defer os.Remove(part)

	args := []string{
		"-i", src,
		"-b:a", Bitrate,
		"-map_metadata", "-1",
		"-f", "mp3",
		"-y", part,
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	log.Debug("encoding", "src", src, "dst", dst)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}

	if err := os.Rename(part, dst); err != nil {
		return fmt.Errorf("could not move encoded file into place: %w", err)
	}
	return nil
}

// Optimize re-encodes an existing MP3 in place at the standard bitrate
// with metadata stripped, shrinking files produced by other tools.
func (e *Encoder) Optimize(ctx context.Context, path string) error {
	if !e.Available() {
		return ErrUnavailable
	}

	tmp := path + ".part"
	defer os.Remove(tmp)

	args := []string{
		"-i", path,
		"-b:a", Bitrate,
		"-map_metadata", "-1",
		"-f", "mp3",
		"-y", tmp,
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}

	return os.Rename(tmp, path)
}

// lastLine extracts the final non-empty line of ffmpeg's stderr, which
// is where it puts the actual error.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
