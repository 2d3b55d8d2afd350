// Package audio provides WAV encoding and decoding plus local playback
// for synthesized speech.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kokorotts/kokoro/internal/tts"
)

var (
	// ErrNotWAV is returned when a file lacks a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a valid WAV file")

	// ErrUnsupportedFormat is returned for WAV files that are not PCM16.
	ErrUnsupportedFormat = errors.New("unsupported WAV format")
)

// EncodeWAV writes audio as a 16-bit PCM RIFF/WAVE stream. Samples are
// clamped to [-1, 1] before conversion.
func EncodeWAV(w io.Writer, a *tts.Audio) error {
	if a == nil || len(a.Samples) == 0 {
		return errors.New("no samples to encode")
	}
	if a.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", a.SampleRate)
	}
	channels := a.Channels
	if channels <= 0 {
		channels = 1
	}

	const bitsPerSample = 16
	dataSize := len(a.Samples) * 2
	byteRate := a.SampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(a.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	buf := make([]byte, 0, dataSize)
	for _, s := range a.Samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(sampleToPCM16(s)))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	return nil
}

// WriteWAVFile writes audio to path, creating or truncating the file.
func WriteWAVFile(path string, a *tts.Audio) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	if err := EncodeWAV(f, a); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close WAV file: %w", err)
	}
	return nil
}

// DecodeWAV reads a 16-bit PCM RIFF/WAVE stream. Unknown chunks (LIST,
// INFO, etc.) are skipped; chunk padding to even byte boundaries is
// honored.
func DecodeWAV(r io.Reader) (*tts.Audio, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		data          []byte
	)

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch chunkID {
		case "fmt ":
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, fmtData); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if len(fmtData) < 16 {
				return nil, ErrUnsupportedFormat
			}
			format := binary.LittleEndian.Uint16(fmtData[0:2])
			channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			if format != 1 || bitsPerSample != 16 {
				return nil, fmt.Errorf("%w: format=%d bits=%d", ErrUnsupportedFormat, format, bitsPerSample)
			}
		case "data":
			data = make([]byte, chunkSize)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("failed to read data chunk: %w", err)
			}
		default:
			if _, err := io.CopyN(io.Discard, r, chunkSize); err != nil {
				return nil, fmt.Errorf("failed to skip chunk %s: %w", chunkID, err)
			}
		}

		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			_, _ = io.CopyN(io.Discard, r, 1)
		}
	}

	if sampleRate == 0 {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768.0
	}

	return &tts.Audio{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// ReadWAVFile reads a WAV file from path.
func ReadWAVFile(path string) (*tts.Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// PCM16Bytes converts audio samples to raw interleaved PCM16LE bytes.
func PCM16Bytes(a *tts.Audio) []byte {
	buf := make([]byte, 0, len(a.Samples)*2)
	for _, s := range a.Samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(sampleToPCM16(s)))
	}
	return buf
}

// SamplesFromPCM16 converts raw PCM16LE bytes to float32 samples. A
// trailing odd byte is dropped.
func SamplesFromPCM16(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768.0
	}
	return samples
}

func sampleToPCM16(s float32) int16 {
	v := float64(s)
	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	return int16(math.Round(v * 32767.0))
}
