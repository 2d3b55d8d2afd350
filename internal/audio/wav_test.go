package audio

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/kokorotts/kokoro/internal/tts"
)

func sine(freq float64, rate, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return samples
}

func TestEncodeDecodeWAV(t *testing.T) {
	in := &tts.Audio{
		Samples:    sine(440, 22050, 2205),
		SampleRate: 22050,
		Channels:   1,
	}

	var buf bytes.Buffer
	if err := EncodeWAV(&buf, in); err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	// 44-byte header + 2 bytes per sample.
	if want := 44 + len(in.Samples)*2; buf.Len() != want {
		t.Errorf("encoded size = %d, want %d", buf.Len(), want)
	}

	out, err := DecodeWAV(&buf)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if out.SampleRate != in.SampleRate {
		t.Errorf("SampleRate = %d, want %d", out.SampleRate, in.SampleRate)
	}
	if out.Channels != 1 {
		t.Errorf("Channels = %d, want 1", out.Channels)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("sample count = %d, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range out.Samples {
		if diff := math.Abs(float64(out.Samples[i] - in.Samples[i])); diff > 1.0/32000 {
			t.Fatalf("sample %d differs by %f", i, diff)
		}
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "Empty", data: nil},
		{name: "Not RIFF", data: []byte("JUNKJUNKJUNKJUNK")},
		{name: "Truncated header", data: []byte("RIFF")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWAV(bytes.NewReader(tt.data)); err == nil {
				t.Error("DecodeWAV() should fail")
			}
		})
	}
}

func TestWriteReadWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	in := &tts.Audio{Samples: sine(220, 16000, 1600), SampleRate: 16000, Channels: 1}
	if err := WriteWAVFile(path, in); err != nil {
		t.Fatalf("WriteWAVFile() error = %v", err)
	}

	out, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("ReadWAVFile() error = %v", err)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Errorf("sample count = %d, want %d", len(out.Samples), len(in.Samples))
	}
}

func TestAudioAppend(t *testing.T) {
	a := &tts.Audio{}
	b := &tts.Audio{Samples: []float32{0.1, 0.2}, SampleRate: 22050, Channels: 1}
	c := &tts.Audio{Samples: []float32{0.3}, SampleRate: 22050, Channels: 1}

	if err := a.Append(b); err != nil {
		t.Fatalf("Append() into empty audio error = %v", err)
	}
	if err := a.Append(c); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(a.Samples) != 3 {
		t.Errorf("sample count = %d, want 3", len(a.Samples))
	}

	mismatched := &tts.Audio{Samples: []float32{0}, SampleRate: 44100, Channels: 1}
	if err := a.Append(mismatched); err == nil {
		t.Error("Append() with mismatched rate should fail")
	}
}

func TestAppendSilence(t *testing.T) {
	a := &tts.Audio{Samples: []float32{0.5}, SampleRate: 1000, Channels: 1}
	a.AppendSilence(250 * time.Millisecond)

	if len(a.Samples) != 1+250 {
		t.Errorf("sample count = %d, want 251", len(a.Samples))
	}
	for _, s := range a.Samples[1:] {
		if s != 0 {
			t.Fatal("silence samples must be zero")
		}
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	a := &tts.Audio{Samples: []float32{0, 0.25, -0.25, 1.0, -1.0}, SampleRate: 22050, Channels: 1}

	data := PCM16Bytes(a)
	if len(data) != len(a.Samples)*2 {
		t.Fatalf("byte count = %d, want %d", len(data), len(a.Samples)*2)
	}

	back := SamplesFromPCM16(data)
	for i, s := range back {
		if diff := math.Abs(float64(s - a.Samples[i])); diff > 1.0/32000 {
			t.Errorf("sample %d round-tripped to %f, want %f", i, s, a.Samples[i])
		}
	}
}
