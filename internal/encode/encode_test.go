package encode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestUnavailableEncoder(t *testing.T) {
	e := NewWithBinary("")

	if e.Available() {
		t.Error("encoder with no binary should not be available")
	}
	if err := e.Encode(context.Background(), "in.wav", "out.mp3"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if err := e.Optimize(context.Background(), "out.mp3"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

// fakeFFmpeg writes a shell script that copies its "-y <out>" argument
// from a canned payload, standing in for a real ffmpeg binary.
func fakeFFmpeg(t *testing.T, payload string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake not portable to windows")
	}

	script := filepath.Join(t.TempDir(), "ffmpeg")
	body := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-y" ]; then out="$2"; fi
  shift
done
printf '%s' '` + payload + `' > "$out"
`
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return script
}

func TestEncodeWritesViaTempFile(t *testing.T) {
	e := NewWithBinary(fakeFFmpeg(t, "mp3-bytes"))

	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	dst := filepath.Join(dir, "out.mp3")
	if err := os.WriteFile(src, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := e.Encode(context.Background(), src, dst); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Errorf("unexpected output contents: %q", data)
	}
	if _, err := os.Stat(dst + ".part"); !os.IsNotExist(err) {
		t.Error("temp file left behind after encode")
	}
}

func TestEncodeFailureSurfacesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake not portable to windows")
	}

	script := filepath.Join(t.TempDir(), "ffmpeg")
	body := "#!/bin/sh\necho 'in.wav: Invalid data found' >&2\nexit 1\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	e := NewWithBinary(script)
	err := e.Encode(context.Background(), "in.wav", filepath.Join(t.TempDir(), "out.mp3"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); !strings.Contains(got, "Invalid data found") {
		t.Errorf("expected stderr in error, got %q", got)
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"one line", "one line"},
		{"first\nsecond\n", "second"},
		{"first\n  padded  \n\n", "padded"},
	}
	for _, tt := range tests {
		if got := lastLine(tt.in); got != tt.want {
			t.Errorf("lastLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
