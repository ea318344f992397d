package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecoverWritesReport(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(dir)

	func() {
		defer r.Recover("capture", map[string]string{"device": "default"})
		panic("buffer overrun")
	}()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("reports written = %d, want 1", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	body := string(data)
	for _, want := range []string{"buffer overrun", "capture", "device: default", "Stack Trace"} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q:\n%s", want, body)
		}
	}
}

func TestRecoverWithoutPanicIsQuiet(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(dir)

	func() {
		defer r.Recover("capture", nil)
	}()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("reports written = %d, want 0", len(entries))
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("audio/capture loop:1"); got != "audio_capture_loop_1" {
		t.Fatalf("sanitizeFilename = %q", got)
	}
}
