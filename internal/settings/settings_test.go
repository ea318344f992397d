package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewStore(t.TempDir())

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("Load = %+v, want defaults", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested"))

	want := Settings{
		EnginePort:      9001,
		AutostartEngine: false,
		OverlayOpacity:  0.5,
		FontSize:        32,
		ShowOriginal:    false,
		ShowTranslation: true,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := os.WriteFile(store.Path(), []byte("font_size = 30\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.FontSize != 30 {
		t.Fatalf("FontSize = %d", got.FontSize)
	}
	if got.EnginePort != Defaults().EnginePort {
		t.Fatalf("EnginePort = %d, want default", got.EnginePort)
	}
}

func TestLoadCorruptFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := os.WriteFile(store.Path(), []byte("not [valid toml"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := store.Load()
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if got != Defaults() {
		t.Fatalf("Load = %+v, want defaults on parse failure", got)
	}
}
