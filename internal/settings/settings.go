// Package settings stores the desktop shell's preferences as a TOML file
// next to the engine's data. These are UI-side knobs; engine behavior is
// configured separately through the engine's own config.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Settings are the shell preferences persisted between runs.
type Settings struct {
	EnginePort      int     `toml:"engine_port" json:"engine_port"`
	AutostartEngine bool    `toml:"autostart_engine" json:"autostart_engine"`
	AutoOpenOverlay bool    `toml:"auto_open_overlay" json:"auto_open_overlay"`
	OverlayOpacity  float64 `toml:"overlay_opacity" json:"overlay_opacity"`
	FontSize        int     `toml:"font_size" json:"font_size"`
	ShowOriginal    bool    `toml:"show_original" json:"show_original"`
	ShowTranslation bool    `toml:"show_translation" json:"show_translation"`
}

// Defaults returns the settings a fresh install starts with.
func Defaults() Settings {
	return Settings{
		EnginePort:      8765,
		AutostartEngine: true,
		AutoOpenOverlay: false,
		OverlayOpacity:  0.85,
		FontSize:        24,
		ShowOriginal:    true,
		ShowTranslation: true,
	}
}

// Store reads and writes the settings file.
type Store struct {
	path string
}

// NewStore points at the settings file inside dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "settings.toml")}
}

// Path is the backing file's location.
func (s *Store) Path() string { return s.path }

// Load reads settings from disk. A missing file yields the defaults
// without error; unknown keys are ignored.
func (s *Store) Load() (Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return Defaults(), fmt.Errorf("failed to parse settings file: %w", err)
	}
	return settings, nil
}

// Save writes settings to disk, creating the directory if needed.
func (s *Store) Save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(settings); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}
