package config

import (
	"os"
	"path/filepath"
	"testing"
)

func load(t *testing.T, configJSON string) *Config {
	t.Helper()
	dataDir := t.TempDir()
	t.Setenv("ECHOFLUX_DATA_DIR", dataDir)

	path := filepath.Join(dataDir, "config.json")
	if configJSON != "" {
		if err := os.WriteFile(path, []byte(configJSON), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestDefaults(t *testing.T) {
	c := load(t, "")

	if got := c.GetString("engine.host"); got != "127.0.0.1" {
		t.Fatalf("engine.host = %q", got)
	}
	if got := c.GetInt("engine.port"); got != 8765 {
		t.Fatalf("engine.port = %d", got)
	}
	if got := c.GetString("asr.model_size"); got != "small" {
		t.Fatalf("asr.model_size = %q", got)
	}
	if !c.GetBool("vad.enabled") {
		t.Fatal("vad.enabled should default to true")
	}
	if c.GetBool("translation.enabled") {
		t.Fatal("translation.enabled should default to false")
	}
}

func TestFileOverridesDefaultsAndMerges(t *testing.T) {
	c := load(t, `{"engine": {"port": 9001}, "asr": {"language": "ja"}}`)

	if got := c.GetInt("engine.port"); got != 9001 {
		t.Fatalf("engine.port = %d, want 9001", got)
	}
	// Sibling keys inside overridden sections keep their defaults.
	if got := c.GetString("engine.host"); got != "127.0.0.1" {
		t.Fatalf("engine.host = %q", got)
	}
	if got := c.GetString("asr.language"); got != "ja" {
		t.Fatalf("asr.language = %q, want ja", got)
	}
	if got := c.GetString("asr.model_size"); got != "small" {
		t.Fatalf("asr.model_size = %q, want small", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ECHOFLUX_PORT", "7777")
	t.Setenv("ECHOFLUX_MODEL_SIZE", "medium")
	t.Setenv("ECHOFLUX_VAD_ENABLED", "false")

	c := load(t, `{"engine": {"port": 9001}}`)

	if got := c.GetInt("engine.port"); got != 7777 {
		t.Fatalf("engine.port = %d, want env override 7777", got)
	}
	if got := c.GetString("asr.model_size"); got != "medium" {
		t.Fatalf("asr.model_size = %q, want medium", got)
	}
	if c.GetBool("vad.enabled") {
		t.Fatal("vad.enabled should be overridden to false")
	}
}

func TestSetShadowsAllLayers(t *testing.T) {
	t.Setenv("ECHOFLUX_LANGUAGE", "de")
	c := load(t, "")

	c.Set("asr.language", "fr")
	if got := c.GetString("asr.language"); got != "fr" {
		t.Fatalf("asr.language = %q, want fr", got)
	}
}

func TestDirectoriesCreated(t *testing.T) {
	c := load(t, "")

	for _, dir := range []string{c.DataDir(), c.ModelsDir(), c.LogsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	c := load(t, "")
	c.Set("engine.port", 12000)
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(c.Path())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.GetInt("engine.port"); got != 12000 {
		t.Fatalf("reloaded engine.port = %d, want 12000", got)
	}
}

func TestModelsDirOverride(t *testing.T) {
	override := t.TempDir()
	t.Setenv("ECHOFLUX_MODELS_DIR", override)
	c := load(t, "")

	if got := c.ModelsDir(); got != override {
		t.Fatalf("ModelsDir = %q, want %q", got, override)
	}
}
