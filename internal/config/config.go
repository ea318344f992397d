// Package config loads the layered engine configuration: compiled defaults,
// then config.json from the data directory, then ECHOFLUX_* environment
// overrides. Keys are addressed with dotted paths ("asr.model_size").
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Defaults for every known key. Anything absent from the user's config.json
// falls back to these.
var defaults = map[string]interface{}{
	"engine.host": "127.0.0.1",
	"engine.port": 8765,

	"audio.source":      "microphone",
	"audio.sample_rate": 16000,
	"audio.channels":    1,
	"audio.chunk_ms":    20,
	"audio.format":      "int16",
	"audio.device_id":   "",

	"asr.backend":      "whisper",
	"asr.model_size":   "small",
	"asr.language":     "en",
	"asr.compute_type": "float16",
	"asr.device":       "auto",
	"asr.model_path":   "",

	"translation.enabled":     false,
	"translation.backend":     "online",
	"translation.source_lang": "en",
	"translation.target_lang": "vi",
	"translation.command":     "",

	"vad.enabled":   true,
	"vad.threshold": 0.5,

	"logging.level":        "info",
	"logging.max_bytes":    10485760,
	"logging.backup_count": 5,
}

// envBindings maps environment variables onto config keys. The names are
// not derivable from the keys, so each one is bound explicitly.
var envBindings = map[string]string{
	"engine.host":             "ECHOFLUX_HOST",
	"engine.port":             "ECHOFLUX_PORT",
	"audio.source":            "ECHOFLUX_AUDIO_SOURCE",
	"audio.sample_rate":       "ECHOFLUX_SAMPLE_RATE",
	"audio.chunk_ms":          "ECHOFLUX_CHUNK_MS",
	"audio.device_id":         "ECHOFLUX_AUDIO_DEVICE_ID",
	"asr.backend":             "ECHOFLUX_ASR_BACKEND",
	"asr.model_size":          "ECHOFLUX_MODEL_SIZE",
	"asr.language":            "ECHOFLUX_LANGUAGE",
	"asr.compute_type":        "ECHOFLUX_COMPUTE_TYPE",
	"asr.device":              "ECHOFLUX_DEVICE",
	"asr.model_path":          "ECHOFLUX_ASR_MODEL_PATH",
	"translation.enabled":     "ECHOFLUX_TRANSLATION_ENABLED",
	"translation.backend":     "ECHOFLUX_TRANSLATION_BACKEND",
	"translation.source_lang": "ECHOFLUX_SOURCE_LANG",
	"translation.target_lang": "ECHOFLUX_TARGET_LANG",
	"translation.command":     "ECHOFLUX_TRANSLATION_COMMAND",
	"vad.enabled":             "ECHOFLUX_VAD_ENABLED",
	"vad.threshold":           "ECHOFLUX_VAD_THRESHOLD",
	"logging.level":           "ECHOFLUX_LOG_LEVEL",
}

// Config is the merged configuration tree plus the resolved data layout.
type Config struct {
	v          *viper.Viper
	dataDir    string
	configPath string
}

// Load builds the configuration. configPath may be empty, in which case
// config.json inside the data directory is used. A missing file is fine;
// defaults and environment overrides still apply.
func Load(configPath string) (*Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configPath == "" {
		configPath = filepath.Join(dataDir, "config.json")
	}
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				if _, pathErr := err.(*os.PathError); !pathErr {
					return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
				}
			}
		}
	}

	c := &Config{v: v, dataDir: dataDir, configPath: configPath}
	for _, dir := range []string{c.dataDir, c.ModelsDir(), c.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return c, nil
}

func resolveDataDir() (string, error) {
	if override := os.Getenv("ECHOFLUX_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("USERPROFILE"); base != "" {
			home = base
		}
		return filepath.Join(home, ".echoflux"), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "EchoFlux"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "echoflux"), nil
		}
		return filepath.Join(home, ".local", "share", "echoflux"), nil
	}
}

// GetString returns the string value at the dotted key.
func (c *Config) GetString(key string) string { return c.v.GetString(key) }

// GetInt returns the int value at the dotted key.
func (c *Config) GetInt(key string) int { return c.v.GetInt(key) }

// GetBool returns the bool value at the dotted key.
func (c *Config) GetBool(key string) bool { return c.v.GetBool(key) }

// GetFloat returns the float value at the dotted key.
func (c *Config) GetFloat(key string) float64 { return c.v.GetFloat64(key) }

// Set writes a value at the dotted key, shadowing file and default layers.
func (c *Config) Set(key string, value interface{}) { c.v.Set(key, value) }

// All returns the merged tree as nested maps.
func (c *Config) All() map[string]interface{} { return c.v.AllSettings() }

// Save writes the current tree back to the config file as JSON.
func (c *Config) Save() error {
	if err := c.v.WriteConfigAs(c.configPath); err != nil {
		return fmt.Errorf("failed to write config %s: %w", c.configPath, err)
	}
	return nil
}

// DataDir is the per-user EchoFlux directory.
func (c *Config) DataDir() string { return c.dataDir }

// ModelsDir holds downloaded ASR models. Overridable via ECHOFLUX_MODELS_DIR.
func (c *Config) ModelsDir() string {
	if override := os.Getenv("ECHOFLUX_MODELS_DIR"); override != "" {
		return override
	}
	return filepath.Join(c.dataDir, "models")
}

// LogsDir holds per-session log files.
func (c *Config) LogsDir() string { return filepath.Join(c.dataDir, "logs") }

// Path is the config file location in use.
func (c *Config) Path() string { return c.configPath }
