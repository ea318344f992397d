// Package args parses the engine's command line.
package args

import (
	"flag"
	"fmt"
)

// Args is the parsed command line for the caption engine.
type Args struct {
	ConfigFilePath string
	ModelSize      string
	Language       string
	TargetLang     string
	Translate      bool
	Device         string
	Source         string
	Port           int
	NoVAD          bool
	LogLevel       string
}

// Parse reads flags from argv (excluding the program name).
func Parse(argv []string) (*Args, error) {
	fs := flag.NewFlagSet("echoflux-engine", flag.ContinueOnError)

	configFilePath := fs.String("config", "", "Path to the configuration file (optional)")
	modelSize := fs.String("model", "", "Speech model size: tiny, base, small, medium, large")
	language := fs.String("lang", "", "Source language code, e.g. en")
	targetLang := fs.String("target-lang", "", "Translation target language code, e.g. vi")
	translate := fs.Bool("translate", false, "Translate finalized lines")
	device := fs.String("device", "", "Inference device: auto, cpu, cuda")
	source := fs.String("source", "", "Audio source: microphone or system")
	port := fs.Int("port", 0, "WebSocket server port (default from config)")
	noVAD := fs.Bool("no-vad", false, "Disable voice activity detection")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")

	fs.Usage = func() {
		fmt.Printf("Usage: %s [options]\n", fs.Name())
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}

	a := &Args{
		ConfigFilePath: *configFilePath,
		ModelSize:      *modelSize,
		Language:       *language,
		TargetLang:     *targetLang,
		Translate:      *translate,
		Device:         *device,
		Source:         *source,
		Port:           *port,
		NoVAD:          *noVAD,
		LogLevel:       *logLevel,
	}
	return a, a.validate()
}

func (a *Args) validate() error {
	switch a.ModelSize {
	case "", "tiny", "base", "small", "medium", "large":
	default:
		return fmt.Errorf("invalid model size %q", a.ModelSize)
	}
	switch a.Device {
	case "", "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("invalid device %q", a.Device)
	}
	switch a.Source {
	case "", "microphone", "system":
	default:
		return fmt.Errorf("invalid audio source %q", a.Source)
	}
	if a.Port < 0 || a.Port > 65535 {
		return fmt.Errorf("invalid port %d", a.Port)
	}
	return nil
}
