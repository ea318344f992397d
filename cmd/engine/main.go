// The caption engine: captures audio, transcribes it, optionally
// translates finalized lines, and serves results to overlay clients over
// a local websocket.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/nmtuan2007/echo-flux/internal/api"
	"github.com/nmtuan2007/echo-flux/internal/args"
	"github.com/nmtuan2007/echo-flux/internal/asr"
	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/nmtuan2007/echo-flux/internal/cleanup"
	"github.com/nmtuan2007/echo-flux/internal/config"
	"github.com/nmtuan2007/echo-flux/internal/crash"
	"github.com/nmtuan2007/echo-flux/internal/engine"
	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/nmtuan2007/echo-flux/internal/translation"
	"github.com/nmtuan2007/echo-flux/internal/ws"
)

func main() {
	parsed, err := args.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "echoflux-engine: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(parsed.ConfigFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "echoflux-engine: failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg, parsed)

	log, err := logging.Init(cfg.LogsDir(), cfg.GetString("logging.level"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "echoflux-engine: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	cleanup.PruneSessionLogs(cfg.LogsDir(), cfg.GetInt("logging.backup_count"))

	printBanner(cfg)

	reporter := crash.NewReporter(filepath.Join(cfg.DataDir(), "crash_reports"))

	hub := ws.NewHub(logging.Get("ws"))
	logging.AttachBroadcaster(hub)

	recognizer := asr.NewWhisperBackend("")
	if err := recognizer.Load(asr.Config{
		ModelSize:   cfg.GetString("asr.model_size"),
		ModelPath:   cfg.GetString("asr.model_path"),
		Language:    cfg.GetString("asr.language"),
		Device:      cfg.GetString("asr.device"),
		ComputeType: cfg.GetString("asr.compute_type"),
		ModelsDir:   cfg.ModelsDir(),
	}); err != nil {
		log.Fatalf("failed to load speech model: %v", err)
	}
	defer recognizer.Unload()

	translator := buildTranslator(cfg)

	settings := audio.Settings{
		SampleRate: cfg.GetInt("audio.sample_rate"),
		Channels:   cfg.GetInt("audio.channels"),
		ChunkMs:    cfg.GetInt("audio.chunk_ms"),
		DeviceID:   cfg.GetString("audio.device_id"),
	}
	source := audio.SourceType(cfg.GetString("audio.source"))
	manager := audio.NewManager(settings)
	manager.SetSource(audio.NewCaptureInput(settings, source), nil)

	vad := audio.NewVAD(cfg.GetBool("vad.enabled"), cfg.GetFloat("vad.threshold"))

	pipeline := engine.New(engine.Options{
		Audio:      manager,
		VAD:        vad,
		Recognizer: recognizer,
		Translator: translator,
		Out:        hub,
		Crash:      reporter,
		Translate:  cfg.GetBool("translation.enabled"),
		SourceLang: cfg.GetString("translation.source_lang"),
		TargetLang: cfg.GetString("translation.target_lang"),
	})
	pipeline.Bind(hub)

	server := api.NewServer(hub, pipeline, cfg)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		pipeline.Stop()
		if translator != nil {
			translator.Unload()
		}
		hub.Shutdown()
		os.Exit(0)
	}()

	if err := server.Run(cfg.GetString("engine.host"), cfg.GetInt("engine.port")); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// applyOverrides folds command-line flags over the loaded config. Flags
// win over the file and the environment alike.
func applyOverrides(cfg *config.Config, a *args.Args) {
	if a.ModelSize != "" {
		cfg.Set("asr.model_size", a.ModelSize)
	}
	if a.Language != "" {
		cfg.Set("asr.language", a.Language)
		cfg.Set("translation.source_lang", a.Language)
	}
	if a.TargetLang != "" {
		cfg.Set("translation.target_lang", a.TargetLang)
	}
	if a.Translate {
		cfg.Set("translation.enabled", true)
	}
	if a.Device != "" {
		cfg.Set("asr.device", a.Device)
	}
	if a.Source != "" {
		cfg.Set("audio.source", a.Source)
	}
	if a.Port != 0 {
		cfg.Set("engine.port", a.Port)
	}
	if a.NoVAD {
		cfg.Set("vad.enabled", false)
	}
	if a.LogLevel != "" {
		cfg.Set("logging.level", a.LogLevel)
	}
}

func buildTranslator(cfg *config.Config) translation.Backend {
	if !cfg.GetBool("translation.enabled") {
		return nil
	}

	tcfg := translation.Config{
		Backend:    cfg.GetString("translation.backend"),
		SourceLang: cfg.GetString("translation.source_lang"),
		TargetLang: cfg.GetString("translation.target_lang"),
		Command:    cfg.GetString("translation.command"),
	}

	chain := translation.NewFallback(
		translation.NewOnline(""),
		translation.NewLocal(tcfg.Command),
	)
	if err := chain.Load(tcfg); err != nil {
		logging.Get("main").Warnf("translation disabled: %v", err)
		return nil
	}
	return chain
}

func printBanner(cfg *config.Config) {
	header := color.New(color.FgHiCyan, color.Bold).SprintfFunc()
	item := color.New(color.FgHiBlue).SprintfFunc()
	divider := strings.Repeat("=", 50)

	fmt.Println(divider)
	fmt.Println(header("EchoFlux Caption Engine"))
	fmt.Println(divider)
	fmt.Printf("%s %s\n", item("[model]"), cfg.GetString("asr.model_size"))
	fmt.Printf("%s %s\n", item("[language]"), cfg.GetString("asr.language"))
	fmt.Printf("%s %s:%d\n", item("[listen]"), cfg.GetString("engine.host"), cfg.GetInt("engine.port"))
	fmt.Printf("%s %v\n", item("[translate]"), cfg.GetBool("translation.enabled"))
	fmt.Println(divider)
}
