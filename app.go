package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/nmtuan2007/echo-flux/internal/overlay"
	"github.com/nmtuan2007/echo-flux/internal/settings"
)

// engineBinary is the caption engine executable the shell manages. It is
// looked up next to the shell first, then on PATH.
const engineBinary = "echoflux-engine"

// App is the desktop shell backend. Its exported methods are callable
// from the frontend.
type App struct {
	ctx      context.Context
	log      *logrus.Entry
	store    *settings.Store
	control  *overlay.Controller
	registry overlay.Registry

	engineMu  sync.Mutex
	engineCmd *exec.Cmd
}

// NewApp wires the shell against its settings store and window registry.
func NewApp() *App {
	log := logging.Get("shell")

	registry, err := overlay.NewProcessRegistry("", log)
	if err != nil {
		log.WithError(err).Fatal("failed to build window registry")
	}
	return &App{
		log:      log,
		store:    settings.NewStore(shellDataDir()),
		control:  overlay.NewController(registry, log),
		registry: registry,
	}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	prefs, err := a.store.Load()
	if err != nil {
		a.log.WithError(err).Warn("failed to load settings, using defaults")
	}
	if prefs.AutostartEngine {
		if err := a.StartEngine(); err != nil {
			a.log.WithError(err).Warn("engine autostart failed")
		}
	}
	if prefs.AutoOpenOverlay {
		if err := a.CreateOverlayWindow(); err != nil {
			a.log.WithError(err).Warn("failed to open overlay on startup")
		}
	}
}

func (a *App) shutdown(ctx context.Context) {
	a.CloseOverlayWindow()
	a.StopEngine()
}

// GetEngineURL returns the websocket address of the local caption engine.
// A nil port selects the default.
func (a *App) GetEngineURL(port *uint16) string {
	return overlay.EngineURL(port)
}

// CreateOverlayWindow opens the caption overlay. Calling it while the
// overlay is already open does nothing.
func (a *App) CreateOverlayWindow() error {
	return a.control.CreateOverlay()
}

// CloseOverlayWindow closes the overlay if it is open.
func (a *App) CloseOverlayWindow() error {
	return a.control.CloseOverlay()
}

// GetSettings loads the persisted shell preferences.
func (a *App) GetSettings() (settings.Settings, error) {
	return a.store.Load()
}

// SaveSettings persists shell preferences.
func (a *App) SaveSettings(prefs settings.Settings) error {
	return a.store.Save(prefs)
}

// StartEngine launches the caption engine as a child process. Starting
// while it is already running is a no-op.
func (a *App) StartEngine() error {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()

	if a.engineCmd != nil {
		return nil
	}

	path, err := findEngineBinary()
	if err != nil {
		return fmt.Errorf("engine binary not found: %w", err)
	}

	prefs, _ := a.store.Load()
	cmd := exec.Command(path, "-port", fmt.Sprintf("%d", prefs.EnginePort))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	a.engineCmd = cmd
	a.log.WithField("pid", cmd.Process.Pid).Info("engine started")

	go func() {
		err := cmd.Wait()
		a.engineMu.Lock()
		if a.engineCmd == cmd {
			a.engineCmd = nil
		}
		a.engineMu.Unlock()
		if err != nil {
			a.log.WithError(err).Warn("engine exited")
		} else {
			a.log.Info("engine exited")
		}
	}()
	return nil
}

// StopEngine terminates the engine process if the shell started one.
func (a *App) StopEngine() {
	a.engineMu.Lock()
	cmd := a.engineCmd
	a.engineCmd = nil
	a.engineMu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil {
		a.log.WithError(err).Warn("failed to stop engine")
		return
	}
	a.log.Info("engine stopped")
}

// EngineStatus probes the engine's local API and returns its status
// document, or an error when the engine is unreachable.
func (a *App) EngineStatus() (map[string]interface{}, error) {
	prefs, _ := a.store.Load()
	url := fmt.Sprintf("http://127.0.0.1:%d/api/status", prefs.EnginePort)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("bad status response: %w", err)
	}
	return status, nil
}

// EngineRunning reports whether the shell-managed engine is alive.
func (a *App) EngineRunning() bool {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.engineCmd != nil
}

func findEngineBinary() (string, error) {
	name := engineBinary
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return exec.LookPath(name)
}

// shellDataDir resolves where the shell keeps its settings. The engine's
// data directory lives in the same place.
func shellDataDir() string {
	if dir := os.Getenv("ECHOFLUX_DATA_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "EchoFlux")
}
