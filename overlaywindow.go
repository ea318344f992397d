package main

import (
	"github.com/nmtuan2007/echo-flux/internal/overlay"
	"github.com/nmtuan2007/echo-flux/internal/settings"
)

// OverlayWindow is the backend bound into the overlay child process. The
// overlay page dials the engine itself; this just hands it the address
// and the display preferences.
type OverlayWindow struct {
	store *settings.Store
}

func NewOverlayWindow() *OverlayWindow {
	return &OverlayWindow{store: settings.NewStore(shellDataDir())}
}

// GetEngineURL returns the websocket address the overlay streams captions
// from. A nil port selects the default.
func (w *OverlayWindow) GetEngineURL(port *uint16) string {
	return overlay.EngineURL(port)
}

// GetSettings loads the display preferences shared with the shell.
func (w *OverlayWindow) GetSettings() (settings.Settings, error) {
	return w.store.Load()
}
