// Package overlay controls the lifecycle of the caption overlay window and
// resolves the address of the local transcription engine.
package overlay

import "fmt"

// WindowName is the logical name the overlay window is registered under.
// At most one window with this name exists at any time; the registry
// enforces that.
const WindowName = "overlay"

// DefaultEnginePort is used when the caller does not supply a port.
const DefaultEnginePort = 8765

// Options describes the fixed configuration of the overlay window.
type Options struct {
	Title       string
	Width       int
	Height      int
	AlwaysOnTop bool
	Frameless   bool
	Transparent bool
	SkipTaskbar bool
	Resizable   bool
}

// OverlayOptions returns the window configuration used for every overlay.
func OverlayOptions() Options {
	return Options{
		Title:       "EchoFlux Overlay",
		Width:       600,
		Height:      200,
		AlwaysOnTop: true,
		Frameless:   true,
		Transparent: true,
		SkipTaskbar: true,
		Resizable:   true,
	}
}

// Handle identifies a live window owned by the registry.
type Handle interface {
	Name() string
}

// Registry is the host-owned window table. Implementations serialize access
// to the named windows they manage; the controller takes no locks of its own.
type Registry interface {
	// Lookup reports whether a window with the given name currently exists.
	Lookup(name string) (Handle, bool)
	// Create builds a new window registered under name.
	Create(name string, opts Options) (Handle, error)
	// Close destroys the window behind the handle.
	Close(h Handle) error
}

// HostError wraps a failure reported by the host window system. There is
// exactly one error kind on this path today, but keeping it typed lets
// callers match on it instead of string-comparing.
type HostError struct {
	Op  string // "create" or "close"
	Err error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("window %s failed: %v", e.Op, e.Err)
}

func (e *HostError) Unwrap() error { return e.Err }

// EngineURL formats the WebSocket address of the local engine. A nil port
// selects DefaultEnginePort. The address is never dialed here.
func EngineURL(port *uint16) string {
	p := uint16(DefaultEnginePort)
	if port != nil {
		p = *port
	}
	return fmt.Sprintf("ws://127.0.0.1:%d", p)
}
