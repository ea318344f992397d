package audio

import (
	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/sirupsen/logrus"
)

// Manager wraps the active audio source. Switching sources stops the old
// one first; only one source captures at a time.
type Manager struct {
	settings Settings
	source   Input
	device   *Device
	log      *logrus.Entry
}

// NewManager builds a manager for the given capture settings.
func NewManager(settings Settings) *Manager {
	return &Manager{
		settings: settings,
		log:      logging.Get("audio.input"),
	}
}

// SetSource installs a source, stopping whatever was active before.
func (m *Manager) SetSource(source Input, device *Device) {
	if m.source != nil && m.source.Active() {
		m.log.Info("stopping current audio source before switching")
		m.source.Stop()
	}
	m.source = source
	m.device = device
	m.log.WithField("device", deviceName(device)).Info("audio source set")
}

// Start begins capture on the configured source.
func (m *Manager) Start() error {
	if m.source == nil {
		return ErrNoDevice
	}
	m.log.Info("starting audio capture")
	return m.source.Start()
}

// Stop halts capture if active.
func (m *Manager) Stop() {
	if m.source != nil && m.source.Active() {
		m.log.Info("stopping audio capture")
		m.source.Stop()
	}
}

// ReadChunk proxies to the active source.
func (m *Manager) ReadChunk() ([]byte, error) {
	if m.source == nil {
		return nil, ErrNoDevice
	}
	return m.source.ReadChunk()
}

// Active reports whether a source is capturing.
func (m *Manager) Active() bool {
	return m.source != nil && m.source.Active()
}

// Settings returns the capture format in use.
func (m *Manager) Settings() Settings { return m.settings }

// CurrentDevice is the device behind the active source, if known.
func (m *Manager) CurrentDevice() *Device { return m.device }

func deviceName(d *Device) string {
	if d == nil {
		return "default"
	}
	return d.Name
}
