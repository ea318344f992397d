package overlay

import "github.com/sirupsen/logrus"

// Controller exposes the overlay window operations invoked from the UI
// layer. It holds no window state of its own; existence is re-queried from
// the registry on every call, so an overlay closed out-of-band is simply
// recreated on the next CreateOverlay.
type Controller struct {
	registry Registry
	log      *logrus.Entry
}

// NewController builds a controller over the given registry.
func NewController(registry Registry, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{registry: registry, log: log}
}

// CreateOverlay ensures the overlay window exists. If a window named
// "overlay" is already registered this is a no-op returning nil: the first
// creator wins and later callers observe success without re-creating.
func (c *Controller) CreateOverlay() error {
	if _, ok := c.registry.Lookup(WindowName); ok {
		c.log.Debug("overlay window already exists")
		return nil
	}

	if _, err := c.registry.Create(WindowName, OverlayOptions()); err != nil {
		return &HostError{Op: "create", Err: err}
	}
	c.log.Info("overlay window created")
	return nil
}

// CloseOverlay closes the overlay window if it exists. A missing window is
// treated as success, matching CreateOverlay's idempotent posture.
func (c *Controller) CloseOverlay() error {
	h, ok := c.registry.Lookup(WindowName)
	if !ok {
		return nil
	}

	if err := c.registry.Close(h); err != nil {
		return &HostError{Op: "close", Err: err}
	}
	c.log.Info("overlay window closed")
	return nil
}
