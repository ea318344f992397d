package overlay

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// ProcessRegistry realizes the window registry by running each named window
// as a child process of the shell binary started in window mode. The GUI
// toolkit owns one window per process, so one process per logical window
// name keeps at most one overlay alive at a time.
type ProcessRegistry struct {
	execPath string
	log      *logrus.Entry

	mu      sync.Mutex
	windows map[string]*processHandle
}

type processHandle struct {
	name string
	cmd  *exec.Cmd
}

func (h *processHandle) Name() string { return h.name }

// NewProcessRegistry returns a registry spawning windows from execPath.
// An empty execPath resolves to the current executable.
func NewProcessRegistry(execPath string, log *logrus.Entry) (*ProcessRegistry, error) {
	if execPath == "" {
		p, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable path: %w", err)
		}
		execPath = p
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ProcessRegistry{
		execPath: execPath,
		log:      log,
		windows:  make(map[string]*processHandle),
	}, nil
}

// Lookup reports whether a window process is currently registered under name.
func (r *ProcessRegistry) Lookup(name string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.windows[name]
	if !ok {
		return nil, false
	}
	return h, true
}

// Create spawns a window process for name. The options travel to the child
// on the command line; the child applies them when it builds its window.
func (r *ProcessRegistry) Create(name string, opts Options) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[name]; ok {
		return nil, fmt.Errorf("window %q already registered", name)
	}

	cmd := exec.Command(r.execPath, "-window", name)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start window process: %w", err)
	}

	h := &processHandle{name: name, cmd: cmd}
	r.windows[name] = h
	r.log.WithFields(logrus.Fields{"window": name, "pid": cmd.Process.Pid}).
		Info("window process started")

	// Reap the child and drop the table entry when it exits, including the
	// case where the user closes the window directly. Later Lookups then see
	// the window as absent without any staleness window beyond the reap.
	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		if cur, ok := r.windows[name]; ok && cur == h {
			delete(r.windows, name)
		}
		r.mu.Unlock()
		if err != nil {
			r.log.WithField("window", name).Debugf("window process exited: %v", err)
		}
	}()

	return h, nil
}

// Close terminates the window process behind the handle. Closing a handle
// whose process already exited is not an error.
func (r *ProcessRegistry) Close(h Handle) error {
	ph, ok := h.(*processHandle)
	if !ok {
		return fmt.Errorf("foreign window handle %T", h)
	}

	r.mu.Lock()
	cur, present := r.windows[ph.name]
	if present && cur == ph {
		delete(r.windows, ph.name)
	}
	r.mu.Unlock()

	if !present || cur != ph {
		return nil
	}

	if err := ph.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to stop window process: %w", err)
	}
	return nil
}
