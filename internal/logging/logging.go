// Package logging wires logrus to the console, a per-session log file, and
// optionally to connected WebSocket clients.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	mu   sync.Mutex
	root *logrus.Logger
)

// Broadcaster pushes log lines to an out-of-process consumer, typically the
// WebSocket hub feeding the UI.
type Broadcaster interface {
	BroadcastLog(level, message string)
}

// Init configures the root logger: console plus a session file named
// session_YYYYMMDD_HHMMSS.log under logsDir. Calling it again returns the
// existing logger.
func Init(logsDir, level string) (*logrus.Logger, error) {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		return root, nil
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := fmt.Sprintf("session_%s.log", time.Now().Format("20060102_150405"))
		f, err := os.OpenFile(filepath.Join(logsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open session log: %w", err)
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, f))
		logger.WithField("file", f.Name()).Info("logging initialized")
	}

	root = logger
	return root, nil
}

// Get returns a component-scoped entry ("audio.vad", "translation.online").
func Get(component string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		root = logrus.New()
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return root.WithField("component", component)
}

// AttachBroadcaster mirrors Info and above to the given broadcaster.
func AttachBroadcaster(b Broadcaster) {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		return
	}
	root.AddHook(&broadcastHook{b: b})
}

type broadcastHook struct {
	b Broadcaster
}

func (h *broadcastHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
}

func (h *broadcastHook) Fire(entry *logrus.Entry) error {
	h.b.BroadcastLog(entry.Level.String(), entry.Message)
	return nil
}
