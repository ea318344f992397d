// Package crash captures panics from long-running goroutines and writes
// them to timestamped report files so field issues can be diagnosed after
// the fact.
package crash

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/sirupsen/logrus"
)

// Report is one captured panic.
type Report struct {
	Timestamp  time.Time
	Component  string
	Message    string
	StackTrace string
	Extra      map[string]string
}

// Reporter writes crash reports under a fixed directory.
type Reporter struct {
	reportsDir string
	log        *logrus.Entry
}

// NewReporter builds a reporter writing into reportsDir, creating it if
// needed.
func NewReporter(reportsDir string) *Reporter {
	if reportsDir == "" {
		reportsDir = "crash_reports"
	}
	os.MkdirAll(reportsDir, 0o755)
	return &Reporter{
		reportsDir: reportsDir,
		log:        logging.Get("crash"),
	}
}

// Recover is meant to be deferred at the top of a goroutine. It swallows
// a panic, writes a report, and lets the rest of the process keep running.
func (r *Reporter) Recover(component string, extra map[string]string) {
	v := recover()
	if v == nil {
		return
	}

	report := &Report{
		Timestamp:  time.Now(),
		Component:  component,
		Message:    fmt.Sprintf("%v", v),
		StackTrace: string(debug.Stack()),
		Extra:      extra,
	}

	path, err := r.write(report)
	if err != nil {
		r.log.WithError(err).Error("failed to write crash report")
		r.log.Errorf("panic in %s: %v\n%s", component, v, report.StackTrace)
		return
	}
	r.log.WithFields(logrus.Fields{
		"component": component,
		"report":    path,
	}).Errorf("recovered from panic: %v", v)
}

func (r *Reporter) write(report *Report) (string, error) {
	name := fmt.Sprintf("crash_%s_%s.txt",
		report.Timestamp.Format("20060102_150405"),
		sanitizeFilename(report.Component))
	path := filepath.Join(r.reportsDir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "Crash Report\n============\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", report.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Component: %s\n", report.Component)
	fmt.Fprintf(&b, "Error: %s\n\n", report.Message)
	if len(report.Extra) > 0 {
		fmt.Fprintf(&b, "Context\n=======\n")
		for k, v := range report.Extra {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
		fmt.Fprintf(&b, "\n")
	}
	fmt.Fprintf(&b, "Stack Trace\n===========\n%s\n", report.StackTrace)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")
	return replacer.Replace(name)
}
