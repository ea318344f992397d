// Package cleanup prunes old session log files so long-lived installs do
// not grow without bound.
package cleanup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nmtuan2007/echo-flux/internal/logging"
)

// PruneSessionLogs deletes session log files beyond the keep newest ones.
// It returns the number of files removed.
func PruneSessionLogs(logsDir string, keep int) int {
	if keep < 0 {
		keep = 0
	}

	log := logging.Get("cleanup")

	entries, err := os.ReadDir(logsDir)
	if err != nil {
		log.WithError(err).Warn("failed to read logs directory")
		return 0
	}

	var sessions []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "session_") && strings.HasSuffix(name, ".log") {
			sessions = append(sessions, name)
		}
	}
	if len(sessions) <= keep {
		return 0
	}

	// Session filenames embed a sortable timestamp.
	sort.Strings(sessions)
	stale := sessions[:len(sessions)-keep]

	removed := 0
	for _, name := range stale {
		if err := os.Remove(filepath.Join(logsDir, name)); err != nil {
			log.WithError(err).Warnf("failed to remove %s", name)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.WithField("removed", removed).Info("pruned old session logs")
	}
	return removed
}
