package translation

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/sirupsen/logrus"
)

// Local shells out to an offline translator command per request. The
// command reads source text on stdin and writes the translation to stdout,
// the contract argos-translate and compatible tools follow.
type Local struct {
	command string
	log     *logrus.Entry
	loaded  bool

	// run executes the translator. Replaceable in tests.
	run func(command string, args []string, stdin string) (string, error)
}

// NewLocal builds the backend around the given command name.
func NewLocal(command string) *Local {
	l := &Local{
		command: command,
		log:     logging.Get("translation.local"),
	}
	l.run = runCommand
	return l
}

// Load verifies the translator command exists.
func (l *Local) Load(cfg Config) error {
	if l.command == "" {
		l.command = cfg.Command
	}
	if l.command == "" {
		l.command = "argos-translate"
	}
	if _, err := exec.LookPath(l.command); err != nil {
		return fmt.Errorf("local translator %q not found: %w", l.command, err)
	}
	l.loaded = true
	l.log.WithField("command", l.command).Info("local translation backend ready")
	return nil
}

// Loaded reports readiness.
func (l *Local) Loaded() bool { return l.loaded }

// Unload drops readiness.
func (l *Local) Unload() { l.loaded = false }

// SupportedPairs is unknown for an external command.
func (l *Local) SupportedPairs() [][2]string { return nil }

// Translate runs the command once for the given line.
func (l *Local) Translate(text, sourceLang, targetLang string) (Result, error) {
	if !l.loaded {
		return Result{}, ErrNotLoaded
	}

	result := Result{SourceText: text, SourceLang: sourceLang, TargetLang: targetLang}
	out, err := l.run(l.command, []string{"--from-lang", sourceLang, "--to-lang", targetLang}, text)
	if err != nil {
		return Result{}, fmt.Errorf("local translation failed: %w", err)
	}

	translated := strings.TrimSpace(out)
	if translated == "" {
		return Result{}, ErrEmptyResult
	}
	result.TranslatedText = translated
	return result, nil
}

func runCommand(command string, args []string, stdin string) (string, error) {
	cmd := exec.Command(command, args...)
	cmd.Stdin = strings.NewReader(stdin)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return out.String(), nil
}
