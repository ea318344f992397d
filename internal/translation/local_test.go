package translation

import (
	"errors"
	"testing"
)

func stubLocal(out string, err error) (*Local, *struct {
	command string
	args    []string
	stdin   string
}) {
	seen := &struct {
		command string
		args    []string
		stdin   string
	}{}
	l := NewLocal("argos-translate")
	l.loaded = true
	l.run = func(command string, args []string, stdin string) (string, error) {
		seen.command = command
		seen.args = args
		seen.stdin = stdin
		return out, err
	}
	return l, seen
}

func TestLocalTranslate(t *testing.T) {
	l, seen := stubLocal("xin chào\n", nil)

	res, err := l.Translate("hello", "en", "vi")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != "xin chào" {
		t.Fatalf("translated = %q, want trimmed output", res.TranslatedText)
	}
	if res.SourceText != "hello" || res.SourceLang != "en" || res.TargetLang != "vi" {
		t.Fatalf("result metadata = %+v", res)
	}
	if seen.command != "argos-translate" {
		t.Fatalf("command = %q", seen.command)
	}
	if seen.stdin != "hello" {
		t.Fatalf("stdin = %q", seen.stdin)
	}
	want := []string{"--from-lang", "en", "--to-lang", "vi"}
	if len(seen.args) != len(want) {
		t.Fatalf("args = %v", seen.args)
	}
	for i := range want {
		if seen.args[i] != want[i] {
			t.Fatalf("args = %v, want %v", seen.args, want)
		}
	}
}

func TestLocalTranslateBeforeLoad(t *testing.T) {
	l := NewLocal("argos-translate")
	if _, err := l.Translate("hello", "en", "vi"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("err = %v, want ErrNotLoaded", err)
	}
}

func TestLocalTranslateEmptyOutput(t *testing.T) {
	l, _ := stubLocal("   \n", nil)
	if _, err := l.Translate("hello", "en", "vi"); !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}

func TestLocalTranslateCommandFailure(t *testing.T) {
	boom := errors.New("exit status 1")
	l, _ := stubLocal("", boom)
	_, err := l.Translate("hello", "en", "vi")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped command error", err)
	}
}

func TestLocalLoadMissingCommand(t *testing.T) {
	l := NewLocal("echo-flux-no-such-translator")
	if err := l.Load(Config{}); err == nil {
		t.Fatal("Load should fail for a command not on PATH")
	}
	if l.Loaded() {
		t.Fatal("Loaded() = true after failed Load")
	}
}
