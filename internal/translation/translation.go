// Package translation renders finalized transcript lines into the target
// language. The online backend is preferred; a local command-driven backend
// takes over when the network fails.
package translation

import "errors"

// Result pairs a source line with its translation.
type Result struct {
	SourceText     string
	TranslatedText string
	SourceLang     string
	TargetLang     string
	Confidence     float64
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend    string // online, local, fallback
	SourceLang string
	TargetLang string
	// Command is the local translator invocation, e.g. "argos-translate".
	// It receives --from-lang/--to-lang flags and the text on stdin.
	Command string
}

// Backend is a translation engine.
type Backend interface {
	Load(cfg Config) error
	Translate(text, sourceLang, targetLang string) (Result, error)
	Unload()
	Loaded() bool
	// SupportedPairs lists (source, target) language pairs, nil meaning
	// unrestricted.
	SupportedPairs() [][2]string
}

var (
	// ErrNotLoaded is returned when translating before Load.
	ErrNotLoaded = errors.New("translation backend not loaded")
	// ErrUnavailable means the backend is temporarily down (rate limit,
	// backoff, repeated failures).
	ErrUnavailable = errors.New("translation backend unavailable")
	// ErrEmptyResult means the backend produced no text.
	ErrEmptyResult = errors.New("empty translation result")
)
