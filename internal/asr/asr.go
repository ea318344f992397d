// Package asr turns streamed PCM into partial and final transcript lines.
package asr

import "errors"

// Result is one emitted transcript update. Partial results revise the
// currently open line; a final result closes it.
type Result struct {
	Text       string
	Final      bool
	Confidence float64
	Language   string
}

// Config selects the model and how it runs.
type Config struct {
	ModelSize   string // tiny, base, small, medium, large
	ModelPath   string // explicit model file, overrides ModelSize lookup
	Language    string
	Device      string // auto, cpu, cuda
	ComputeType string // float16, int8
	ModelsDir   string
}

// Backend is a streaming speech recognizer.
type Backend interface {
	Load(cfg Config) error
	// TranscribeStream ingests one PCM chunk and returns a transcript
	// update when one is available, nil otherwise.
	TranscribeStream(chunk []byte) (*Result, error)
	// ResetStream discards buffered audio and open text.
	ResetStream()
	Unload()
	Loaded() bool
}

var (
	// ErrModelNotFound means no model file exists at the resolved path.
	ErrModelNotFound = errors.New("asr model not found")
	// ErrNotLoaded is returned when transcribing before Load.
	ErrNotLoaded = errors.New("asr backend not loaded")
)
