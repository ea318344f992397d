// Package audio captures raw PCM from the microphone or system loopback and
// gates it through voice activity detection before transcription.
package audio

import "errors"

// SourceType selects where audio comes from.
type SourceType string

const (
	SourceMicrophone SourceType = "microphone"
	SourceSystem     SourceType = "system"
)

// Device describes a capture device the platform recorder exposes.
type Device struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	SourceType SourceType `json:"sourceType"`
	SampleRate int        `json:"sampleRate"`
	Channels   int        `json:"channels"`
}

// Settings is the capture format shared by every input. PCM is signed
// 16-bit little-endian throughout.
type Settings struct {
	SampleRate int
	Channels   int
	ChunkMs    int
	DeviceID   string
}

// ChunkBytes is the size of one ReadChunk payload for these settings.
func (s Settings) ChunkBytes() int {
	return s.SampleRate * s.Channels * 2 * s.ChunkMs / 1000
}

// Input is a running or stopped audio source.
type Input interface {
	Start() error
	Stop()
	// ReadChunk blocks for the next chunk of PCM. It returns ErrStopped
	// once the source is stopped and drained.
	ReadChunk() ([]byte, error)
	Active() bool
}

var (
	// ErrStopped is returned by ReadChunk after Stop.
	ErrStopped = errors.New("audio input stopped")
	// ErrNoDevice indicates no usable capture device was found.
	ErrNoDevice = errors.New("no capture device found")
	// ErrNoRecorder indicates no supported recorder binary is installed.
	ErrNoRecorder = errors.New("no supported audio recorder found")
)
