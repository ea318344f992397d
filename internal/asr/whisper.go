package asr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/sirupsen/logrus"
)

const (
	sampleRate = 16000

	// maxContextSamples caps the uncommitted audio window at 30 seconds.
	maxContextSamples = sampleRate * 30

	// inferenceInterval throttles how often the model runs.
	inferenceInterval = 300 * time.Millisecond

	// tailSilence closes an open line once this much trailing audio is
	// below the energy floor.
	tailSilence = 800 * time.Millisecond

	silenceFloor = 0.01
)

// WhisperBackend streams transcription through a whisper.cpp executable.
// Audio accumulates in a sliding window; the model re-transcribes the whole
// window on a throttle, emitting partials while the text keeps changing and
// a final once the speaker pauses.
type WhisperBackend struct {
	cfg    Config
	binary string
	log    *logrus.Entry

	// transcribe runs the model over a WAV file and returns plain text.
	// Replaceable in tests.
	transcribe func(wavPath string) (string, error)

	loaded    bool
	modelPath string

	buffer      []int16
	lastRun     time.Time
	lastPartial string
}

// NewWhisperBackend builds a backend running the given whisper.cpp binary.
// An empty binary name resolves "whisper-cli" then "whisper" from PATH at
// load time.
func NewWhisperBackend(binary string) *WhisperBackend {
	b := &WhisperBackend{
		binary: binary,
		log:    logging.Get("asr.whisper"),
	}
	b.transcribe = b.runBinary
	return b
}

// Load resolves the model file and recorder binary.
func (b *WhisperBackend) Load(cfg Config) error {
	device := cfg.Device
	if device == "" || device == "auto" {
		device = "cpu"
	}
	computeType := cfg.ComputeType
	if device == "cpu" && computeType == "float16" {
		computeType = "int8"
		b.log.Info("cpu mode: switched compute type to int8 for performance")
	}
	cfg.Device = device
	cfg.ComputeType = computeType

	modelPath := cfg.ModelPath
	if modelPath == "" {
		size := cfg.ModelSize
		if size == "" {
			size = "small"
		}
		modelPath = filepath.Join(cfg.ModelsDir, "ggml-"+size+".bin")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}

	if b.binary == "" {
		for _, name := range []string{"whisper-cli", "whisper"} {
			if path, err := exec.LookPath(name); err == nil {
				b.binary = path
				break
			}
		}
		if b.binary == "" {
			return fmt.Errorf("whisper binary not found in PATH")
		}
	}

	b.cfg = cfg
	b.modelPath = modelPath
	b.loaded = true
	b.ResetStream()

	b.log.WithFields(logrus.Fields{
		"model":   modelPath,
		"device":  device,
		"compute": computeType,
	}).Info("model loaded")
	return nil
}

// Loaded reports whether Load succeeded.
func (b *WhisperBackend) Loaded() bool { return b.loaded }

// Unload releases the model reference and clears stream state.
func (b *WhisperBackend) Unload() {
	b.loaded = false
	b.ResetStream()
}

// ResetStream discards buffered audio and the open partial line.
func (b *WhisperBackend) ResetStream() {
	b.buffer = nil
	b.lastPartial = ""
	b.lastRun = time.Time{}
}

// TranscribeStream ingests PCM and returns the next transcript update, if
// any. Inference runs at most once per inferenceInterval.
func (b *WhisperBackend) TranscribeStream(chunk []byte) (*Result, error) {
	if !b.loaded {
		return nil, ErrNotLoaded
	}

	b.ingest(chunk)

	// Not enough context for a useful pass yet.
	if len(b.buffer) < sampleRate/2 {
		return nil, nil
	}
	if time.Since(b.lastRun) < inferenceInterval {
		return nil, nil
	}
	b.lastRun = time.Now()

	wavPath, err := b.writeWindow()
	if err != nil {
		return nil, err
	}
	defer os.Remove(wavPath)

	text, err := b.transcribe(wavPath)
	if err != nil {
		return nil, fmt.Errorf("whisper inference failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if b.tailIsSilent() {
		// The speaker paused: commit the window and close the line.
		b.buffer = nil
		b.lastPartial = ""
		return &Result{Text: text, Final: true, Language: b.cfg.Language}, nil
	}

	if text == b.lastPartial {
		return nil, nil
	}
	b.lastPartial = text
	return &Result{Text: text, Final: false, Language: b.cfg.Language}, nil
}

func (b *WhisperBackend) ingest(chunk []byte) {
	for i := 0; i+1 < len(chunk); i += 2 {
		b.buffer = append(b.buffer, int16(binary.LittleEndian.Uint16(chunk[i:])))
	}
	if len(b.buffer) > maxContextSamples {
		b.buffer = b.buffer[len(b.buffer)-maxContextSamples:]
	}
}

// tailIsSilent checks whether the trailing stretch of the window carries
// no signal energy.
func (b *WhisperBackend) tailIsSilent() bool {
	tail := int(sampleRate * tailSilence.Seconds())
	if len(b.buffer) < tail {
		return false
	}
	var sum float64
	for _, s := range b.buffer[len(b.buffer)-tail:] {
		f := float64(s) / 32768.0
		sum += f * f
	}
	rms := sum / float64(tail)
	return rms < silenceFloor*silenceFloor
}

func (b *WhisperBackend) writeWindow() (string, error) {
	f, err := os.CreateTemp("", "echoflux-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp wav: %w", err)
	}
	defer f.Close()

	if err := writeWAV(f, b.buffer, sampleRate); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (b *WhisperBackend) runBinary(wavPath string) (string, error) {
	args := []string{
		"-m", b.modelPath,
		"-f", wavPath,
		"--no-timestamps",
		"--no-prints",
		"--threads", "4",
	}
	if b.cfg.Language != "" {
		args = append(args, "--language", b.cfg.Language)
	}

	var out bytes.Buffer
	cmd := exec.Command(b.binary, args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", b.binary, err)
	}
	return out.String(), nil
}
