package audio

import (
	"encoding/binary"
	"math"

	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/sirupsen/logrus"
)

// windowSamples is the analysis window, ~32ms at 16kHz.
const windowSamples = 512

// hangoverWindows keeps the speech flag up briefly after energy drops, so
// short pauses inside an utterance don't split it.
const hangoverWindows = 12

// VAD is an energy-based voice activity gate. It accumulates samples into
// fixed windows, compares normalized RMS energy against the configured
// threshold, and holds the speech flag through short silences.
type VAD struct {
	enabled   bool
	threshold float64
	log       *logrus.Entry

	buffer   []float64
	speech   bool
	hangover int
}

// NewVAD builds a gate. threshold is in [0,1] against normalized RMS; a
// disabled gate reports every chunk as speech.
func NewVAD(enabled bool, threshold float64) *VAD {
	v := &VAD{
		enabled:   enabled,
		threshold: threshold,
		log:       logging.Get("audio.vad"),
	}
	if enabled {
		v.log.WithField("threshold", threshold).Info("voice activity detection enabled")
	}
	return v
}

// Enabled reports whether the gate is active.
func (v *VAD) Enabled() bool { return v.enabled }

// IsSpeech reports the current speech state.
func (v *VAD) IsSpeech() bool {
	if !v.enabled {
		return true
	}
	return v.speech
}

// Process feeds one chunk of s16le PCM and returns the updated speech state.
func (v *VAD) Process(chunk []byte) bool {
	if !v.enabled {
		return true
	}

	for i := 0; i+1 < len(chunk); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(chunk[i:]))
		v.buffer = append(v.buffer, float64(sample)/32768.0)
	}

	for len(v.buffer) >= windowSamples {
		window := v.buffer[:windowSamples]
		v.buffer = v.buffer[windowSamples:]

		if rms(window) > v.threshold {
			v.speech = true
			v.hangover = hangoverWindows
		} else if v.hangover > 0 {
			v.hangover--
			if v.hangover == 0 {
				v.speech = false
			}
		} else {
			v.speech = false
		}
	}
	return v.speech
}

// Reset clears buffered samples and speech state.
func (v *VAD) Reset() {
	v.buffer = nil
	v.speech = false
	v.hangover = 0
}

func rms(window []float64) float64 {
	var sum float64
	for _, s := range window {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(window)))
}
