package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestChunkBytes(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     int
	}{
		{"defaults", Settings{SampleRate: 16000, Channels: 1, ChunkMs: 20}, 640},
		{"stereo", Settings{SampleRate: 16000, Channels: 2, ChunkMs: 20}, 1280},
		{"longer chunk", Settings{SampleRate: 16000, Channels: 1, ChunkMs: 100}, 3200},
		{"48k", Settings{SampleRate: 48000, Channels: 1, ChunkMs: 20}, 1920},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.ChunkBytes(); got != tt.want {
				t.Fatalf("ChunkBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

// pcm builds windowSamples worth of s16le sine audio at the given amplitude.
func pcm(amplitude float64, samples int) []byte {
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(amplitude * 32767 * math.Sin(2*math.Pi*float64(i)/64))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func TestVADDisabledAlwaysSpeech(t *testing.T) {
	v := NewVAD(false, 0.5)
	if !v.Process(pcm(0, windowSamples)) {
		t.Fatal("disabled VAD must report speech")
	}
	if !v.IsSpeech() {
		t.Fatal("disabled VAD must report speech")
	}
}

func TestVADDetectsLoudSignal(t *testing.T) {
	v := NewVAD(true, 0.1)
	if got := v.Process(pcm(0.8, windowSamples*4)); !got {
		t.Fatal("loud signal not detected as speech")
	}
}

func TestVADRejectsSilence(t *testing.T) {
	v := NewVAD(true, 0.1)
	if got := v.Process(pcm(0, windowSamples*4)); got {
		t.Fatal("silence detected as speech")
	}
}

func TestVADHangoverBridgesShortPause(t *testing.T) {
	v := NewVAD(true, 0.1)
	v.Process(pcm(0.8, windowSamples*2))
	if !v.IsSpeech() {
		t.Fatal("speech not detected before pause")
	}
	// A pause shorter than the hangover keeps the flag up.
	if got := v.Process(pcm(0, windowSamples*2)); !got {
		t.Fatal("short pause should not drop speech state")
	}
	// A long silence does end it.
	if got := v.Process(pcm(0, windowSamples*(hangoverWindows+4))); got {
		t.Fatal("long silence should drop speech state")
	}
}

func TestVADReset(t *testing.T) {
	v := NewVAD(true, 0.1)
	v.Process(pcm(0.8, windowSamples*2))
	v.Reset()
	if v.IsSpeech() {
		t.Fatal("speech state survived reset")
	}
}

func TestVADBuffersPartialWindows(t *testing.T) {
	v := NewVAD(true, 0.1)
	// Feed less than one window; no decision can be made yet.
	v.Process(pcm(0.8, windowSamples/4))
	if v.IsSpeech() {
		t.Fatal("partial window should not flip state")
	}
	// The rest of the window completes the buffer and flips the state.
	if got := v.Process(pcm(0.8, windowSamples)); !got {
		t.Fatal("completed window should detect speech")
	}
}

func TestParsePactlSources(t *testing.T) {
	out := "1\talsa_input.pci-0000_00_1f.3.analog-stereo\tmodule-alsa-card.c\ts16le 2ch 44100Hz\tRUNNING\n" +
		"2\talsa_output.pci-0000_00_1f.3.analog-stereo.monitor\tmodule-alsa-card.c\ts16le 2ch 44100Hz\tIDLE\n"

	mics := parsePactlSources(out, SourceMicrophone)
	if len(mics) != 1 || mics[0].ID != "alsa_input.pci-0000_00_1f.3.analog-stereo" {
		t.Fatalf("microphones = %+v", mics)
	}

	monitors := parsePactlSources(out, SourceSystem)
	if len(monitors) != 1 || monitors[0].SourceType != SourceSystem {
		t.Fatalf("monitors = %+v", monitors)
	}
}

// fakeInput drives Manager tests without a recorder process.
type fakeInput struct {
	active  bool
	stopped int
	chunk   []byte
}

func (f *fakeInput) Start() error { f.active = true; return nil }
func (f *fakeInput) Stop()        { f.active = false; f.stopped++ }
func (f *fakeInput) ReadChunk() ([]byte, error) {
	if !f.active {
		return nil, ErrStopped
	}
	return f.chunk, nil
}
func (f *fakeInput) Active() bool { return f.active }

func TestManagerSwitchStopsPrevious(t *testing.T) {
	m := NewManager(Settings{SampleRate: 16000, Channels: 1, ChunkMs: 20})

	first := &fakeInput{}
	m.SetSource(first, nil)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	second := &fakeInput{}
	m.SetSource(second, &Device{Name: "loopback"})
	if first.stopped != 1 {
		t.Fatalf("previous source stopped %d times, want 1", first.stopped)
	}
	if m.CurrentDevice() == nil || m.CurrentDevice().Name != "loopback" {
		t.Fatalf("current device = %+v", m.CurrentDevice())
	}
}

func TestManagerWithoutSource(t *testing.T) {
	m := NewManager(Settings{})
	if err := m.Start(); err != ErrNoDevice {
		t.Fatalf("Start without source = %v, want ErrNoDevice", err)
	}
	if _, err := m.ReadChunk(); err != ErrNoDevice {
		t.Fatalf("ReadChunk without source = %v, want ErrNoDevice", err)
	}
	if m.Active() {
		t.Fatal("manager without source reported active")
	}
}
