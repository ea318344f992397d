package audio

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"sync"

	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/sirupsen/logrus"
)

// recorder describes one way of getting s16le PCM onto stdout.
type recorder struct {
	bin  string
	args func(s Settings, source SourceType) []string
}

// Recorders in preference order per platform. All of them stream raw
// s16le at the requested rate and channel count on stdout.
func platformRecorders(source SourceType) []recorder {
	switch runtime.GOOS {
	case "linux":
		recs := []recorder{
			{bin: "parec", args: func(s Settings, src SourceType) []string {
				args := []string{
					"--format=s16le",
					"--rate=" + strconv.Itoa(s.SampleRate),
					"--channels=" + strconv.Itoa(s.Channels),
					"--latency-msec=" + strconv.Itoa(s.ChunkMs),
				}
				if s.DeviceID != "" {
					args = append(args, "--device="+s.DeviceID)
				} else if src == SourceSystem {
					// PulseAudio exposes loopback as the default sink monitor.
					args = append(args, "--device=@DEFAULT_SINK@.monitor")
				}
				return args
			}},
		}
		if source == SourceMicrophone {
			recs = append(recs, recorder{bin: "arecord", args: func(s Settings, _ SourceType) []string {
				args := []string{"-q", "-f", "S16_LE", "-r", strconv.Itoa(s.SampleRate), "-c", strconv.Itoa(s.Channels), "-t", "raw"}
				if s.DeviceID != "" {
					args = append(args, "-D", s.DeviceID)
				}
				return args
			}})
		}
		return recs
	case "darwin":
		return []recorder{
			{bin: "ffmpeg", args: func(s Settings, _ SourceType) []string {
				device := s.DeviceID
				if device == "" {
					device = ":0"
				}
				return []string{
					"-hide_banner", "-loglevel", "error",
					"-f", "avfoundation", "-i", device,
					"-ar", strconv.Itoa(s.SampleRate), "-ac", strconv.Itoa(s.Channels),
					"-f", "s16le", "-",
				}
			}},
		}
	default: // windows
		return []recorder{
			{bin: "ffmpeg", args: func(s Settings, _ SourceType) []string {
				device := s.DeviceID
				if device == "" {
					device = "audio=default"
				}
				return []string{
					"-hide_banner", "-loglevel", "error",
					"-f", "dshow", "-i", device,
					"-ar", strconv.Itoa(s.SampleRate), "-ac", strconv.Itoa(s.Channels),
					"-f", "s16le", "-",
				}
			}},
		}
	}
}

// CaptureInput streams PCM from a platform recorder subprocess. One reader
// goroutine slices stdout into fixed-size chunks and feeds a bounded queue;
// slow consumers drop frames instead of backing the recorder up.
type CaptureInput struct {
	settings Settings
	source   SourceType
	log      *logrus.Entry

	mu     sync.Mutex
	cmd    *exec.Cmd
	active bool
	chunks chan []byte
	done   chan struct{}
}

// NewCaptureInput builds an input for the given source.
func NewCaptureInput(settings Settings, source SourceType) *CaptureInput {
	return &CaptureInput{
		settings: settings,
		source:   source,
		log:      logging.Get("audio." + string(source)),
	}
}

// Start launches the recorder. Starting an active input is a no-op.
func (c *CaptureInput) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return nil
	}

	rec, err := pickRecorder(c.source)
	if err != nil {
		return err
	}

	cmd := exec.Command(rec.bin, rec.args(c.settings, c.source)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open recorder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", rec.bin, err)
	}

	c.cmd = cmd
	c.active = true
	c.chunks = make(chan []byte, 200)
	c.done = make(chan struct{})

	go c.readLoop(stdout)

	c.log.WithFields(logrus.Fields{
		"recorder": rec.bin,
		"rate":     c.settings.SampleRate,
		"channels": c.settings.Channels,
		"chunk_ms": c.settings.ChunkMs,
	}).Info("audio capture started")
	return nil
}

func (c *CaptureInput) readLoop(r io.Reader) {
	defer close(c.chunks)

	size := c.settings.ChunkBytes()
	buf := make([]byte, size)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				c.log.Debugf("recorder stream ended: %v", err)
			}
			return
		}
		chunk := make([]byte, size)
		copy(chunk, buf)

		select {
		case c.chunks <- chunk:
		case <-c.done:
			return
		default:
			// Queue full: the consumer is behind, drop the frame.
		}
	}
}

// Stop terminates the recorder and releases the stream.
func (c *CaptureInput) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.active = false
	close(c.done)
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill()
		c.cmd.Wait()
	}
	c.cmd = nil
	c.log.Info("audio capture stopped")
}

// ReadChunk returns the next PCM chunk or ErrStopped once the stream ends.
func (c *CaptureInput) ReadChunk() ([]byte, error) {
	chunk, ok := <-c.chunks
	if !ok {
		return nil, ErrStopped
	}
	return chunk, nil
}

// Active reports whether the recorder is running.
func (c *CaptureInput) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func pickRecorder(source SourceType) (recorder, error) {
	for _, rec := range platformRecorders(source) {
		if _, err := exec.LookPath(rec.bin); err == nil {
			return rec, nil
		}
	}
	return recorder{}, ErrNoRecorder
}

// ListDevices enumerates capture devices via the platform recorder. The
// list is best-effort; an empty result with nil error means the recorder
// offers no enumeration.
func ListDevices(source SourceType) ([]Device, error) {
	if runtime.GOOS != "linux" {
		return nil, nil
	}
	if _, err := exec.LookPath("pactl"); err != nil {
		return nil, nil
	}

	out, err := exec.Command("pactl", "list", "short", "sources").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return parsePactlSources(string(out), source), nil
}
