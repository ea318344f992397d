// Package engine runs the capture -> recognition -> translation pipeline
// and pushes transcript updates out over the websocket hub.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nmtuan2007/echo-flux/internal/asr"
	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/nmtuan2007/echo-flux/internal/crash"
	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/nmtuan2007/echo-flux/internal/translation"
	"github.com/nmtuan2007/echo-flux/internal/ws"
)

// chunkQueueSize bounds audio chunks in flight between the capture and
// processing goroutines. The capture side drops frames when processing
// falls behind.
const chunkQueueSize = 32

// Broadcaster is the outbound side of the pipeline. *ws.Hub satisfies it.
type Broadcaster interface {
	Broadcast(msg ws.Message)
	BroadcastTranscript(text, translation string, final bool)
	BroadcastError(message string)
}

// Options collects the pipeline's collaborators and session defaults.
type Options struct {
	Audio      *audio.Manager
	VAD        *audio.VAD
	Recognizer asr.Backend
	Translator translation.Backend
	Out        Broadcaster
	Crash      *crash.Reporter

	Translate  bool
	SourceLang string
	TargetLang string
}

// Status is a point-in-time pipeline snapshot, served over the local API.
type Status struct {
	Running     bool   `json:"running"`
	ModelLoaded bool   `json:"model_loaded"`
	Translating bool   `json:"translating"`
	Device      string `json:"device"`
	SourceLang  string `json:"source_lang"`
	TargetLang  string `json:"target_lang"`
}

// Pipeline owns the capture and processing goroutines for one session at
// a time. Start and Stop are safe to call from websocket handlers.
type Pipeline struct {
	audio      *audio.Manager
	vad        *audio.VAD
	recognizer asr.Backend
	translator translation.Backend
	out        Broadcaster
	crash      *crash.Reporter
	log        *logrus.Entry

	mu          sync.Mutex
	running     bool
	stop        chan struct{}
	wg          sync.WaitGroup
	chunks      chan []byte
	translate   bool
	sourceLang  string
	targetLang  string
	inUtterance bool
}

// New builds a pipeline from its collaborators.
func New(opts Options) *Pipeline {
	return &Pipeline{
		audio:      opts.Audio,
		vad:        opts.VAD,
		recognizer: opts.Recognizer,
		translator: opts.Translator,
		out:        opts.Out,
		crash:      opts.Crash,
		log:        logging.Get("engine"),
		translate:  opts.Translate,
		sourceLang: opts.SourceLang,
		targetLang: opts.TargetLang,
	}
}

// Bind registers the pipeline as the hub's start/stop handler.
func (p *Pipeline) Bind(hub *ws.Hub) {
	hub.OnStart(p.Start)
	hub.OnStop(func() error {
		p.Stop()
		return nil
	})
}

// Start begins capturing and transcribing. A second start while running
// is a no-op. config carries optional per-session overrides from the
// client: source_lang, target_lang, translate.
func (p *Pipeline) Start(config map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.log.Debug("start requested while already running")
		return nil
	}
	if p.recognizer == nil || !p.recognizer.Loaded() {
		return fmt.Errorf("speech recognizer not loaded")
	}

	p.applyConfig(config)

	if err := p.audio.Start(); err != nil {
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	p.recognizer.ResetStream()
	if p.vad != nil {
		p.vad.Reset()
	}
	p.inUtterance = false

	p.stop = make(chan struct{})
	p.chunks = make(chan []byte, chunkQueueSize)
	p.running = true

	p.wg.Add(2)
	go p.captureLoop(p.stop, p.chunks)
	go p.processLoop(p.stop, p.chunks)

	p.broadcastStatus("listening")
	p.log.WithFields(logrus.Fields{
		"source_lang": p.sourceLang,
		"target_lang": p.targetLang,
		"translate":   p.translate,
	}).Info("pipeline started")
	return nil
}

// Stop halts capture and waits for both loops to drain.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.audio.Stop()
	p.wg.Wait()

	p.broadcastStatus("stopped")
	p.log.Info("pipeline stopped")
}

// Running reports whether a session is active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// CurrentStatus snapshots the pipeline for the local API.
func (p *Pipeline) CurrentStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	device := "default"
	if d := p.audio.CurrentDevice(); d != nil {
		device = d.Name
	}
	return Status{
		Running:     p.running,
		ModelLoaded: p.recognizer != nil && p.recognizer.Loaded(),
		Translating: p.translate && p.translator != nil && p.translator.Loaded(),
		Device:      device,
		SourceLang:  p.sourceLang,
		TargetLang:  p.targetLang,
	}
}

// applyConfig folds client-supplied session overrides in. Callers hold
// p.mu.
func (p *Pipeline) applyConfig(config map[string]interface{}) {
	if config == nil {
		return
	}
	if v, ok := config["source_lang"].(string); ok && v != "" {
		p.sourceLang = v
	}
	if v, ok := config["target_lang"].(string); ok && v != "" {
		p.targetLang = v
	}
	if v, ok := config["translate"].(bool); ok {
		p.translate = v
	}
}

// captureLoop reads chunks off the audio source and queues them for
// processing, dropping frames when the queue is full.
func (p *Pipeline) captureLoop(stop <-chan struct{}, chunks chan<- []byte) {
	defer p.wg.Done()
	if p.crash != nil {
		defer p.crash.Recover("engine.capture", nil)
	}
	defer close(chunks)

	for {
		chunk, err := p.audio.ReadChunk()
		if err != nil {
			if err != audio.ErrStopped {
				p.log.WithError(err).Error("audio capture failed")
				p.out.BroadcastError(fmt.Sprintf("audio capture failed: %v", err))
			}
			return
		}

		select {
		case <-stop:
			return
		case chunks <- chunk:
		default:
			p.log.Debug("processing behind, dropping audio frame")
		}
	}
}

// processLoop feeds queued chunks through VAD and the recognizer, and
// translates finalized lines.
func (p *Pipeline) processLoop(stop <-chan struct{}, chunks <-chan []byte) {
	defer p.wg.Done()
	if p.crash != nil {
		defer p.crash.Recover("engine.process", nil)
	}

	for {
		select {
		case <-stop:
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			p.handleChunk(chunk)
		}
	}
}

func (p *Pipeline) handleChunk(chunk []byte) {
	// Silence outside an utterance never reaches the recognizer. Silence
	// inside one does, so the recognizer can see the trailing quiet and
	// finalize the open line.
	speech := p.vad == nil || p.vad.Process(chunk)
	if !speech && !p.inUtterance {
		return
	}
	if speech {
		p.inUtterance = true
	}

	result, err := p.recognizer.TranscribeStream(chunk)
	if err != nil {
		p.log.WithError(err).Error("transcription failed")
		p.out.BroadcastError(fmt.Sprintf("transcription failed: %v", err))
		return
	}
	if result == nil || result.Text == "" {
		return
	}

	if !result.Final {
		p.out.BroadcastTranscript(result.Text, "", false)
		return
	}

	p.inUtterance = false
	translated := ""
	if p.translate && p.translator != nil && p.translator.Loaded() {
		res, terr := p.translator.Translate(result.Text, p.sourceLang, p.targetLang)
		if terr != nil {
			p.log.WithError(terr).Warn("translation failed for finalized line")
		} else {
			translated = res.TranslatedText
		}
	}
	p.out.BroadcastTranscript(result.Text, translated, true)
}

func (p *Pipeline) broadcastStatus(status string) {
	p.out.Broadcast(ws.Message{
		Type:      ws.TypeStatus,
		Status:    status,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	})
}
