package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/asr"
	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/nmtuan2007/echo-flux/internal/translation"
	"github.com/nmtuan2007/echo-flux/internal/ws"
)

type fakeInput struct {
	mu     sync.Mutex
	queue  chan []byte
	active bool
}

func newFakeInput(chunks ...[]byte) *fakeInput {
	f := &fakeInput{queue: make(chan []byte, 64)}
	for _, c := range chunks {
		f.queue <- c
	}
	return f
}

func (f *fakeInput) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = true
	return nil
}

func (f *fakeInput) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		f.active = false
		close(f.queue)
	}
}

func (f *fakeInput) ReadChunk() ([]byte, error) {
	chunk, ok := <-f.queue
	if !ok {
		return nil, audio.ErrStopped
	}
	return chunk, nil
}

func (f *fakeInput) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

type fakeASR struct {
	mu      sync.Mutex
	loaded  bool
	results []*asr.Result
	err     error
	calls   int
}

func (f *fakeASR) Load(asr.Config) error { f.loaded = true; return nil }
func (f *fakeASR) Unload()               { f.loaded = false }
func (f *fakeASR) Loaded() bool          { return f.loaded }
func (f *fakeASR) ResetStream()          {}

func (f *fakeASR) TranscribeStream(chunk []byte) (*asr.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return nil, nil
}

func (f *fakeASR) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTranslator struct {
	loaded bool
	err    error
	prefix string
}

func (f *fakeTranslator) Load(translation.Config) error { f.loaded = true; return nil }
func (f *fakeTranslator) Unload()                       { f.loaded = false }
func (f *fakeTranslator) Loaded() bool                  { return f.loaded }
func (f *fakeTranslator) SupportedPairs() [][2]string   { return nil }

func (f *fakeTranslator) Translate(text, src, dst string) (translation.Result, error) {
	if f.err != nil {
		return translation.Result{}, f.err
	}
	return translation.Result{
		SourceText:     text,
		TranslatedText: f.prefix + text,
		SourceLang:     src,
		TargetLang:     dst,
	}, nil
}

type transcript struct {
	text        string
	translation string
	final       bool
}

type recordingOut struct {
	transcripts chan transcript
	statuses    chan string
	errors      chan string
}

func newRecordingOut() *recordingOut {
	return &recordingOut{
		transcripts: make(chan transcript, 64),
		statuses:    make(chan string, 64),
		errors:      make(chan string, 64),
	}
}

func (r *recordingOut) Broadcast(msg ws.Message) {
	if msg.Type == ws.TypeStatus {
		r.statuses <- msg.Status
	}
}

func (r *recordingOut) BroadcastTranscript(text, translation string, final bool) {
	r.transcripts <- transcript{text: text, translation: translation, final: final}
}

func (r *recordingOut) BroadcastError(message string) {
	r.errors <- message
}

func waitTranscript(t *testing.T, out *recordingOut) transcript {
	t.Helper()
	select {
	case tr := <-out.transcripts:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transcript")
		return transcript{}
	}
}

func waitStatus(t *testing.T, out *recordingOut) string {
	t.Helper()
	select {
	case s := <-out.statuses:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status")
		return ""
	}
}

// speech returns a chunk loud enough to trip the activity gate.
func speech() []byte {
	chunk := make([]byte, 2048)
	for i := 0; i < len(chunk); i += 2 {
		chunk[i] = 0x00
		chunk[i+1] = 0x40 // 0x4000, half scale
	}
	return chunk
}

func silence() []byte { return make([]byte, 2048) }

func newPipeline(input *fakeInput, rec asr.Backend, tr translation.Backend, out Broadcaster, vad *audio.VAD) *Pipeline {
	mgr := audio.NewManager(audio.Settings{SampleRate: 16000, Channels: 1, ChunkMs: 64})
	mgr.SetSource(input, nil)
	return New(Options{
		Audio:      mgr,
		VAD:        vad,
		Recognizer: rec,
		Translator: tr,
		Out:        out,
		Translate:  true,
		SourceLang: "en",
		TargetLang: "vi",
	})
}

func TestPipelineEmitsPartialAndFinal(t *testing.T) {
	input := newFakeInput(speech(), speech())
	rec := &fakeASR{loaded: true, results: []*asr.Result{
		{Text: "hello wor", Final: false},
		{Text: "hello world", Final: true},
	}}
	tr := &fakeTranslator{loaded: true, prefix: "vi:"}
	out := newRecordingOut()
	p := newPipeline(input, rec, tr, out, nil)

	if err := p.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := waitStatus(t, out); got != "listening" {
		t.Fatalf("status = %q, want listening", got)
	}

	partial := waitTranscript(t, out)
	if partial.final || partial.text != "hello wor" {
		t.Fatalf("partial = %+v", partial)
	}

	final := waitTranscript(t, out)
	if !final.final || final.text != "hello world" {
		t.Fatalf("final = %+v", final)
	}
	if final.translation != "vi:hello world" {
		t.Fatalf("translation = %q", final.translation)
	}

	p.Stop()
	if got := waitStatus(t, out); got != "stopped" {
		t.Fatalf("status = %q, want stopped", got)
	}
	if p.Running() {
		t.Fatal("Running() = true after Stop")
	}
}

func TestPipelineStartRequiresLoadedRecognizer(t *testing.T) {
	p := newPipeline(newFakeInput(), &fakeASR{loaded: false}, nil, newRecordingOut(), nil)
	if err := p.Start(nil); err == nil {
		t.Fatal("Start should fail with an unloaded recognizer")
	}
}

func TestPipelineDoubleStartIsNoOp(t *testing.T) {
	input := newFakeInput()
	out := newRecordingOut()
	p := newPipeline(input, &fakeASR{loaded: true}, nil, out, nil)

	if err := p.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(nil); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	waitStatus(t, out)
	select {
	case s := <-out.statuses:
		t.Fatalf("unexpected second status %q", s)
	case <-time.After(100 * time.Millisecond):
	}

	p.Stop()
}

func TestPipelineGatesSilence(t *testing.T) {
	input := newFakeInput(silence(), silence(), silence())
	rec := &fakeASR{loaded: true}
	out := newRecordingOut()
	vad := audio.NewVAD(true, 0.1)
	p := newPipeline(input, rec, nil, out, vad)

	if err := p.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStatus(t, out)

	// Give the loops a moment to drain the queued silence.
	time.Sleep(200 * time.Millisecond)
	p.Stop()

	if rec.callCount() != 0 {
		t.Fatalf("recognizer called %d times for pure silence", rec.callCount())
	}
}

func TestPipelineFeedsTrailingSilenceInsideUtterance(t *testing.T) {
	input := newFakeInput(speech(), silence())
	rec := &fakeASR{loaded: true}
	out := newRecordingOut()
	vad := audio.NewVAD(true, 0.1)
	p := newPipeline(input, rec, nil, out, vad)

	if err := p.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStatus(t, out)

	time.Sleep(200 * time.Millisecond)
	p.Stop()

	// Both the speech chunk and its trailing silence must reach the
	// recognizer, so it can close the line.
	if rec.callCount() != 2 {
		t.Fatalf("recognizer called %d times, want 2", rec.callCount())
	}
}

func TestPipelineTranslationFailureDegrades(t *testing.T) {
	input := newFakeInput(speech())
	rec := &fakeASR{loaded: true, results: []*asr.Result{{Text: "hello", Final: true}}}
	tr := &fakeTranslator{loaded: true, err: errors.New("offline")}
	out := newRecordingOut()
	p := newPipeline(input, rec, tr, out, nil)

	if err := p.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	final := waitTranscript(t, out)
	if !final.final || final.text != "hello" {
		t.Fatalf("final = %+v", final)
	}
	if final.translation != "" {
		t.Fatalf("translation = %q, want empty on failure", final.translation)
	}
	p.Stop()
}

func TestPipelineTranscriptionErrorBroadcast(t *testing.T) {
	input := newFakeInput(speech())
	rec := &fakeASR{loaded: true, err: errors.New("model exploded")}
	out := newRecordingOut()
	p := newPipeline(input, rec, nil, out, nil)

	if err := p.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case msg := <-out.errors:
		if !strings.Contains(msg, "model exploded") {
			t.Fatalf("error = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error broadcast")
	}
	p.Stop()
}

func TestPipelineSessionOverrides(t *testing.T) {
	input := newFakeInput()
	p := newPipeline(input, &fakeASR{loaded: true}, nil, newRecordingOut(), nil)

	if err := p.Start(map[string]interface{}{
		"source_lang": "ja",
		"target_lang": "en",
		"translate":   false,
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Stop()

	st := p.CurrentStatus()
	if st.SourceLang != "ja" || st.TargetLang != "en" {
		t.Fatalf("langs = %s->%s", st.SourceLang, st.TargetLang)
	}
	if st.Translating {
		t.Fatal("Translating = true after translate:false override")
	}
}
