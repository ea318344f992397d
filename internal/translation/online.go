package translation

import (
	"container/list"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/sirupsen/logrus"
)

const (
	defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

	maxRequestsPerMinute = 30
	requestTimeout       = 5 * time.Second

	maxCacheEntries = 500

	initialBackoff    = 2 * time.Second
	maxBackoff        = 60 * time.Second
	backoffMultiplier = 2.0

	// maxConsecutiveFailures marks the backend down once reached.
	maxConsecutiveFailures = 3
)

// Online translates through the public Google endpoint. Requests are rate
// limited, cached, and backed off exponentially on failure.
type Online struct {
	endpoint string
	client   *http.Client
	log      *logrus.Entry

	loaded bool

	rateMu     sync.Mutex
	timestamps []time.Time

	backoffMu      sync.Mutex
	backoffUntil   time.Time
	currentBackoff time.Duration

	cacheMu sync.Mutex
	cache   map[string]*list.Element
	lru     *list.List

	failMu   sync.Mutex
	failures int
}

type cacheEntry struct {
	key  string
	text string
}

// NewOnline builds the backend. An empty endpoint selects the public one;
// tests point it at a local server.
func NewOnline(endpoint string) *Online {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Online{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
		log:      logging.Get("translation.online"),
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Load marks the backend ready. No model to warm up.
func (o *Online) Load(Config) error {
	o.loaded = true
	o.resetFailures()
	o.currentBackoff = initialBackoff
	return nil
}

// Loaded reports readiness.
func (o *Online) Loaded() bool { return o.loaded }

// Unload drops the cache and readiness.
func (o *Online) Unload() {
	o.loaded = false
	o.cacheMu.Lock()
	o.cache = make(map[string]*list.Element)
	o.lru = list.New()
	o.cacheMu.Unlock()
}

// SupportedPairs is unrestricted for the online service.
func (o *Online) SupportedPairs() [][2]string { return nil }

// Available reports whether the backend is up: loaded, not backed off, and
// under the consecutive-failure limit.
func (o *Online) Available() bool {
	if !o.loaded {
		return false
	}
	o.backoffMu.Lock()
	backedOff := time.Now().Before(o.backoffUntil)
	o.backoffMu.Unlock()
	if backedOff {
		return false
	}
	return o.ConsecutiveFailures() < maxConsecutiveFailures
}

// ConsecutiveFailures counts failures since the last success.
func (o *Online) ConsecutiveFailures() int {
	o.failMu.Lock()
	defer o.failMu.Unlock()
	return o.failures
}

// ResetFailures clears the failure counter, used when probing the backend
// after a fallback period.
func (o *Online) ResetFailures() { o.resetFailures() }

// Translate resolves text through cache or the remote endpoint.
func (o *Online) Translate(text, sourceLang, targetLang string) (Result, error) {
	if !o.loaded {
		return Result{}, ErrNotLoaded
	}

	result := Result{SourceText: text, SourceLang: sourceLang, TargetLang: targetLang}
	key := sourceLang + "\x00" + targetLang + "\x00" + text

	if cached, ok := o.cacheGet(key); ok {
		result.TranslatedText = cached
		return result, nil
	}

	o.backoffMu.Lock()
	backedOff := time.Now().Before(o.backoffUntil)
	o.backoffMu.Unlock()
	if backedOff {
		return Result{}, fmt.Errorf("%w: backing off", ErrUnavailable)
	}

	if !o.allowRequest() {
		return Result{}, fmt.Errorf("%w: rate limited", ErrUnavailable)
	}

	translated, err := o.request(text, sourceLang, targetLang)
	if err != nil {
		o.recordFailure()
		return Result{}, err
	}
	if translated == "" {
		o.recordFailure()
		return Result{}, ErrEmptyResult
	}

	o.recordSuccess()
	o.cachePut(key, translated)
	result.TranslatedText = translated
	return result, nil
}

func (o *Online) request(text, sourceLang, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequest(http.MethodGet, o.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build translation request: %w", err)
	}
	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation request failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read translation response: %w", err)
	}
	return parseResponse(body)
}

// parseResponse unwraps the nested-array payload the endpoint returns:
// [[["translated","source",...],...],...].
func parseResponse(body []byte) (string, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return "", fmt.Errorf("failed to decode translation response: %w", err)
	}
	if len(outer) == 0 {
		return "", ErrEmptyResult
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(outer[0], &segments); err != nil {
		return "", fmt.Errorf("failed to decode translation segments: %w", err)
	}

	var translated string
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		translated += part
	}
	return translated, nil
}

func (o *Online) allowRequest() bool {
	o.rateMu.Lock()
	defer o.rateMu.Unlock()

	cutoff := time.Now().Add(-time.Minute)
	kept := o.timestamps[:0]
	for _, ts := range o.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	o.timestamps = kept

	if len(o.timestamps) >= maxRequestsPerMinute {
		return false
	}
	o.timestamps = append(o.timestamps, time.Now())
	return true
}

func (o *Online) recordFailure() {
	o.failMu.Lock()
	o.failures++
	failures := o.failures
	o.failMu.Unlock()

	o.backoffMu.Lock()
	o.backoffUntil = time.Now().Add(o.currentBackoff)
	o.currentBackoff = time.Duration(float64(o.currentBackoff) * backoffMultiplier)
	if o.currentBackoff > maxBackoff {
		o.currentBackoff = maxBackoff
	}
	o.backoffMu.Unlock()

	o.log.WithField("failures", failures).Warn("online translation failed")
}

func (o *Online) recordSuccess() {
	o.resetFailures()
	o.backoffMu.Lock()
	o.currentBackoff = initialBackoff
	o.backoffUntil = time.Time{}
	o.backoffMu.Unlock()
}

func (o *Online) resetFailures() {
	o.failMu.Lock()
	o.failures = 0
	o.failMu.Unlock()
}

func (o *Online) cacheGet(key string) (string, bool) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	el, ok := o.cache[key]
	if !ok {
		return "", false
	}
	o.lru.MoveToFront(el)
	return el.Value.(*cacheEntry).text, true
}

func (o *Online) cachePut(key, text string) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()

	if el, ok := o.cache[key]; ok {
		el.Value.(*cacheEntry).text = text
		o.lru.MoveToFront(el)
		return
	}
	o.cache[key] = o.lru.PushFront(&cacheEntry{key: key, text: text})

	for o.lru.Len() > maxCacheEntries {
		oldest := o.lru.Back()
		o.lru.Remove(oldest)
		delete(o.cache, oldest.Value.(*cacheEntry).key)
	}
}
