package translation

import (
	"fmt"
	"strings"
	"time"

	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/sirupsen/logrus"
)

// onlineRetryInterval is how often the primary backend is probed again
// after falling back.
const onlineRetryInterval = 60 * time.Second

// switchAfterFailures flips to the fallback once the primary has failed
// this many times in a row.
const switchAfterFailures = 3

// Fallback chains two backends: a preferred primary (online) and a local
// fallback. Requests ride the active backend; repeated primary failures
// switch over, and the primary is re-probed periodically so connectivity
// recovery switches back. Translation failures degrade to an empty
// translated text rather than an error, keeping captions flowing.
type Fallback struct {
	primary   Backend
	secondary Backend
	log       *logrus.Entry

	now func() time.Time // injectable clock

	primaryLoaded   bool
	secondaryLoaded bool

	onPrimary        bool
	fallenBack       bool
	primaryFailures  int
	lastPrimaryRetry time.Time
}

// NewFallback chains the given backends. Either may be nil when a pairing
// is not wanted.
func NewFallback(primary, secondary Backend) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		log:       logging.Get("translation.fallback"),
		now:       time.Now,
	}
}

// Load initializes both backends, tolerating individual failures as long
// as at least one comes up. cfg.Backend "local" skips the primary.
func (f *Fallback) Load(cfg Config) error {
	usePrimary := cfg.Backend != "local"

	if usePrimary && f.primary != nil {
		if err := f.primary.Load(cfg); err != nil {
			f.log.Warnf("failed to initialize primary backend: %v", err)
		} else {
			f.primaryLoaded = true
			f.log.Info("online translation backend ready")
		}
	}

	if f.secondary != nil {
		if err := f.secondary.Load(cfg); err != nil {
			f.log.Warnf("failed to initialize fallback backend: %v", err)
		} else {
			f.secondaryLoaded = true
			f.log.Info("local translation backend ready (fallback)")
		}
	}

	switch {
	case cfg.Backend == "local" && f.secondaryLoaded:
		f.onPrimary = false
	case f.primaryLoaded:
		f.onPrimary = true
	case f.secondaryLoaded:
		f.onPrimary = false
		f.fallenBack = true
		f.log.Warn("online backend unavailable, starting on local fallback")
	default:
		return fmt.Errorf("no translation backend could be loaded")
	}

	f.log.WithField("active", f.activeName()).Info("translation ready")
	return nil
}

// Loaded reports whether any backend is up.
func (f *Fallback) Loaded() bool { return f.primaryLoaded || f.secondaryLoaded }

// Unload tears down both backends.
func (f *Fallback) Unload() {
	if f.primary != nil {
		f.primary.Unload()
	}
	if f.secondary != nil {
		f.secondary.Unload()
	}
	f.primaryLoaded = false
	f.secondaryLoaded = false
	f.fallenBack = false
	f.log.Info("translation backends unloaded")
}

// SupportedPairs proxies to the active backend.
func (f *Fallback) SupportedPairs() [][2]string {
	if f.onPrimary && f.primary != nil {
		return f.primary.SupportedPairs()
	}
	if f.secondary != nil {
		return f.secondary.SupportedPairs()
	}
	return nil
}

// ActiveBackend names the backend currently serving requests.
func (f *Fallback) ActiveBackend() string { return f.activeName() }

// FallenBack reports whether the chain is off its preferred backend.
func (f *Fallback) FallenBack() bool { return f.fallenBack }

// Translate resolves one line. Empty input short-circuits to an empty
// translation without touching a backend.
func (f *Fallback) Translate(text, sourceLang, targetLang string) (Result, error) {
	empty := Result{SourceText: text, SourceLang: sourceLang, TargetLang: targetLang}
	if strings.TrimSpace(text) == "" {
		return empty, nil
	}
	if !f.Loaded() {
		return Result{}, ErrNotLoaded
	}

	if f.fallenBack && f.primaryLoaded {
		f.maybeRetryPrimary(text, sourceLang, targetLang)
	}

	if f.onPrimary {
		return f.tryPrimary(text, sourceLang, targetLang)
	}
	return f.trySecondary(text, sourceLang, targetLang)
}

func (f *Fallback) tryPrimary(text, sourceLang, targetLang string) (Result, error) {
	res, err := f.primary.Translate(text, sourceLang, targetLang)
	if err == nil && strings.TrimSpace(res.TranslatedText) != "" {
		f.primaryFailures = 0
		return res, nil
	}
	if err != nil {
		f.log.Warnf("online translation failed: %v", err)
	}

	f.primaryFailures++
	if f.primaryFailures >= switchAfterFailures {
		f.switchToSecondary()
	}

	if f.secondaryLoaded {
		return f.trySecondary(text, sourceLang, targetLang)
	}

	f.log.Error("all translation backends failed")
	return Result{SourceText: text, SourceLang: sourceLang, TargetLang: targetLang}, nil
}

func (f *Fallback) trySecondary(text, sourceLang, targetLang string) (Result, error) {
	empty := Result{SourceText: text, SourceLang: sourceLang, TargetLang: targetLang}
	if !f.secondaryLoaded {
		return empty, nil
	}
	res, err := f.secondary.Translate(text, sourceLang, targetLang)
	if err != nil {
		f.log.Errorf("local translation failed: %v", err)
		return empty, nil
	}
	return res, nil
}

func (f *Fallback) switchToSecondary() {
	if !f.secondaryLoaded {
		f.log.Error("cannot fall back: local backend not loaded")
		return
	}
	if !f.onPrimary {
		return
	}
	f.onPrimary = false
	f.fallenBack = true
	f.lastPrimaryRetry = f.now()
	f.log.Warnf("switched to local backend after %d online failures, retrying online in %s",
		f.primaryFailures, onlineRetryInterval)
}

func (f *Fallback) switchToPrimary() {
	f.onPrimary = true
	f.fallenBack = false
	f.primaryFailures = 0
	if r, ok := f.primary.(interface{ ResetFailures() }); ok {
		r.ResetFailures()
	}
	f.log.Info("switched back to online translation backend")
}

// maybeRetryPrimary probes the primary with a short prefix of the current
// line once per retry interval.
func (f *Fallback) maybeRetryPrimary(text, sourceLang, targetLang string) {
	if f.now().Sub(f.lastPrimaryRetry) < onlineRetryInterval {
		return
	}
	f.lastPrimaryRetry = f.now()
	f.log.Info("retrying online translation backend")

	if r, ok := f.primary.(interface{ ResetFailures() }); ok {
		r.ResetFailures()
	}

	probe := text
	if len(probe) > 50 {
		probe = probe[:50]
	}
	res, err := f.primary.Translate(probe, sourceLang, targetLang)
	if err != nil || strings.TrimSpace(res.TranslatedText) == "" {
		f.log.Infof("online retry failed, staying on local backend")
		return
	}
	f.switchToPrimary()
}

func (f *Fallback) activeName() string {
	if f.onPrimary {
		return "online"
	}
	return "local"
}
