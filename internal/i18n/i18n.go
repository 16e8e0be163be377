// Package i18n provides the process-wide language store and translation
// resolver backed by embedded locale files.
package i18n

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// SupportedLanguages is the fixed set of languages the app ships
// translations for.
var SupportedLanguages = []string{"en", "es", "de", "pl", "fr", "pt", "it", "cs"}

// DefaultLanguage is the base language and final fallback.
const DefaultLanguage = "en"

// PreferenceKey is the persisted-preference key for the selected language.
const PreferenceKey = "app.language"

// Preferences is the persisted key-value store the language preference
// survives restarts in.
type Preferences interface {
	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

// Subscription is a handle for a registered change listener.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Cancel removes the listener. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Store holds the current language and notifies subscribers on change.
type Store struct {
	prefs  Preferences
	logger *zap.Logger

	mu          sync.RWMutex
	current     string
	initialized bool
	listeners   map[uint64]func()
	nextID      uint64
}

// NewStore creates a language store starting at the default language.
// Initialize must be called once at startup to adopt the persisted or
// device-derived preference.
func NewStore(prefs Preferences, logger *zap.Logger) *Store {
	return &Store{
		prefs:     prefs,
		logger:    logger,
		current:   DefaultLanguage,
		listeners: make(map[uint64]func()),
	}
}

// IsSupported reports whether code is in the supported-language set.
func IsSupported(code string) bool {
	for _, lang := range SupportedLanguages {
		if lang == code {
			return true
		}
	}
	return false
}

// Initialize adopts the persisted language preference, falling back to the
// device locale and finally the default language. Idempotent; storage
// failures are logged and absorbed. Listeners fire exactly once, on the
// first call, whichever path was taken.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}

	saved, err := s.prefs.GetPreference(ctx, PreferenceKey)
	switch {
	case err == nil && IsSupported(saved):
		s.current = saved
	default:
		if err != nil {
			s.logger.Warn("failed to load saved language", zap.Error(err))
		}
		s.current = DetectDeviceLanguage()
		if perr := s.prefs.SetPreference(ctx, PreferenceKey, s.current); perr != nil {
			s.logger.Warn("failed to persist derived language", zap.Error(perr))
		}
	}

	s.initialized = true
	s.mu.Unlock()

	s.notify()
}

// Language returns the current language code. Valid before Initialize
// completes; returns the default until then.
func (s *Store) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Initialized reports whether the one-time startup sequence has completed.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// ChangeLanguage sets the current language if code is supported, persists it
// best-effort, and notifies listeners synchronously before returning.
// Unsupported codes are silently ignored.
func (s *Store) ChangeLanguage(ctx context.Context, code string) {
	if !IsSupported(code) {
		s.logger.Debug("ignoring unsupported language", zap.String("code", code))
		return
	}

	s.mu.Lock()
	s.current = code
	s.mu.Unlock()

	if err := s.prefs.SetPreference(ctx, PreferenceKey, code); err != nil {
		s.logger.Warn("failed to save language preference", zap.Error(err))
	}

	s.notify()
}

// Subscribe registers a change listener and returns its cancellation handle.
func (s *Store) Subscribe(fn func()) *Subscription {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return &Subscription{cancel: func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}}
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
