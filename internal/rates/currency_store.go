package rates

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// DefaultCurrency is the base display currency.
const DefaultCurrency = "USD"

// PreferenceKey is the persisted-preference key for the display currency.
const PreferenceKey = "app.currency"

// Preferences is the persisted key-value store the currency preference
// survives restarts in.
type Preferences interface {
	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

// CurrencyStore holds the selected display currency and notifies
// subscribers on change. Same contract shape as the language store.
type CurrencyStore struct {
	manager *Manager
	prefs   Preferences
	logger  *zap.Logger

	initOnce sync.Once

	mu          sync.RWMutex
	selected    string
	initialized bool
	listeners   map[uint64]func()
	nextID      uint64
}

// NewCurrencyStore creates a currency store starting at USD.
func NewCurrencyStore(manager *Manager, prefs Preferences, logger *zap.Logger) *CurrencyStore {
	return &CurrencyStore{
		manager:   manager,
		prefs:     prefs,
		logger:    logger,
		selected:  DefaultCurrency,
		listeners: make(map[uint64]func()),
	}
}

// Initialize fetches rates and adopts the persisted currency preference.
// Idempotent; storage and fetch failures are absorbed. The caller bounds
// the whole sequence with a context deadline so a stalled backend cannot
// hang startup.
func (s *CurrencyStore) Initialize(ctx context.Context) {
	// Once guards the whole fetch/adopt sequence; concurrent callers block
	// until the first finishes, so the sequence runs and notifies once.
	s.initOnce.Do(func() {
		s.manager.FetchRates(ctx)

		saved, err := s.prefs.GetPreference(ctx, PreferenceKey)
		if err != nil {
			s.logger.Warn("failed to load saved currency", zap.Error(err))
		}

		s.mu.Lock()
		if err == nil && InCatalog(saved) {
			s.selected = saved
		}
		s.initialized = true
		s.mu.Unlock()

		s.notify()
	})
}

// Selected returns the current display currency code.
func (s *CurrencyStore) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Initialized reports whether the one-time startup sequence has completed.
func (s *CurrencyStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Select sets the display currency if code is in the catalog, persists it
// best-effort, and notifies listeners synchronously. Unknown codes are
// silently ignored.
func (s *CurrencyStore) Select(ctx context.Context, code string) {
	if !InCatalog(code) {
		s.logger.Debug("ignoring unknown currency", zap.String("code", code))
		return
	}

	s.mu.Lock()
	s.selected = code
	s.mu.Unlock()

	if err := s.prefs.SetPreference(ctx, PreferenceKey, code); err != nil {
		s.logger.Warn("failed to save currency preference", zap.Error(err))
	}

	s.notify()
}

// FormatPrice renders a USD amount in the selected display currency.
func (s *CurrencyStore) FormatPrice(usdAmount float64) string {
	return s.manager.FormatPrice(usdAmount, s.Selected())
}

// ConvertPrice converts a USD amount into the selected display currency.
func (s *CurrencyStore) ConvertPrice(usdAmount float64) float64 {
	return s.manager.ConvertPrice(usdAmount, s.Selected())
}

// Subscribe registers a change listener and returns its cancellation handle.
func (s *CurrencyStore) Subscribe(fn func()) *Subscription {
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

func (s *CurrencyStore) notify() {
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
