// Package rates maintains the process-wide currency-to-USD rate table and
// renders prices in the selected display currency.
package rates

import (
	"context"
	"sync"

	"github.com/doclexa/doclexa/internal/metrics"
	"go.uber.org/zap"
)

// Rate is one row from the remote rate source.
type Rate struct {
	CurrencyCode string  `json:"currency_code"`
	RateToUSD    float64 `json:"rate_to_usd"`
}

// Source queries the remote rate table.
type Source interface {
	ExchangeRates(ctx context.Context) ([]Rate, error)
}

// SnapshotCache persists the last successfully fetched table across runs.
type SnapshotCache interface {
	LoadSnapshot() (map[string]float64, error)
	SaveSnapshot(map[string]float64) error
}

// fallbackSnapshot is the built-in approximate rate table used when the
// remote source is unreachable. Covers the full catalog so conversion never
// fails for lack of data.
var fallbackSnapshot = map[string]float64{
	"USD": 1,
	"EUR": 0.85,
	"PLN": 3.8,
	"MXN": 20.5,
	"GBP": 0.73,
	"CAD": 1.35,
}

// Manager caches currency→USD rates and notifies subscribers on refresh.
type Manager struct {
	source Source
	cache  SnapshotCache
	logger *zap.Logger

	mu        sync.RWMutex
	table     map[string]float64
	listeners map[uint64]func()
	nextID    uint64
}

// NewManager creates a rate manager seeded with the last-good cached table
// when one exists, otherwise the built-in fallback snapshot, so conversion
// is valid before the first fetch completes. cache may be nil.
func NewManager(source Source, cache SnapshotCache, logger *zap.Logger) *Manager {
	m := &Manager{
		source:    source,
		cache:     cache,
		logger:    logger,
		table:     copyTable(fallbackSnapshot),
		listeners: make(map[uint64]func()),
	}

	if cache != nil {
		if snap, err := cache.LoadSnapshot(); err == nil && len(snap) > 0 {
			snap["USD"] = 1
			m.table = snap
		}
	}

	return m
}

// FetchRates refreshes the table from the remote source. On success the
// table is replaced atomically with the fetched rows (USD seeded at 1). On
// any failure the table is replaced with the built-in fallback snapshot.
// The error is absorbed, never returned; listeners are notified on both
// paths. A later call always wins over an earlier one; partially applied
// tables are never observable.
func (m *Manager) FetchRates(ctx context.Context) {
	rows, err := m.source.ExchangeRates(ctx)
	if err != nil {
		m.logger.Warn("failed to fetch exchange rates, using fallback snapshot", zap.Error(err))
		metrics.Default().RecordRateFetch(false)
		m.replace(copyTable(fallbackSnapshot))
		return
	}
	metrics.Default().RecordRateFetch(true)

	table := make(map[string]float64, len(rows)+1)
	table["USD"] = 1
	for _, r := range rows {
		table[r.CurrencyCode] = r.RateToUSD
	}

	if m.cache != nil {
		if cerr := m.cache.SaveSnapshot(table); cerr != nil {
			m.logger.Warn("failed to cache rate snapshot", zap.Error(cerr))
		}
	}

	m.replace(table)
}

func (m *Manager) replace(table map[string]float64) {
	m.mu.Lock()
	m.table = table
	m.mu.Unlock()
	m.notify()
}

// Rate returns the cached rate for code, or 1.0 when unknown (parity with
// USD rather than failure).
func (m *Manager) Rate(code string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rate, ok := m.table[code]; ok && rate > 0 {
		return rate
	}
	return 1
}

// ConvertPrice converts a USD amount into the target currency. No rounding.
func (m *Manager) ConvertPrice(usdAmount float64, targetCode string) float64 {
	return usdAmount * m.Rate(targetCode)
}

// Subscribe registers a refresh listener and returns its cancellation handle.
func (m *Manager) Subscribe(fn func()) *Subscription {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return &Subscription{cancel: func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}}
}

// Subscription is a handle for a registered listener.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Cancel removes the listener. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

func (m *Manager) notify() {
	m.mu.RLock()
	fns := make([]func(), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func copyTable(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
