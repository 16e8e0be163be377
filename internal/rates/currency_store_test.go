package rates

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePrefs struct {
	values map[string]string
	getErr error
	setErr error
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{values: make(map[string]string)}
}

func (p *fakePrefs) GetPreference(_ context.Context, key string) (string, error) {
	if p.getErr != nil {
		return "", p.getErr
	}
	return p.values[key], nil
}

func (p *fakePrefs) SetPreference(_ context.Context, key, value string) error {
	if p.setErr != nil {
		return p.setErr
	}
	p.values[key] = value
	return nil
}

func newTestCurrencyStore(t *testing.T, src Source) (*CurrencyStore, *fakePrefs) {
	t.Helper()
	prefs := newFakePrefs()
	m := NewManager(src, nil, testLogger())
	return NewCurrencyStore(m, prefs, testLogger()), prefs
}

func TestCurrencyStore_InitializeAdoptsSavedCurrency(t *testing.T) {
	src := &fakeSource{responses: []fetchResult{{rows: liveRates}}}
	store, prefs := newTestCurrencyStore(t, src)
	prefs.values[PreferenceKey] = "PLN"

	store.Initialize(context.Background())

	assert.True(t, store.Initialized())
	assert.Equal(t, "PLN", store.Selected())
}

func TestCurrencyStore_InitializeIgnoresUnknownSavedCurrency(t *testing.T) {
	src := &fakeSource{responses: []fetchResult{{rows: liveRates}}}
	store, prefs := newTestCurrencyStore(t, src)
	prefs.values[PreferenceKey] = "DOGE"

	store.Initialize(context.Background())

	assert.Equal(t, DefaultCurrency, store.Selected())
}

func TestCurrencyStore_InitializeSurvivesFetchAndStorageFailure(t *testing.T) {
	src := &fakeSource{responses: []fetchResult{{err: fmt.Errorf("offline")}}}
	store, prefs := newTestCurrencyStore(t, src)
	prefs.getErr = fmt.Errorf("storage unavailable")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store.Initialize(ctx)

	assert.True(t, store.Initialized())
	assert.Equal(t, DefaultCurrency, store.Selected())
	// Fallback rates still convert.
	assert.Equal(t, "$10.00", store.FormatPrice(10))
}

func TestCurrencyStore_InitializeConcurrentRunsOnce(t *testing.T) {
	src := &fakeSource{responses: []fetchResult{{rows: liveRates}}}
	store, prefs := newTestCurrencyStore(t, src)
	prefs.values[PreferenceKey] = "EUR"

	notifications := 0
	store.Subscribe(func() { notifications++ })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Initialize(context.Background())
		}()
	}
	wg.Wait()

	assert.True(t, store.Initialized())
	assert.Equal(t, "EUR", store.Selected())
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, notifications)
}

func TestCurrencyStore_SelectValidatesAndNotifies(t *testing.T) {
	src := &fakeSource{responses: []fetchResult{{rows: liveRates}}}
	store, prefs := newTestCurrencyStore(t, src)
	ctx := context.Background()
	store.Initialize(ctx)

	calls := 0
	sub := store.Subscribe(func() { calls++ })

	store.Select(ctx, "EUR")
	assert.Equal(t, "EUR", store.Selected())
	assert.Equal(t, "EUR", prefs.values[PreferenceKey])
	assert.Equal(t, 1, calls)

	store.Select(ctx, "DOGE")
	assert.Equal(t, "EUR", store.Selected())
	assert.Equal(t, 1, calls)

	sub.Cancel()
	store.Select(ctx, "GBP")
	assert.Equal(t, 1, calls)
}

func TestCurrencyStore_FormatUsesSelectedCurrency(t *testing.T) {
	src := &fakeSource{responses: []fetchResult{{rows: []Rate{{CurrencyCode: "PLN", RateToUSD: 4.0}}}}}
	store, _ := newTestCurrencyStore(t, src)
	ctx := context.Background()
	store.Initialize(ctx)

	assert.Equal(t, "$12.00", store.FormatPrice(12))

	store.Select(ctx, "PLN")
	assert.Equal(t, "48.00 zł", store.FormatPrice(12))
	assert.Equal(t, 48.0, store.ConvertPrice(12))
}
