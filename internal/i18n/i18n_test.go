package i18n

import (
	"context"
	"fmt"
	"testing"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// fakePrefs is an in-memory Preferences with injectable failures.
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

func newTestStore(t *testing.T) (*Store, *fakePrefs) {
	t.Helper()
	prefs := newFakePrefs()
	logger, _ := zap.NewDevelopment()
	return NewStore(prefs, logger), prefs
}

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestStore_ChangeLanguageRoundTrip(t *testing.T) {
	store, prefs := newTestStore(t)
	ctx := context.Background()

	for _, code := range SupportedLanguages {
		store.ChangeLanguage(ctx, code)
		assert.Equal(t, code, store.Language())
		assert.Equal(t, code, prefs.values[PreferenceKey])
	}
}

func TestStore_UnsupportedCodeIgnored(t *testing.T) {
	store, prefs := newTestStore(t)
	ctx := context.Background()

	store.ChangeLanguage(ctx, "pl")
	store.ChangeLanguage(ctx, "xx")
	store.ChangeLanguage(ctx, "")
	store.ChangeLanguage(ctx, "EN")

	assert.Equal(t, "pl", store.Language())
	assert.Equal(t, "pl", prefs.values[PreferenceKey])
}

func TestStore_ListenerExactlyOncePerChange(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	calls := 0
	sub := store.Subscribe(func() { calls++ })

	store.ChangeLanguage(ctx, "de")
	assert.Equal(t, 1, calls)

	// Same code again still notifies; no deduplication.
	store.ChangeLanguage(ctx, "de")
	assert.Equal(t, 2, calls)

	// Unsupported code does not notify.
	store.ChangeLanguage(ctx, "zz")
	assert.Equal(t, 2, calls)

	sub.Cancel()
	store.ChangeLanguage(ctx, "fr")
	assert.Equal(t, 2, calls)

	// Cancel is idempotent.
	sub.Cancel()
}

func TestStore_NotificationIsSynchronousAndInOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var seen []string
	store.Subscribe(func() { seen = append(seen, store.Language()) })

	store.ChangeLanguage(ctx, "es")
	store.ChangeLanguage(ctx, "pt")

	assert.Equal(t, []string{"es", "pt"}, seen)
}

func TestStore_InitializeAdoptsSavedPreference(t *testing.T) {
	clearLocaleEnv(t)
	store, prefs := newTestStore(t)
	prefs.values[PreferenceKey] = "cs"

	store.Initialize(context.Background())

	assert.True(t, store.Initialized())
	assert.Equal(t, "cs", store.Language())
}

func TestStore_InitializeIgnoresUnsupportedSavedPreference(t *testing.T) {
	clearLocaleEnv(t)
	store, prefs := newTestStore(t)
	prefs.values[PreferenceKey] = "klingon"

	store.Initialize(context.Background())

	assert.Equal(t, DefaultLanguage, store.Language())
	assert.Equal(t, DefaultLanguage, prefs.values[PreferenceKey])
}

func TestStore_InitializeUnsupportedDeviceLocaleDefaultsToEnglish(t *testing.T) {
	clearLocaleEnv(t)
	t.Setenv("LANG", "xx_YY.UTF-8")
	store, prefs := newTestStore(t)

	store.Initialize(context.Background())

	assert.Equal(t, "en", store.Language())
	assert.Equal(t, "en", prefs.values[PreferenceKey], "derived language must be persisted")
}

func TestStore_InitializeUsesDeviceLocale(t *testing.T) {
	clearLocaleEnv(t)
	t.Setenv("LANG", "pl_PL.UTF-8")
	store, prefs := newTestStore(t)

	store.Initialize(context.Background())

	assert.Equal(t, "pl", store.Language())
	assert.Equal(t, "pl", prefs.values[PreferenceKey])
}

func TestStore_InitializeIdempotentAndNotifiesOnce(t *testing.T) {
	clearLocaleEnv(t)
	store, _ := newTestStore(t)

	calls := 0
	store.Subscribe(func() { calls++ })

	store.Initialize(context.Background())
	store.Initialize(context.Background())

	assert.Equal(t, 1, calls)
	assert.True(t, store.Initialized())
}

func TestStore_InitializeSurvivesStorageFailure(t *testing.T) {
	clearLocaleEnv(t)
	store, prefs := newTestStore(t)
	prefs.getErr = fmt.Errorf("storage unavailable")
	prefs.setErr = fmt.Errorf("storage unavailable")

	calls := 0
	store.Subscribe(func() { calls++ })

	store.Initialize(context.Background())

	assert.True(t, store.Initialized())
	assert.Equal(t, DefaultLanguage, store.Language())
	assert.Equal(t, 1, calls, "listeners fire once even on the failure path")
}

func TestStore_ChangeLanguageSurvivesPersistFailure(t *testing.T) {
	store, prefs := newTestStore(t)
	prefs.setErr = fmt.Errorf("disk full")

	calls := 0
	store.Subscribe(func() { calls++ })

	store.ChangeLanguage(context.Background(), "fr")

	assert.Equal(t, "fr", store.Language())
	assert.Equal(t, 1, calls)
}

func TestTranslator_ResolvesActiveLanguage(t *testing.T) {
	store, _ := newTestStore(t)
	tr, err := NewTranslator(store)
	require.NoError(t, err)

	assert.Equal(t, "Language", tr.T("language"))

	store.ChangeLanguage(context.Background(), "pl")
	assert.Equal(t, "Język", tr.T("language"))

	store.ChangeLanguage(context.Background(), "es")
	assert.Equal(t, "Iniciar sesión", tr.T("login"))
}

func TestTranslator_UnknownKeyFallsBackToKey(t *testing.T) {
	store, _ := newTestStore(t)
	tr, err := NewTranslator(store)
	require.NoError(t, err)

	assert.Equal(t, "no.such.key", tr.T("no.such.key"))

	store.ChangeLanguage(context.Background(), "de")
	assert.Equal(t, "no.such.key", tr.T("no.such.key"))
}

func TestTranslator_MissingFromActiveLanguageFallsBackToEnglish(t *testing.T) {
	store, _ := newTestStore(t)
	tr, err := NewTranslator(store)
	require.NoError(t, err)

	// key present only in the default-language table
	require.NoError(t, tr.bundle.AddMessages(language.English, &goi18n.Message{
		ID:    "englishOnly",
		Other: "English only",
	}))

	store.ChangeLanguage(context.Background(), "pl")
	assert.Equal(t, "English only", tr.T("englishOnly"))

	store.ChangeLanguage(context.Background(), "en")
	assert.Equal(t, "English only", tr.T("englishOnly"))
}

func TestTranslator_DottedKeys(t *testing.T) {
	store, _ := newTestStore(t)
	tr, err := NewTranslator(store)
	require.NoError(t, err)

	assert.Equal(t, "Upload Document", tr.T("button.upload"))

	store.ChangeLanguage(context.Background(), "de")
	assert.Equal(t, "Dokument hochladen", tr.T("button.upload"))
}

func TestDetectDeviceLanguage(t *testing.T) {
	clearLocaleEnv(t)

	t.Run("supported", func(t *testing.T) {
		t.Setenv("LANG", "de_DE.UTF-8")
		assert.Equal(t, "de", DetectDeviceLanguage())
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Setenv("LANG", "ja_JP.UTF-8")
		assert.Equal(t, "en", DetectDeviceLanguage())
	})

	t.Run("unavailable", func(t *testing.T) {
		t.Setenv("LANG", "")
		assert.Equal(t, "en", DetectDeviceLanguage())
	})

	t.Run("lc_all wins", func(t *testing.T) {
		t.Setenv("LC_ALL", "fr_FR.UTF-8")
		t.Setenv("LANG", "de_DE.UTF-8")
		assert.Equal(t, "fr", DetectDeviceLanguage())
	})

	t.Run("posix locale skipped", func(t *testing.T) {
		t.Setenv("LC_ALL", "C")
		t.Setenv("LANG", "pt_BR.UTF-8")
		assert.Equal(t, "pt", DetectDeviceLanguage())
	})
}
