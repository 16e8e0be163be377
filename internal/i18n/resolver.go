package i18n

import (
	"embed"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/messages.*.toml
var localeFS embed.FS

// Translator resolves message keys against the active language with an
// English fallback. A key missing from every table resolves to itself.
type Translator struct {
	store  *Store
	bundle *goi18n.Bundle

	mu         sync.RWMutex
	localizers map[string]*goi18n.Localizer
}

// NewTranslator loads the embedded locale files for all supported languages.
func NewTranslator(store *Store) (*Translator, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, lang := range SupportedLanguages {
		path := fmt.Sprintf("locales/messages.%s.toml", lang)
		if _, err := bundle.LoadMessageFileFS(localeFS, path); err != nil {
			return nil, fmt.Errorf("failed to load messages for %s: %w", lang, err)
		}
	}

	return &Translator{
		store:      store,
		bundle:     bundle,
		localizers: make(map[string]*goi18n.Localizer),
	}, nil
}

// T resolves key for the store's current language. Lookup order: active
// language, then the default language, then the key itself. Never returns
// an empty string for a non-empty key.
func (t *Translator) T(key string) string {
	loc := t.localizer(t.store.Language())

	// Localize hands back the fallback-chain translation together with a
	// non-nil "message not found" error when the active table lacks the
	// key, so a returned message always wins over the error.
	msg, _ := loc.Localize(&goi18n.LocalizeConfig{MessageID: key})
	if msg == "" {
		return key
	}
	return msg
}

// localizer returns a cached localizer for lang with the default-language
// fallback chain. Localizers are immutable, so caching per language is safe
// across language switches.
func (t *Translator) localizer(lang string) *goi18n.Localizer {
	t.mu.RLock()
	loc, ok := t.localizers[lang]
	t.mu.RUnlock()
	if ok {
		return loc
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if loc, ok = t.localizers[lang]; ok {
		return loc
	}
	loc = goi18n.NewLocalizer(t.bundle, lang, DefaultLanguage)
	t.localizers[lang] = loc
	return loc
}
