package i18n

import (
	"os"
	"strings"
)

// DetectDeviceLanguage derives a best-guess language from the host locale
// environment, restricted to the supported set. Returns the default
// language when the locale is unsupported or unavailable.
func DetectDeviceLanguage() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		locale := os.Getenv(key)
		if locale == "" || locale == "C" || locale == "POSIX" {
			continue
		}
		if code := languageFromLocale(locale); IsSupported(code) {
			return code
		}
	}
	return DefaultLanguage
}

// languageFromLocale extracts the language code from a POSIX locale
// identifier such as "pl_PL.UTF-8".
func languageFromLocale(locale string) string {
	code := locale
	if i := strings.IndexAny(code, "_."); i >= 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}
