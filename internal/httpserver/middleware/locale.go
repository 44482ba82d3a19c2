package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/NZ-247/WebSite-Romantic/internal/i18n"
)

type localeContextKey string

const requestLocaleKey localeContextKey = "loveletter.locale"

// LocaleQueryParam switches the interface language when present on any URL.
const LocaleQueryParam = "hl"

// Locale resolves the interface language: the `hl` query override, then the session,
// then Accept-Language. The choice is stored in the session so fragments keep it.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, hasSession := SessionFromContext(r.Context())

			locale := ""
			if q := r.URL.Query().Get(LocaleQueryParam); q != "" {
				locale = supported(bundle, q)
			}
			if locale == "" && hasSession {
				locale = supported(bundle, sess.Locale())
			}
			if locale == "" {
				locale = bundle.Resolve(r.Header.Get("Accept-Language"))
			}
			if hasSession && sess.Locale() != locale {
				sess.SetLocale(locale)
			}

			w.Header().Set("Content-Language", locale)
			w.Header().Add("Vary", "Accept-Language")
			ctx := context.WithValue(r.Context(), requestLocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the resolved language, or fallback when none was resolved.
func LocaleFromContext(ctx context.Context, fallback string) string {
	if v, ok := ctx.Value(requestLocaleKey).(string); ok && v != "" {
		return v
	}
	return fallback
}

func supported(bundle *i18n.Bundle, locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	for _, name := range bundle.Supported() {
		if strings.EqualFold(name, locale) {
			return name
		}
	}
	return ""
}
