package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Bundle holds UI labels per locale.
type Bundle struct {
	dict     map[string]map[string]string
	fallback string
	tags     []language.Tag
	names    []string
	matcher  language.Matcher
}

// Load reads the embedded locale files. The fallback locale must exist and is listed
// first so the matcher prefers it on ties.
func Load(fallback string) (*Bundle, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}

	b := &Bundle{dict: map[string]map[string]string{}, fallback: fallback}
	var names []string
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		raw, err := localeFS.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("i18n: unmarshal %s: %w", name, err)
		}
		b.dict[name] = m
		if name != fallback {
			names = append(names, name)
		}
	}
	if _, ok := b.dict[fallback]; !ok {
		return nil, fmt.Errorf("i18n: fallback locale %s not loaded", fallback)
	}
	sort.Strings(names)
	b.names = append([]string{fallback}, names...)

	for _, name := range b.names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("i18n: locale %s: %w", name, err)
		}
		b.tags = append(b.tags, tag)
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Supported lists the locales, fallback first.
func (b *Bundle) Supported() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Fallback returns the default locale.
func (b *Bundle) Fallback() string { return b.fallback }

// Has reports whether locale is one of the bundled locales.
func (b *Bundle) Has(locale string) bool {
	_, ok := b.dict[locale]
	return ok
}

// T returns the label for key in lang, falling back to the default locale and finally
// to the key itself.
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := b.dict[b.fallback][key]; ok {
		return v
	}
	return key
}

// Resolve picks the best bundled locale for an Accept-Language header.
func (b *Bundle) Resolve(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return b.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return b.fallback
	}
	_, index, confidence := b.matcher.Match(prefs...)
	if confidence == language.No {
		return b.fallback
	}
	return b.names[index]
}

// Translator binds a bundle to a single locale for templates.
type Translator struct {
	bundle *Bundle
	lang   string
}

// For returns a Translator for lang.
func (b *Bundle) For(lang string) Translator {
	if !b.Has(lang) {
		lang = b.fallback
	}
	return Translator{bundle: b, lang: lang}
}

// T returns the label for key.
func (t Translator) T(key string) string {
	if t.bundle == nil {
		return key
	}
	return t.bundle.T(t.lang, key)
}

// Lang returns the bound locale.
func (t Translator) Lang() string { return t.lang }
