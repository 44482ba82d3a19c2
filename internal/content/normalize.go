package content

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultIntervalMs is the rotation interval used when none is configured.
	DefaultIntervalMs = 6500
	// MinIntervalMs is the lower bound enforced on every interval.
	MinIntervalMs = 2500

	letterMarker = "carta"

	defaultLetterTitle     = "Uma carta para você"
	defaultLetterMessage   = "Meu amor, cada momento ao seu lado transforma a vida em poesia."
	defaultLetterSignature = "Com amor, hoje e sempre."
	defaultSongTitle       = "Nossa música"
	defaultSongArtist      = "Trilha sonora do nosso amor"
)

// DefaultNavigation returns the navigation settings applied under any document.
func DefaultNavigation() Navigation {
	return Navigation{AutoRotate: true, IntervalMs: DefaultIntervalMs, PauseOnHover: true}
}

// ClampInterval applies the interval rules: zero means unset, anything below the
// minimum is raised to it.
func ClampInterval(ms int) int {
	if ms == 0 {
		ms = DefaultIntervalMs
	}
	if ms < MinIntervalMs {
		return MinIntervalMs
	}
	return ms
}

// ParseInterval converts loosely typed input (numbers, numeric strings) into a clamped
// interval.
func ParseInterval(v any) int {
	n, ok := asNumber(v)
	if !ok || math.IsNaN(n) || n == 0 {
		return DefaultIntervalMs
	}
	if n < MinIntervalMs {
		return MinIntervalMs
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// Normalize fills absent and legacy fields of a loosely typed document. It never fails:
// malformed optional fields degrade to defaults.
func Normalize(raw map[string]any) Document {
	site := asObject(raw["site"])
	doc := Document{
		Site: Site{
			Title:         asString(site["title"]),
			Subtitle:      asString(site["subtitle"]),
			FooterMessage: asString(site["footerMessage"]),
			Extra:         extraOf(site, siteKeys),
		},
		Theme:    normalizeTheme(asObject(raw["theme"])),
		Sections: normalizeSections(raw["sections"]),
		Photos:   normalizePhotos(raw["photos"]),
		Extra:    extraOf(raw, documentKeys),
	}
	doc.Navigation = normalizeNavigation(asObject(raw["navigation"]))
	doc.Song = normalizeSong(asObject(raw["song"]))
	doc.Letter = normalizeLetter(asObject(raw["letter"]), site, raw["sections"])
	return doc
}

// NormalizeDocument runs an already typed document through the same rules, which is
// how edited documents are brought back to a consistent state.
func NormalizeDocument(doc Document) Document {
	data, err := json.Marshal(doc)
	if err != nil {
		return doc
	}
	out, err := Decode(data)
	if err != nil {
		return doc
	}
	return out
}

func normalizeTheme(obj map[string]any) Theme {
	return Theme{
		PrimaryColor:   asString(obj["primaryColor"]),
		SecondaryColor: asString(obj["secondaryColor"]),
		AccentColor:    asString(obj["accentColor"]),
		AnimationStyle: asString(obj["animationStyle"]),
		Extra:          extraOf(obj, themeKeys),
	}
}

func normalizeNavigation(obj map[string]any) Navigation {
	nav := DefaultNavigation()
	nav.Extra = extraOf(obj, navigationKeys)
	if v, ok := present(obj, "autoRotate"); ok {
		nav.AutoRotate = asBool(v, nav.AutoRotate)
	}
	if v, ok := present(obj, "intervalMs"); ok {
		nav.IntervalMs = ParseInterval(v)
	}
	if v, ok := present(obj, "pauseOnHover"); ok {
		nav.PauseOnHover = asBool(v, nav.PauseOnHover)
	}
	return nav
}

func normalizeSong(obj map[string]any) Song {
	song := Song{Title: defaultSongTitle, Artist: defaultSongArtist, Extra: extraOf(obj, songKeys)}
	if v, ok := present(obj, "title"); ok {
		song.Title = asString(v)
	}
	if v, ok := present(obj, "artist"); ok {
		song.Artist = asString(v)
	}
	if v, ok := present(obj, "url"); ok {
		song.URL = asString(v)
	}
	return song
}

func normalizeLetter(obj, site map[string]any, sections any) Letter {
	letter := Letter{
		Title:     defaultLetterTitle,
		Message:   defaultLetterMessage,
		Signature: defaultLetterSignature,
		Extra:     extraOf(obj, letterKeys),
	}

	// A marked section without text falls through to the subtitle.
	if text, ok := letterText(sections); ok {
		letter.Message = text
	} else if v, ok := present(site, "subtitle"); ok {
		letter.Message = asString(v)
	}
	if v, ok := present(site, "footerMessage"); ok {
		letter.Signature = asString(v)
	}

	if v, ok := present(obj, "title"); ok {
		letter.Title = asString(v)
	}
	if v, ok := present(obj, "message"); ok {
		letter.Message = asString(v)
	}
	if v, ok := present(obj, "signature"); ok {
		letter.Signature = asString(v)
	}
	return letter
}

func normalizeSections(v any) []Section {
	items, _ := v.([]any)
	out := make([]Section, 0, len(items))
	for _, item := range items {
		obj := asObject(item)
		s := Section{
			ID:    asString(obj["id"]),
			Title: asString(obj["title"]),
			Text:  asString(obj["text"]),
			Type:  asString(obj["type"]),
			Extra: extraOf(obj, sectionKeys),
		}
		if strings.TrimSpace(s.Type) == "" {
			s.Type = SectionPlain
		}
		out = append(out, s)
	}
	return out
}

func normalizePhotos(v any) []Photo {
	items, _ := v.([]any)
	out := make([]Photo, 0, len(items))
	for _, item := range items {
		obj := asObject(item)
		out = append(out, Photo{
			URL:     asString(obj["url"]),
			Caption: asString(obj["caption"]),
			Extra:   extraOf(obj, photoKeys),
		})
	}
	return out
}

// letterText returns the text of the first raw section whose id carries the letter
// marker, when that text is set.
func letterText(sections any) (string, bool) {
	items, _ := sections.([]any)
	for _, item := range items {
		obj := asObject(item)
		if !hasLetterMarker(asString(obj["id"])) {
			continue
		}
		v, ok := present(obj, "text")
		if !ok {
			return "", false
		}
		return asString(v), true
	}
	return "", false
}

func hasLetterMarker(id string) bool {
	return strings.Contains(id, letterMarker)
}

// present reports whether key holds a non-null value.
func present(obj map[string]any, key string) (any, bool) {
	if obj == nil {
		return nil, false
	}
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func asObject(v any) map[string]any {
	obj, _ := v.(map[string]any)
	return obj
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asBool(v any, fallback bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return fallback
		}
		return b
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return fallback
		}
		return f != 0
	case float64:
		return t != 0
	default:
		return fallback
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
