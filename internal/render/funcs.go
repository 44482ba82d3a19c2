package render

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/NZ-247/WebSite-Romantic/internal/experience"
)

var (
	dataImagePattern = regexp.MustCompile(`^data:image/(png|jpe?g|gif|webp|avif|bmp|svg\+xml);base64,[A-Za-z0-9+/=\r\n]+$`)

	markdownParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
		),
	)
	markdownPolicy = newMarkdownPolicy()
)

func newMarkdownPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"safeURL":       safeURLOrEmpty,
		"photoSrc":      PhotoSrc,
		"listenURL":     ListenURL,
		"nl2br":         NL2BR,
		"markdown":      Markdown,
		"cardStyle":     CardStyle,
		"carouselStyle": CarouselStyle,
		"add":           func(a, b int) int { return a + b },
	}
}

// SafeURL validates a user-supplied photo or song URL. It accepts absolute http(s)
// URLs, relative references and base64 image data URIs; anything else is rejected.
func SafeURL(raw string) (template.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if len(raw) >= 5 && strings.EqualFold(raw[:5], "data:") {
		if dataImagePattern.MatchString(raw) {
			return template.URL(raw), true
		}
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		if strings.ContainsRune(raw, '\\') {
			return "", false
		}
	case "http", "https":
		if u.Host == "" {
			return "", false
		}
	default:
		return "", false
	}
	return template.URL(raw), true
}

func safeURLOrEmpty(raw string) template.URL {
	u, _ := SafeURL(raw)
	return u
}

// PhotoSrc returns the validated image source, or empty when the photo must render as
// a placeholder.
func PhotoSrc(raw string) template.URL {
	return safeURLOrEmpty(raw)
}

// ListenURL returns the link offered in the music block: the public track page for
// track references and the file itself for direct audio.
func ListenURL(raw string) template.URL {
	ref := experience.Classify(raw)
	switch ref.Kind {
	case experience.SourceTrack:
		return template.URL("https://open.spotify.com/track/" + ref.TrackID)
	case experience.SourceDirect:
		return safeURLOrEmpty(ref.URL)
	default:
		return ""
	}
}

// NL2BR escapes text and turns line breaks into <br /> elements.
func NL2BR(text string) template.HTML {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = template.HTMLEscapeString(line)
	}
	return template.HTML(strings.Join(lines, "<br />"))
}

// Markdown converts a markdown section body into sanitized HTML.
func Markdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := markdownParser.Convert([]byte(text), &buf); err != nil {
		return NL2BR(text)
	}
	return template.HTML(markdownPolicy.SanitizeBytes(buf.Bytes()))
}

// CardStyle places a visible deck card. Hidden cards get no inline style.
func CardStyle(card experience.CardView) template.CSS {
	if !card.Visible {
		return ""
	}
	return template.CSS(fmt.Sprintf("z-index: %d; transform: %s", card.Layout.Z, card.Layout.Transform()))
}

// CarouselStyle shifts the carousel track to the current slide.
func CarouselStyle(c experience.CarouselView) template.CSS {
	return template.CSS(fmt.Sprintf("transform: translateX(%d%%)", -c.Index*100))
}
