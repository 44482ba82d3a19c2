package render

import (
	"fmt"
	"html/template"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/NZ-247/WebSite-Romantic/internal/content"
)

// Fallback theme tokens, applied per field when a stored value is unusable.
const (
	DefaultPrimaryColor   = "#c2185b"
	DefaultSecondaryColor = "#fce4ec"
	DefaultAccentColor    = "#ff8a80"
)

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ThemeView is the theme as the layout consumes it.
type ThemeView struct {
	Primary   string
	Secondary string
	Accent    string
	Animation string
}

// NewTheme validates the stored tokens.
func NewTheme(t content.Theme) ThemeView {
	return ThemeView{
		Primary:   color(t.PrimaryColor, DefaultPrimaryColor),
		Secondary: color(t.SecondaryColor, DefaultSecondaryColor),
		Accent:    color(t.AccentColor, DefaultAccentColor),
		Animation: animation(t.AnimationStyle),
	}
}

// Style renders the tokens as CSS custom properties.
func (t ThemeView) Style() template.CSS {
	return template.CSS(fmt.Sprintf("--color-primary: %s; --color-secondary: %s; --color-accent: %s",
		t.Primary, t.Secondary, t.Accent))
}

func color(value, fallback string) string {
	value = strings.TrimSpace(value)
	if colorPattern.MatchString(value) {
		return strings.ToLower(value)
	}
	return fallback
}

func animation(style string) string {
	switch style {
	case content.AnimationDefault, content.AnimationSlide, content.AnimationParallax:
		return style
	default:
		return content.AnimationDefault
	}
}

// Heart is one floating decorative heart.
type Heart struct {
	Left     float64 // percent of the stage width
	Size     float64 // px
	Duration float64 // seconds
	Delay    float64 // seconds
}

// Style renders the heart's custom properties.
func (h Heart) Style() template.CSS {
	return template.CSS(fmt.Sprintf("--left: %.2f%%; --size: %.2fpx; --duration: %.2fs; --delay: %.2fs",
		h.Left, h.Size, h.Duration, h.Delay))
}

// NewHearts draws n hearts from rng.
func NewHearts(rng *rand.Rand, n int) []Heart {
	hearts := make([]Heart, n)
	for i := range hearts {
		hearts[i] = Heart{
			Left:     rng.Float64() * 100,
			Size:     14 + rng.Float64()*26,
			Duration: 7 + rng.Float64()*8,
			Delay:    rng.Float64() * 8,
		}
	}
	return hearts
}
