package render

import (
	"bytes"
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/NZ-247/WebSite-Romantic/internal/admin"
	"github.com/NZ-247/WebSite-Romantic/internal/content"
	"github.com/NZ-247/WebSite-Romantic/internal/experience"
	"github.com/NZ-247/WebSite-Romantic/internal/i18n"
)

func newRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(opts...)
	require.NoError(t, err)
	return r
}

func translator(t *testing.T) i18n.Translator {
	t.Helper()
	b, err := i18n.Load("pt-BR")
	require.NoError(t, err)
	return b.For("pt-BR")
}

func defaultDocument(t *testing.T) content.Document {
	t.Helper()
	doc, err := content.Decode(content.DefaultJSON())
	require.NoError(t, err)
	return doc
}

func renderDoc(t *testing.T, r *Renderer, name string, data any) (*goquery.Document, string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, name, data))
	html := buf.String()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc, html
}

func experienceView(t *testing.T, r *Renderer, doc content.Document, visit *experience.Visit, snap experience.Snapshot) ExperienceView {
	t.Helper()
	page := NewPage(translator(t), "csrf-token", doc)
	page.VisitID = "visit-1"
	page.Hearts = r.Hearts()
	return NewExperience(page, visit.Document(), snap)
}

func TestExperienceEscapesUserText(t *testing.T) {
	t.Parallel()

	r := newRenderer(t)
	doc := defaultDocument(t)
	doc.Site.Title = `<script>alert("x")</script>`
	doc.Letter.Message = "linha um\n<b>linha dois</b>"
	doc.Letter.Signature = `"assinado" & <i>eu</i>`
	doc.Photos = []content.Photo{{URL: "/a.jpg", Caption: `<img src=x onerror=alert(1)>`}}

	visit := experience.NewVisit(doc, experience.Options{})
	dom, html := renderDoc(t, r, "experience", experienceView(t, r, doc, visit, visit.Snapshot()))

	require.NotContains(t, html, "<script>alert")
	require.Equal(t, `<script>alert("x")</script>`, dom.Find(".envelope-scene h1").Text())

	letter := dom.Find(".letter-content")
	require.Equal(t, 1, letter.Find("br").Length())
	require.Zero(t, letter.Find("b").Length())
	require.Equal(t, "linha um<b>linha dois</b>", letter.Text())
	require.Equal(t, `"assinado" & <i>eu</i>`, dom.Find(".letter-signature").Text())

	card := dom.Find("#photo-card-0")
	require.Equal(t, 1, card.Find("img").Length())
	require.Equal(t, `<img src=x onerror=alert(1)>`, card.Find("p").Text())
}

func TestExperienceEnvelopeAndDeckStates(t *testing.T) {
	t.Parallel()

	r := newRenderer(t)
	doc := defaultDocument(t)
	visit := experience.NewVisit(doc, experience.Options{})

	dom, _ := renderDoc(t, r, "experience", experienceView(t, r, doc, visit, visit.Snapshot()))
	require.False(t, dom.Find("#envelope").HasClass("is-opening"))
	require.Equal(t, "0/3", dom.Find("[data-photo-status]").Text())
	require.Zero(t, dom.Find(".admin-link").Length())
	require.Equal(t, `{"X-CSRF-Token":"csrf-token","X-Visit-ID":"visit-1"}`, dom.Find("body").AttrOr("hx-headers", ""))

	dom, _ = renderDoc(t, r, "scenes", experienceView(t, r, doc, visit, visit.OpenEnvelope()))
	require.True(t, dom.Find("#envelope").HasClass("is-opening"))
	pending := dom.Find("[data-letter-pending]")
	require.Equal(t, 1, pending.Length())
	require.Equal(t, "/experience/envelope/letter", pending.AttrOr("hx-get", ""))
	require.Contains(t, pending.AttrOr("hx-trigger", ""), "load delay:")

	dom, _ = renderDoc(t, r, "scenes", experienceView(t, r, doc, visit, visit.ShowPhotos()))
	require.True(t, dom.Find("#letter-sheet").HasClass("is-visible"))
	require.True(t, dom.Find(".envelope-scene").HasClass("is-faded"))
	require.True(t, dom.Find(".photos-scene").HasClass("is-visible"))
	require.Zero(t, dom.Find("[data-letter-pending]").Length())

	first := dom.Find("#photo-card-0")
	require.True(t, first.HasClass("is-visible"))
	require.Equal(t, "z-index: 2; transform: translate(calc(-50% + -16px), calc(-50% + 0px)) rotate(-2deg)", first.AttrOr("style", ""))
	require.False(t, dom.Find("#photo-card-1").HasClass("is-visible"))
	_, disabled := dom.Find("[data-prev-photo]").Attr("disabled")
	require.True(t, disabled)

	visit.NextPhoto()
	dom, _ = renderDoc(t, r, "scenes", experienceView(t, r, doc, visit, visit.NextPhoto()))
	require.Equal(t, "3/3", dom.Find("[data-photo-status]").Text())
	require.Equal(t, "Recomeçar", dom.Find("[data-next-photo]").Text())
	require.Equal(t, "/admin", dom.Find(".admin-link").AttrOr("href", ""))

	dom, _ = renderDoc(t, r, "scenes", experienceView(t, r, doc, visit, visit.NextPhoto()))
	require.Equal(t, "1/3", dom.Find("[data-photo-status]").Text())
	require.Equal(t, 1, dom.Find(".admin-link").Length(), "the admin link stays once every photo was seen")
}

func TestEmptyDeck(t *testing.T) {
	t.Parallel()

	r := newRenderer(t)
	doc := defaultDocument(t)
	doc.Photos = nil
	visit := experience.NewVisit(doc, experience.Options{})

	dom, _ := renderDoc(t, r, "scenes", experienceView(t, r, doc, visit, visit.ShowPhotos()))
	require.Equal(t, "Adicione fotos no painel admin para exibir aqui.", dom.Find(".empty-photos").Text())
	require.Equal(t, "0/0", dom.Find("[data-photo-status]").Text())
	_, disabled := dom.Find("[data-next-photo]").Attr("disabled")
	require.True(t, disabled)
}

func TestRejectedPhotoURLRendersPlaceholder(t *testing.T) {
	t.Parallel()

	r := newRenderer(t)
	doc := defaultDocument(t)
	doc.Photos = []content.Photo{
		{URL: "javascript:alert(1)", Caption: "ruim"},
		{URL: "data:image/png;base64,iVBORw0KGgo=", Caption: "embutida"},
	}
	visit := experience.NewVisit(doc, experience.Options{})
	dom, html := renderDoc(t, r, "experience", experienceView(t, r, doc, visit, visit.Snapshot()))

	require.NotContains(t, html, "javascript:")
	require.Zero(t, dom.Find("#photo-card-0 img").Length())
	require.Equal(t, 1, dom.Find("#photo-card-0 .photo-placeholder").Length())
	require.Equal(t, "data:image/png;base64,iVBORw0KGgo=", dom.Find("#photo-card-1 img").AttrOr("src", ""))
}

func TestSafeURL(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"https://example.com/foto.jpg":         true,
		"http://example.com/foto.jpg":          true,
		"/public/static/images/foto-1.svg":     true,
		"../assets/images/foto-extra.svg":      true,
		"fotos/nossa.jpg":                      true,
		"data:image/jpeg;base64,/9j/4AAQ":      true,
		"data:image/svg+xml;base64,PHN2Zz4=":   true,
		"":                                     false,
		"javascript:alert(1)":                  false,
		"JavaScript:alert(1)":                  false,
		"vbscript:msgbox":                      false,
		"data:text/html;base64,PHNjcmlwdD4=":   false,
		"data:image/png,<svg onload=alert(1)>": false,
		"https:///no-host":                     false,
		"ftp://example.com/a.jpg":              false,
		"java\tscript:alert(1)":                false,
		`\\evil.example.com\share.jpg`:         false,
		"mailto:amor@example.com":              false,
	}
	for raw, want := range tests {
		_, ok := SafeURL(raw)
		require.Equal(t, want, ok, raw)
	}
}

func TestThemeFallsBackPerField(t *testing.T) {
	t.Parallel()

	theme := NewTheme(content.Theme{
		PrimaryColor:   "#ABC",
		SecondaryColor: "red; background: url(x)",
		AccentColor:    "",
		AnimationStyle: "explode",
	})
	require.Equal(t, ThemeView{Primary: "#abc", Secondary: DefaultSecondaryColor, Accent: DefaultAccentColor, Animation: content.AnimationDefault}, theme)

	r := newRenderer(t)
	doc := defaultDocument(t)
	doc.Theme.SecondaryColor = "</style><script>"
	doc.Theme.AnimationStyle = content.AnimationParallax
	visit := experience.NewVisit(doc, experience.Options{})
	dom, _ := renderDoc(t, r, "experience", experienceView(t, r, doc, visit, visit.Snapshot()))

	body := dom.Find("body")
	require.Equal(t, "--color-primary: #c2185b; --color-secondary: #fce4ec; --color-accent: #ff8a80", body.AttrOr("style", ""))
	require.Equal(t, "parallax", body.AttrOr("data-animation", ""))
}

func TestHeartsAreBoundedAndSeeded(t *testing.T) {
	t.Parallel()

	a := newRenderer(t, WithRandSource(rand.NewPCG(7, 11)))
	b := newRenderer(t, WithRandSource(rand.NewPCG(7, 11)))

	hearts := a.Hearts()
	require.Len(t, hearts, DefaultHearts)
	for _, h := range hearts {
		require.GreaterOrEqual(t, h.Left, 0.0)
		require.Less(t, h.Left, 100.0)
		require.GreaterOrEqual(t, h.Size, 14.0)
		require.Less(t, h.Size, 40.0)
		require.GreaterOrEqual(t, h.Duration, 7.0)
		require.Less(t, h.Duration, 15.0)
		require.GreaterOrEqual(t, h.Delay, 0.0)
		require.Less(t, h.Delay, 8.0)
	}
	require.Equal(t, hearts, b.Hearts())

	none := newRenderer(t, WithHearts(0))
	require.Empty(t, none.Hearts())
}

func TestRenderIsIdempotent(t *testing.T) {
	t.Parallel()

	doc := defaultDocument(t)
	render := func() string {
		r := newRenderer(t, WithRandSource(rand.NewPCG(1, 2)))
		visit := experience.NewVisit(doc, experience.Options{})
		_, html := renderDoc(t, r, "experience", experienceView(t, r, doc, visit, visit.Snapshot()))
		return html
	}
	require.Equal(t, render(), render())
}

func TestClassicView(t *testing.T) {
	t.Parallel()

	r := newRenderer(t)
	doc := defaultDocument(t)
	doc.Sections = append(doc.Sections,
		content.Section{ID: "extra", Title: "Notas", Text: "# Título\n\n**forte**\n\n<script>alert(1)</script>", Type: content.SectionMarkdown},
		content.Section{ID: "", Title: "Sem âncora", Text: "x", Type: "desconhecido"},
	)
	doc.Song.URL = "spotify:track:4uLU6hMCjMI75M1A2tKUQC"

	visit := experience.NewVisit(doc, experience.Options{})
	snap, ok := visit.StepCarousel(2, false)
	require.True(t, ok)

	page := NewPage(translator(t), "tok", doc)
	dom, html := renderDoc(t, r, "classic", NewClassic(page, visit.Document(), snap))

	require.Equal(t, 4, dom.Find(".section-nav a").Length())
	require.Equal(t, "#inicio", dom.Find(".section-nav a").First().AttrOr("href", ""))

	sections := dom.Find("main section.content-section")
	require.Equal(t, 5, sections.Length())
	require.Equal(t, "inicio", sections.Eq(0).AttrOr("id", ""))
	require.Equal(t, 2, sections.Eq(1).Find(".section-text br").Length())
	require.True(t, sections.Eq(4).HasClass("section-plain"))
	_, hasID := sections.Eq(4).Attr("id")
	require.False(t, hasID)

	markdown := dom.Find("#extra .markdown")
	require.Equal(t, "Título", markdown.Find("h1").Text())
	require.Equal(t, "forte", markdown.Find("strong").Text())
	require.NotContains(t, html, "<script>alert(1)</script>")

	carousel := dom.Find("#carousel-2")
	require.Equal(t, 3, carousel.Find(".carousel-slide").Length())
	require.Equal(t, "transform: translateX(-200%)", carousel.Find(".carousel-track").AttrOr("style", ""))
	require.Equal(t, "3/3", carousel.Find("[data-carousel-status]").Text())
	require.Equal(t, "every 6500ms [!this.matches(':hover')]", carousel.AttrOr("hx-trigger", ""))
	require.True(t, carousel.Find(".carousel-slide").Eq(2).HasClass("is-active"))

	require.Equal(t, "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", dom.Find(".music-link").AttrOr("href", ""))
	require.Equal(t, "Com amor, hoje e sempre.", dom.Find(".site-footer p").Text())
}

func TestCarouselTrigger(t *testing.T) {
	t.Parallel()

	photos := []content.Photo{{URL: "/a.jpg"}, {URL: "/b.jpg"}}
	tests := []struct {
		nav  content.Navigation
		want string
	}{
		{nav: content.Navigation{AutoRotate: false, IntervalMs: 6500}, want: ""},
		{nav: content.Navigation{AutoRotate: true, IntervalMs: 9000}, want: "every 9000ms"},
		{nav: content.Navigation{AutoRotate: true, IntervalMs: 100, PauseOnHover: true}, want: "every 2500ms [!this.matches(':hover')]"},
	}
	for _, tc := range tests {
		w := CarouselWidget{Photos: photos, Navigation: tc.nav}
		require.Equal(t, tc.want, w.Trigger())
	}
	require.Empty(t, CarouselWidget{Photos: photos[:1], Navigation: content.DefaultNavigation()}.Trigger())
}

func TestMusicWidget(t *testing.T) {
	t.Parallel()

	r := newRenderer(t)
	tr := translator(t)

	hidden := NewMusicWidget(tr, content.Song{URL: "mailto:amor@example.com"}, experience.MusicView{})
	dom, _ := renderDoc(t, r, "music", hidden)
	_, isHidden := dom.Find("#music").Attr("hidden")
	require.True(t, isHidden)
	require.Zero(t, dom.Find("button").Length())

	song := content.Song{Title: "Nossa música", Artist: "Nós", URL: "https://cdn.example.com/nossa.mp3"}
	m := experience.NewMusic(experience.Classify(song.URL), nil)
	idle := NewMusicWidget(tr, song, experience.MusicView{Enabled: m.Enabled(), State: m.State(), Player: m.Player()})
	dom, _ = renderDoc(t, r, "music", idle)
	require.Equal(t, "false", dom.Find(".music-toggle").AttrOr("aria-pressed", ""))
	require.Equal(t, "Tocar nossa música", dom.Find(".music-label").Text())
	require.Zero(t, dom.Find("audio").Length())

	_, err := m.Toggle(context.Background())
	require.NoError(t, err)
	playing := NewMusicWidget(tr, song, experience.MusicView{Enabled: true, State: m.State(), Player: m.Player()})
	dom, _ = renderDoc(t, r, "music", playing)
	require.Equal(t, "true", dom.Find(".music-toggle").AttrOr("aria-pressed", ""))
	require.Equal(t, "Pausar música", dom.Find(".music-label").Text())
	audio := dom.Find("audio[data-music-audio]")
	require.Equal(t, song.URL, audio.AttrOr("src", ""))
	_, loop := audio.Attr("loop")
	require.True(t, loop)

	embed := NewMusicWidget(tr, song, experience.MusicView{
		Enabled: true,
		State:   experience.MusicPlaying,
		Player: experience.Player{
			Kind:   experience.SourceTrack,
			Src:    "https://open.spotify.com/embed/track/4uLU6hMCjMI75M1A2tKUQC",
			Script: "https://open.spotify.com/embed/iframe-api/v1",
			URI:    "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		},
	})
	dom, _ = renderDoc(t, r, "music", embed)
	player := dom.Find("[data-music-embed]")
	require.Equal(t, "https://open.spotify.com/embed/iframe-api/v1", player.AttrOr("data-embed-script", ""))
	require.Equal(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", player.AttrOr("data-track-uri", ""))
	require.Equal(t, "https://open.spotify.com/embed/track/4uLU6hMCjMI75M1A2tKUQC", player.Find("iframe.music-embed").AttrOr("src", ""))
}

func TestAdminForm(t *testing.T) {
	t.Parallel()

	r := newRenderer(t)
	doc := defaultDocument(t)
	doc.Navigation.PauseOnHover = false
	doc.Sections[2].Type = "legado"
	page := NewPage(translator(t), "tok", doc)
	view := NewAdmin(page, "ws-1", admin.Populate(doc), Alert{Kind: "success", Message: "Alterações salvas! Abra a página pública para visualizar."})

	dom, _ := renderDoc(t, r, "admin", view)
	form := dom.Find("#admin-form")
	require.Equal(t, "tok", form.Find(`input[name="csrf_token"]`).AttrOr("value", ""))
	require.Equal(t, "ws-1", form.Find(`input[name="workspace_id"]`).AttrOr("value", ""))
	require.Equal(t, "Para o amor da minha vida", form.Find(`input[name="site.title"]`).AttrOr("value", ""))
	require.Equal(t, "6500", form.Find(`input[name="navigation.intervalMs"]`).AttrOr("value", ""))

	_, autoRotate := form.Find(`input[name="navigation.autoRotate"]`).Attr("checked")
	require.True(t, autoRotate)
	_, pause := form.Find(`input[name="navigation.pauseOnHover"]`).Attr("checked")
	require.False(t, pause)

	rows := form.Find("[data-section-row]")
	require.Equal(t, 3, rows.Length())
	_, upDisabled := rows.First().Find(`[data-move="up"]`).Attr("disabled")
	require.True(t, upDisabled)
	require.Equal(t, "/admin/sections/1/down", rows.Eq(1).Find(`[data-move="down"]`).AttrOr("hx-post", ""))
	require.Equal(t, "legado", rows.Eq(2).Find("select option[selected]").AttrOr("value", ""))
	require.Equal(t, "Meu amor,\nobrigado por transformar dias comuns em lembranças que eu guardo com carinho.\nVocê é a melhor parte de mim.",
		rows.Eq(1).Find("textarea").Text())

	photos := form.Find("[data-photo-row]")
	require.Equal(t, 3, photos.Length())
	require.Equal(t, "/public/static/images/foto-1.svg", photos.First().Find("img.photo-preview").AttrOr("src", ""))
	require.Equal(t, "/admin/photos/2/replace", photos.Eq(2).Find(`input[type="file"]`).AttrOr("hx-post", ""))

	require.Equal(t, "Alterações salvas! Abra a página pública para visualizar.", form.Find("[data-alert]").Text())
	require.Equal(t, "/admin/export", form.Find("[data-export]").AttrOr("formaction", ""))
	require.NotEmpty(t, form.Find("[data-reset]").AttrOr("hx-confirm", ""))
}

func TestTemplatesDirReparses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := newRenderer(t)
	_, err := New(WithTemplatesDir(dir))
	require.Error(t, err, "an empty directory has no templates")

	var buf bytes.Buffer
	require.Error(t, r.Render(&buf, "missing", nil))
	require.Empty(t, buf.String())
}
