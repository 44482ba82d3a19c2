package render

import (
	"encoding/json"
	"html/template"
	"strconv"
	"time"

	"github.com/NZ-247/WebSite-Romantic/internal/admin"
	"github.com/NZ-247/WebSite-Romantic/internal/content"
	"github.com/NZ-247/WebSite-Romantic/internal/experience"
	"github.com/NZ-247/WebSite-Romantic/internal/i18n"
)

// Request headers carried by every htmx call of a page.
const (
	HeaderCSRF  = "X-CSRF-Token"
	HeaderVisit = "X-Visit-ID"
)

// Page holds what every full page needs.
type Page struct {
	Lang      string
	T         i18n.Translator
	Title     string
	CSRFToken string
	VisitID   string
	Theme     ThemeView
	Hearts    []Heart
}

// NewPage builds the chrome for doc.
func NewPage(t i18n.Translator, csrfToken string, doc content.Document) Page {
	title := doc.Site.Title
	if title == "" {
		title = t.T("page.title")
	}
	return Page{
		Lang:      t.Lang(),
		T:         t,
		Title:     title,
		CSRFToken: csrfToken,
		Theme:     NewTheme(doc.Theme),
	}
}

// Headers is the hx-headers value of the page body.
func (p Page) Headers() string {
	headers := map[string]string{HeaderCSRF: p.CSRFToken}
	if p.VisitID != "" {
		headers[HeaderVisit] = p.VisitID
	}
	data, _ := json.Marshal(headers)
	return string(data)
}

// ExperienceView renders the envelope, letter, photo deck and music widget.
type ExperienceView struct {
	Page
	Site     content.Site
	Letter   content.Letter
	Envelope experience.EnvelopeState
	LetterIn time.Duration
	Deck     experience.DeckView
	Music    MusicWidget
}

// NewExperience projects a visit snapshot.
func NewExperience(page Page, doc content.Document, snap experience.Snapshot) ExperienceView {
	return ExperienceView{
		Page:     page,
		Site:     doc.Site,
		Letter:   doc.Letter,
		Envelope: snap.Envelope,
		LetterIn: snap.LetterIn,
		Deck:     snap.Deck,
		Music:    NewMusicWidget(page.T, doc.Song, snap.Music),
	}
}

// Opening reports whether the envelope has been opened.
func (v ExperienceView) Opening() bool { return v.Envelope != experience.EnvelopeClosed }

// LetterVisible reports whether the letter can be read.
func (v ExperienceView) LetterVisible() bool { return v.Envelope == experience.EnvelopeLetterVisible }

// Pending reports whether the letter is still waiting for the open animation.
func (v ExperienceView) Pending() bool { return v.Envelope == experience.EnvelopeOpening }

// LetterDelayMs is the wait before the page asks for the letter again.
func (v ExperienceView) LetterDelayMs() int64 {
	ms := v.LetterIn.Milliseconds()
	if v.LetterIn%time.Millisecond != 0 {
		ms++
	}
	if ms < 1 {
		ms = 1
	}
	return ms
}

// MusicWidget renders the play/pause toggle and, while playing, the active player.
type MusicWidget struct {
	T     i18n.Translator
	Song  content.Song
	State experience.MusicView
}

// NewMusicWidget builds the widget view.
func NewMusicWidget(t i18n.Translator, song content.Song, state experience.MusicView) MusicWidget {
	return MusicWidget{T: t, Song: song, State: state}
}

// Audio is the source of the looping audio element, if one should play.
func (m MusicWidget) Audio() template.URL {
	if !m.State.Playing() || m.State.Player.Kind != experience.SourceDirect {
		return ""
	}
	return safeURLOrEmpty(m.State.Player.Src)
}

// Embed is the source of the embedded track player, if one should play.
func (m MusicWidget) Embed() template.URL {
	if !m.State.Playing() || m.State.Player.Kind != experience.SourceTrack {
		return ""
	}
	return safeURLOrEmpty(m.State.Player.Src)
}

// EmbedScript is the controller script the page loads to command the track player.
func (m MusicWidget) EmbedScript() template.URL {
	if m.Embed() == "" {
		return ""
	}
	return safeURLOrEmpty(m.State.Player.Script)
}

// TrackURI is the track the controller plays.
func (m MusicWidget) TrackURI() string { return m.State.Player.URI }

// ClassicView renders the hero, every section in order and the music block.
type ClassicView struct {
	Page
	Site     content.Site
	Song     content.Song
	Sections []SectionView
	Music    MusicWidget
}

// SectionView is one rendered section. Type is always a known section type.
type SectionView struct {
	Index    int
	ID       string
	Title    string
	Text     string
	Type     string
	Carousel *CarouselWidget
}

// NewClassic projects the document and the carousel state of a visit.
func NewClassic(page Page, doc content.Document, snap experience.Snapshot) ClassicView {
	v := ClassicView{
		Page:     page,
		Site:     doc.Site,
		Song:     doc.Song,
		Sections: make([]SectionView, len(doc.Sections)),
		Music:    NewMusicWidget(page.T, doc.Song, snap.Music),
	}
	for i, s := range doc.Sections {
		section := SectionView{Index: i, ID: s.ID, Title: s.Title, Text: s.Text, Type: sectionType(s.Type)}
		if section.Type == content.SectionGallery {
			w := NewCarouselWidget(page.T, doc, i, snap.Carousels[i])
			section.Carousel = &w
		}
		v.Sections[i] = section
	}
	return v
}

func sectionType(t string) string {
	switch t {
	case content.SectionGallery, content.SectionMarkdown:
		return t
	default:
		return content.SectionPlain
	}
}

// CarouselWidget renders one gallery carousel over every photo.
type CarouselWidget struct {
	T          i18n.Translator
	Section    int
	Photos     []content.Photo
	State      experience.CarouselView
	Navigation content.Navigation
}

// NewCarouselWidget builds the carousel of section.
func NewCarouselWidget(t i18n.Translator, doc content.Document, section int, state experience.CarouselView) CarouselWidget {
	state.Section = section
	state.Size = len(doc.Photos)
	return CarouselWidget{T: t, Section: section, Photos: doc.Photos, State: state, Navigation: doc.Navigation}
}

// Position is the 1-based slide number shown next to the controls.
func (c CarouselWidget) Position() int {
	if len(c.Photos) == 0 {
		return 0
	}
	return c.State.Index + 1
}

// Trigger is the htmx auto-rotation trigger, empty when rotation is off.
func (c CarouselWidget) Trigger() string {
	if !c.Navigation.AutoRotate || len(c.Photos) < 2 {
		return ""
	}
	trigger := "every " + strconv.Itoa(content.ClampInterval(c.Navigation.IntervalMs)) + "ms"
	if c.Navigation.PauseOnHover {
		trigger += " [!this.matches(':hover')]"
	}
	return trigger
}

// Alert is a message shown above the admin form.
type Alert struct {
	Kind    string // success or error
	Message string
}

// AdminView renders the editor.
type AdminView struct {
	Page
	WorkspaceID     string
	Form            admin.Form
	Alert           Alert
	AnimationStyles []string
}

// NewAdmin builds the editor view.
func NewAdmin(page Page, workspaceID string, form admin.Form, alert Alert) AdminView {
	return AdminView{
		Page:            page,
		WorkspaceID:     workspaceID,
		Form:            form,
		Alert:           alert,
		AnimationStyles: form.AnimationOptions(),
	}
}
