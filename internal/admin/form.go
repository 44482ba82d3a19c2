package admin

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/NZ-247/WebSite-Romantic/internal/content"
)

// Form field names. Row fields repeat once per row in display order.
const (
	FieldSiteTitle       = "site.title"
	FieldSiteSubtitle    = "site.subtitle"
	FieldFooterMessage   = "site.footerMessage"
	FieldPrimaryColor    = "theme.primaryColor"
	FieldSecondaryColor  = "theme.secondaryColor"
	FieldAccentColor     = "theme.accentColor"
	FieldAnimationStyle  = "theme.animationStyle"
	FieldAutoRotate      = "navigation.autoRotate"
	FieldIntervalMs      = "navigation.intervalMs"
	FieldPauseOnHover    = "navigation.pauseOnHover"
	FieldLetterTitle     = "letter.title"
	FieldLetterMessage   = "letter.message"
	FieldLetterSignature = "letter.signature"
	FieldSongTitle       = "song.title"
	FieldSongArtist      = "song.artist"
	FieldSongURL         = "song.url"
	FieldSectionTitle    = "section.title"
	FieldSectionText     = "section.text"
	FieldSectionType     = "section.type"
	FieldPhotoURL        = "photo.url"
	FieldPhotoCaption    = "photo.caption"
)

// SectionTypes lists the section types offered by the editor.
var SectionTypes = []string{content.SectionPlain, content.SectionGallery, content.SectionMarkdown}

// AnimationStyles lists the theme animation styles offered by the editor.
var AnimationStyles = []string{content.AnimationDefault, content.AnimationSlide, content.AnimationParallax}

// Form is the editor view of a document.
type Form struct {
	SiteTitle     string
	SiteSubtitle  string
	FooterMessage string

	PrimaryColor   string
	SecondaryColor string
	AccentColor    string
	AnimationStyle string

	AutoRotate   bool
	IntervalMs   string
	PauseOnHover bool

	LetterTitle     string
	LetterMessage   string
	LetterSignature string

	SongTitle  string
	SongArtist string
	SongURL    string

	Sections []SectionRow
	Photos   []PhotoRow
}

// SectionRow is one editable section, tagged with its position.
type SectionRow struct {
	Index int
	ID    string
	Title string
	Text  string
	Type  string
	First bool
	Last  bool
	// Types is the select's option list; it includes Type even when it is not a
	// standard one.
	Types []string
}

// PhotoRow is one editable photo, tagged with its position.
type PhotoRow struct {
	Index   int
	URL     string
	Caption string
}

// Populate projects doc into the form.
func Populate(doc content.Document) Form {
	interval := doc.Navigation.IntervalMs
	if interval == 0 {
		interval = content.DefaultIntervalMs
	}
	f := Form{
		SiteTitle:       doc.Site.Title,
		SiteSubtitle:    doc.Site.Subtitle,
		FooterMessage:   doc.Site.FooterMessage,
		PrimaryColor:    doc.Theme.PrimaryColor,
		SecondaryColor:  doc.Theme.SecondaryColor,
		AccentColor:     doc.Theme.AccentColor,
		AnimationStyle:  doc.Theme.AnimationStyle,
		AutoRotate:      doc.Navigation.AutoRotate,
		IntervalMs:      strconv.Itoa(interval),
		PauseOnHover:    doc.Navigation.PauseOnHover,
		LetterTitle:     doc.Letter.Title,
		LetterMessage:   doc.Letter.Message,
		LetterSignature: doc.Letter.Signature,
		SongTitle:       doc.Song.Title,
		SongArtist:      doc.Song.Artist,
		SongURL:         doc.Song.URL,
		Sections:        make([]SectionRow, len(doc.Sections)),
		Photos:          make([]PhotoRow, len(doc.Photos)),
	}
	for i, s := range doc.Sections {
		f.Sections[i] = SectionRow{
			Index: i,
			ID:    s.ID,
			Title: s.Title,
			Text:  s.Text,
			Type:  s.Type,
			First: i == 0,
			Last:  i == len(doc.Sections)-1,
			Types: typeOptions(s.Type),
		}
	}
	for i, p := range doc.Photos {
		f.Photos[i] = PhotoRow{Index: i, URL: p.URL, Caption: p.Caption}
	}
	return f
}

func typeOptions(current string) []string {
	for _, t := range SectionTypes {
		if t == current {
			return SectionTypes
		}
	}
	if current == "" {
		return SectionTypes
	}
	return append(append([]string(nil), SectionTypes...), current)
}

// AnimationOptions returns the select options for the current style.
func (f Form) AnimationOptions() []string {
	for _, s := range AnimationStyles {
		if s == f.AnimationStyle {
			return AnimationStyles
		}
	}
	if f.AnimationStyle == "" {
		return AnimationStyles
	}
	return append(append([]string(nil), AnimationStyles...), f.AnimationStyle)
}

// Values encodes the form the way a browser submits it: unchecked boxes are absent and
// row fields repeat in row order.
func (f Form) Values() url.Values {
	v := url.Values{}
	v.Set(FieldSiteTitle, f.SiteTitle)
	v.Set(FieldSiteSubtitle, f.SiteSubtitle)
	v.Set(FieldFooterMessage, f.FooterMessage)
	v.Set(FieldPrimaryColor, f.PrimaryColor)
	v.Set(FieldSecondaryColor, f.SecondaryColor)
	v.Set(FieldAccentColor, f.AccentColor)
	v.Set(FieldAnimationStyle, f.AnimationStyle)
	if f.AutoRotate {
		v.Set(FieldAutoRotate, "on")
	}
	v.Set(FieldIntervalMs, f.IntervalMs)
	if f.PauseOnHover {
		v.Set(FieldPauseOnHover, "on")
	}
	v.Set(FieldLetterTitle, f.LetterTitle)
	v.Set(FieldLetterMessage, f.LetterMessage)
	v.Set(FieldLetterSignature, f.LetterSignature)
	v.Set(FieldSongTitle, f.SongTitle)
	v.Set(FieldSongArtist, f.SongArtist)
	v.Set(FieldSongURL, f.SongURL)
	for _, s := range f.Sections {
		v.Add(FieldSectionTitle, s.Title)
		v.Add(FieldSectionText, s.Text)
		v.Add(FieldSectionType, s.Type)
	}
	for _, p := range f.Photos {
		v.Add(FieldPhotoURL, p.URL)
		v.Add(FieldPhotoCaption, p.Caption)
	}
	return v
}

// Collect builds a new document from base and the submitted values. Strings are
// trimmed except theme tokens; rows are authoritative in submission order and inherit
// id, type and preserved keys from base at the same position.
func Collect(base content.Document, values url.Values) content.Document {
	next := base.Clone()
	trimmed := func(key string) string { return strings.TrimSpace(values.Get(key)) }

	next.Site.Title = trimmed(FieldSiteTitle)
	next.Site.Subtitle = trimmed(FieldSiteSubtitle)
	next.Site.FooterMessage = trimmed(FieldFooterMessage)

	next.Theme.PrimaryColor = values.Get(FieldPrimaryColor)
	next.Theme.SecondaryColor = values.Get(FieldSecondaryColor)
	next.Theme.AccentColor = values.Get(FieldAccentColor)
	next.Theme.AnimationStyle = values.Get(FieldAnimationStyle)

	next.Navigation.AutoRotate = values.Has(FieldAutoRotate)
	next.Navigation.IntervalMs = content.ParseInterval(values.Get(FieldIntervalMs))
	next.Navigation.PauseOnHover = values.Has(FieldPauseOnHover)

	next.Letter.Title = trimmed(FieldLetterTitle)
	next.Letter.Message = trimmed(FieldLetterMessage)
	next.Letter.Signature = trimmed(FieldLetterSignature)

	next.Song.Title = trimmed(FieldSongTitle)
	next.Song.Artist = trimmed(FieldSongArtist)
	next.Song.URL = trimmed(FieldSongURL)

	titles := values[FieldSectionTitle]
	texts := values[FieldSectionText]
	types := values[FieldSectionType]
	sections := make([]content.Section, len(titles))
	for i := range titles {
		var s content.Section
		if i < len(base.Sections) {
			s = base.Sections[i]
			s.Extra = s.Extra.Clone()
		}
		s.Title = strings.TrimSpace(titles[i])
		s.Text = strings.TrimSpace(at(texts, i))
		if t := strings.TrimSpace(at(types, i)); t != "" {
			s.Type = t
		}
		if s.Type == "" {
			s.Type = content.SectionPlain
		}
		sections[i] = s
	}
	next.Sections = sections

	urls := values[FieldPhotoURL]
	captions := values[FieldPhotoCaption]
	photos := make([]content.Photo, len(urls))
	for i := range urls {
		var p content.Photo
		if i < len(base.Photos) {
			p.Extra = base.Photos[i].Extra.Clone()
		}
		p.URL = strings.TrimSpace(urls[i])
		p.Caption = strings.TrimSpace(at(captions, i))
		photos[i] = p
	}
	next.Photos = photos

	return next
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}
