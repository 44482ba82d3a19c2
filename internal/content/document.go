package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Section types understood by the renderer. Unknown types render as plain text.
const (
	SectionPlain    = "plain"
	SectionGallery  = "gallery"
	SectionMarkdown = "markdown"
)

// Animation styles accepted by the theme.
const (
	AnimationDefault  = "default"
	AnimationSlide    = "slide"
	AnimationParallax = "parallax"
)

// ErrMalformed is returned when a payload is not a JSON object.
var ErrMalformed = errors.New("content: malformed document")

// Document is the full editable data model driving the public and admin views.
type Document struct {
	Site       Site       `json:"site"`
	Theme      Theme      `json:"theme"`
	Navigation Navigation `json:"navigation"`
	Sections   []Section  `json:"sections"`
	Letter     Letter     `json:"letter"`
	Song       Song       `json:"song"`
	Photos     []Photo    `json:"photos"`

	Extra Extra `json:"-"`
}

// Site holds the display strings of the page chrome.
type Site struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	FooterMessage string `json:"footerMessage"`

	Extra Extra `json:"-"`
}

// Theme holds styling tokens.
type Theme struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	AccentColor    string `json:"accentColor"`
	AnimationStyle string `json:"animationStyle"`

	Extra Extra `json:"-"`
}

// Navigation controls the gallery auto-rotation.
type Navigation struct {
	AutoRotate   bool `json:"autoRotate"`
	IntervalMs   int  `json:"intervalMs"`
	PauseOnHover bool `json:"pauseOnHover"`

	Extra Extra `json:"-"`
}

// Section is one ordered block of the page. ID doubles as the in-page anchor.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Type  string `json:"type"`

	Extra Extra `json:"-"`
}

// Letter is the message revealed from the envelope.
type Letter struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Signature string `json:"signature"`

	Extra Extra `json:"-"`
}

// Song describes the optional soundtrack. URL may be empty, a direct audio file or a
// third-party track reference.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url"`

	Extra Extra `json:"-"`
}

// Photo is one entry of the photo deck and gallery. URL may be remote, relative or an
// embedded data URI.
type Photo struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`

	Extra Extra `json:"-"`
}

type documentAlias Document

// MarshalJSON writes the modelled fields followed by any preserved extra keys.
func (d Document) MarshalJSON() ([]byte, error) {
	return marshalObject(documentAlias(d.withSlices()), d.Extra, documentKeys)
}

// UnmarshalJSON decodes through Normalize so any JSON object yields a complete
// document.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Decode(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Decode parses a JSON object and normalizes it.
func Decode(data []byte) (Document, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		return Document{}, ErrMalformed
	}
	return Normalize(raw), nil
}

// Encode serialises the document, indented with two spaces when pretty is set.
func Encode(doc Document, pretty bool) ([]byte, error) {
	if !pretty {
		return json.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Clone returns a deep copy of the document, preserved keys included.
func (d Document) Clone() Document {
	out := d
	if d.Sections != nil {
		out.Sections = make([]Section, len(d.Sections))
		for i, sec := range d.Sections {
			sec.Extra = sec.Extra.Clone()
			out.Sections[i] = sec
		}
	}
	if d.Photos != nil {
		out.Photos = make([]Photo, len(d.Photos))
		for i, p := range d.Photos {
			p.Extra = p.Extra.Clone()
			out.Photos[i] = p
		}
	}
	out.Site.Extra = d.Site.Extra.Clone()
	out.Theme.Extra = d.Theme.Extra.Clone()
	out.Navigation.Extra = d.Navigation.Extra.Clone()
	out.Letter.Extra = d.Letter.Extra.Clone()
	out.Song.Extra = d.Song.Extra.Clone()
	out.Extra = d.Extra.Clone()
	return out
}

// withSlices replaces nil sequences with empty ones so they encode as [] rather than
// null.
func (d Document) withSlices() Document {
	if d.Sections == nil {
		d.Sections = []Section{}
	}
	if d.Photos == nil {
		d.Photos = []Photo{}
	}
	return d
}

// LetterSection returns the index of the first section whose id carries the letter
// marker, or -1.
func (d Document) LetterSection() int {
	for i, s := range d.Sections {
		if hasLetterMarker(s.ID) {
			return i
		}
	}
	return -1
}
