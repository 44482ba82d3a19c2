package content

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Extra holds the keys of a JSON object that the model does not know about, kept as
// raw JSON so a load/save cycle writes them back untouched.
type Extra map[string]json.RawMessage

type keySet map[string]struct{}

func keys(names ...string) keySet {
	set := make(keySet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

var (
	documentKeys   = keys("site", "theme", "navigation", "sections", "letter", "song", "photos")
	siteKeys       = keys("title", "subtitle", "footerMessage")
	themeKeys      = keys("primaryColor", "secondaryColor", "accentColor", "animationStyle")
	navigationKeys = keys("autoRotate", "intervalMs", "pauseOnHover")
	sectionKeys    = keys("id", "title", "text", "type")
	letterKeys     = keys("title", "message", "signature")
	songKeys       = keys("title", "artist", "url")
	photoKeys      = keys("url", "caption")
)

// extraOf returns the entries of obj outside known, or nil when there are none.
func extraOf(obj map[string]any, known keySet) Extra {
	var extra Extra
	for k, v := range obj {
		if _, ok := known[k]; ok {
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			continue
		}
		if extra == nil {
			extra = Extra{}
		}
		extra[k] = encoded
	}
	return extra
}

// Clone deep-copies the raw values.
func (e Extra) Clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// marshalObject encodes v, an alias of a model struct, and appends the extra keys in
// sorted order. Keys the model already writes are never duplicated.
func marshalObject(v any, extra Extra, known keySet) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(extra))
	for k := range extra {
		if _, ok := known[k]; ok {
			continue
		}
		names = append(names, k)
	}
	if len(names) == 0 {
		return base, nil
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	for i, k := range names {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		if i > 0 || len(base) > 2 {
			buf.WriteByte(',')
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type (
	siteAlias       Site
	themeAlias      Theme
	navigationAlias Navigation
	sectionAlias    Section
	letterAlias     Letter
	songAlias       Song
	photoAlias      Photo
)

func (s Site) MarshalJSON() ([]byte, error) {
	return marshalObject(siteAlias(s), s.Extra, siteKeys)
}

func (t Theme) MarshalJSON() ([]byte, error) {
	return marshalObject(themeAlias(t), t.Extra, themeKeys)
}

func (n Navigation) MarshalJSON() ([]byte, error) {
	return marshalObject(navigationAlias(n), n.Extra, navigationKeys)
}

func (s Section) MarshalJSON() ([]byte, error) {
	return marshalObject(sectionAlias(s), s.Extra, sectionKeys)
}

func (l Letter) MarshalJSON() ([]byte, error) {
	return marshalObject(letterAlias(l), l.Extra, letterKeys)
}

func (s Song) MarshalJSON() ([]byte, error) {
	return marshalObject(songAlias(s), s.Extra, songKeys)
}

func (p Photo) MarshalJSON() ([]byte, error) {
	return marshalObject(photoAlias(p), p.Extra, photoKeys)
}
