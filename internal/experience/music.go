package experience

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/NZ-247/WebSite-Romantic/internal/spotify"
)

// SourceKind classifies a song URL.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceDirect
	SourceTrack
)

func (k SourceKind) String() string {
	switch k {
	case SourceDirect:
		return "audio"
	case SourceTrack:
		return "embed"
	default:
		return "none"
	}
}

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".ogg": {}, ".oga": {}, ".wav": {}, ".m4a": {},
	".aac": {}, ".flac": {}, ".opus": {}, ".webm": {},
}

// Reference is a classified song URL.
type Reference struct {
	Kind    SourceKind
	URL     string
	TrackID string
}

// Classify decides whether raw is a playable audio file, a third-party track or
// neither.
func Classify(raw string) Reference {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reference{}
	}
	if id, ok := spotify.ParseTrackID(raw); ok {
		return Reference{Kind: SourceTrack, URL: raw, TrackID: id}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Reference{}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return Reference{}
		}
	case "":
		if !strings.HasPrefix(u.Path, "/") {
			return Reference{}
		}
	default:
		return Reference{}
	}
	if _, ok := audioExtensions[strings.ToLower(path.Ext(u.Path))]; ok {
		return Reference{Kind: SourceDirect, URL: raw}
	}
	return Reference{}
}

// MusicState mirrors the toggle button.
type MusicState int

const (
	MusicIdle MusicState = iota
	MusicLoading
	MusicPlaying
)

func (s MusicState) String() string {
	switch s {
	case MusicLoading:
		return "loading"
	case MusicPlaying:
		return "playing"
	default:
		return "idle"
	}
}

// Player tells the page what to mount. Src is empty unless the song is playing. Tracks
// also carry the controller script and the URI the page commands play on.
type Player struct {
	Kind   SourceKind
	Src    string
	Script string
	URI    string
}

// Music is the play/pause machine for the song widget.
type Music struct {
	mu      sync.Mutex
	ref     Reference
	state   MusicState
	loader  *Loader
	mounted string
	script  string
}

// NewMusic returns an idle machine for ref. loader is only consulted for tracks.
func NewMusic(ref Reference, loader *Loader) *Music {
	return &Music{ref: ref, loader: loader}
}

// Enabled reports whether the widget is shown at all.
func (m *Music) Enabled() bool { return m.ref.Kind != SourceNone }

// Reference returns the classified song URL.
func (m *Music) Reference() Reference { return m.ref }

// State returns the current state.
func (m *Music) State() MusicState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Toggle pauses when playing and plays otherwise. Playing a track acquires the embed and
// mounts a player on first use; any failure settles back to Idle and is returned for
// logging only. A toggle while a load is pending is ignored.
func (m *Music) Toggle(ctx context.Context) (MusicState, error) {
	m.mu.Lock()
	switch {
	case m.ref.Kind == SourceNone:
		m.mu.Unlock()
		return MusicIdle, nil
	case m.state == MusicPlaying:
		m.state = MusicIdle
		m.mu.Unlock()
		return MusicIdle, nil
	case m.state == MusicLoading:
		m.mu.Unlock()
		return MusicLoading, nil
	case m.ref.Kind == SourceDirect:
		m.mounted = m.ref.URL
		m.state = MusicPlaying
		m.mu.Unlock()
		return MusicPlaying, nil
	case m.mounted != "":
		m.state = MusicPlaying
		m.mu.Unlock()
		return MusicPlaying, nil
	}
	m.state = MusicLoading
	m.mu.Unlock()

	src, script, err := m.mount(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = MusicIdle
		return m.state, err
	}
	m.mounted = src
	m.script = script
	m.state = MusicPlaying
	return m.state, nil
}

func (m *Music) mount(ctx context.Context) (string, string, error) {
	if m.loader == nil {
		return "", "", ErrNoCapability
	}
	capability, err := m.loader.Acquire(ctx)
	if err != nil {
		return "", "", err
	}
	src, err := capability.Mount(ctx, m.ref.TrackID)
	if err != nil {
		return "", "", err
	}
	return src, capability.Script(), nil
}

// Denied records that the browser could not start playback: the audio element was
// refused, or the embed controller failed to load or play. The toggle returns to Idle.
func (m *Music) Denied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ref.Kind != SourceNone && m.state == MusicPlaying {
		m.state = MusicIdle
	}
}

// Player returns the backend to mount for the current state.
func (m *Music) Player() Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != MusicPlaying {
		return Player{Kind: m.ref.Kind}
	}
	p := Player{Kind: m.ref.Kind, Src: m.mounted}
	if m.ref.Kind == SourceTrack {
		p.Script = m.script
		p.URI = spotify.TrackURI(m.ref.TrackID)
	}
	return p
}
