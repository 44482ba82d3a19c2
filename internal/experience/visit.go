package experience

import (
	"context"
	"sync"
	"time"

	"github.com/NZ-247/WebSite-Romantic/internal/content"
)

// Options configures a Visit.
type Options struct {
	LetterDelay time.Duration
	// Loader is shared by every track play within the visit.
	Loader *Loader
	Now    func() time.Time
}

// Visit owns one page visit: the document snapshot taken when the page was served and
// the four interaction machines.
type Visit struct {
	mu          sync.Mutex
	doc         content.Document
	now         func() time.Time
	envelope    *Envelope
	deck        *Deck
	photosShown bool
	carousels   map[int]*Carousel
	music       *Music
}

// NewVisit builds the machines for doc. Each gallery section gets its own carousel over
// every photo.
func NewVisit(doc content.Document, opts Options) *Visit {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	v := &Visit{
		doc:       doc,
		now:       now,
		envelope:  NewEnvelope(opts.LetterDelay),
		deck:      NewDeck(len(doc.Photos)),
		carousels: make(map[int]*Carousel),
		music:     NewMusic(Classify(doc.Song.URL), opts.Loader),
	}
	for i, section := range doc.Sections {
		if section.Type == content.SectionGallery {
			v.carousels[i] = NewCarousel(len(doc.Photos))
		}
	}
	return v
}

// Document returns the snapshot. Callers must not mutate it.
func (v *Visit) Document() content.Document { return v.doc }

// CardView is one photo card of the deck.
type CardView struct {
	Index   int
	Photo   content.Photo
	Visible bool
	Layout  CardLayout
}

// DeckView is the render state of the photo deck.
type DeckView struct {
	Shown    bool
	Revealed int
	Total    int
	AllSeen  bool
	CanPrev  bool
	CanNext  bool
	AtEnd    bool
	Status   string
	Cards    []CardView
}

// CarouselView is the render state of one gallery carousel.
type CarouselView struct {
	Section int
	Index   int
	Size    int
	Offset  string
}

// MusicView is the render state of the music widget.
type MusicView struct {
	Enabled bool
	State   MusicState
	Player  Player
}

// Playing reports whether the toggle is pressed.
func (m MusicView) Playing() bool { return m.State == MusicPlaying }

// Loading reports whether a load is pending.
func (m MusicView) Loading() bool { return m.State == MusicLoading }

// Snapshot is a consistent read of every machine.
type Snapshot struct {
	Envelope  EnvelopeState
	LetterIn  time.Duration
	Deck      DeckView
	Carousels map[int]CarouselView
	Music     MusicView
}

// Snapshot advances time-driven transitions and returns the current state.
func (v *Visit) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *Visit) snapshotLocked() Snapshot {
	now := v.now()
	v.envelope.Advance(now)

	deck := DeckView{
		Shown:    v.photosShown,
		Revealed: v.deck.Revealed(),
		Total:    v.deck.Total(),
		AllSeen:  v.deck.AllSeen(),
		CanPrev:  v.deck.CanPrev(),
		CanNext:  v.deck.CanNext(),
		AtEnd:    v.deck.AtEnd(),
		Status:   v.deck.Status(),
		Cards:    make([]CardView, len(v.doc.Photos)),
	}
	for i, photo := range v.doc.Photos {
		deck.Cards[i] = CardView{Index: i, Photo: photo, Visible: v.deck.Visible(i), Layout: Layout(i)}
	}

	carousels := make(map[int]CarouselView, len(v.carousels))
	for section, c := range v.carousels {
		carousels[section] = CarouselView{Section: section, Index: c.Index(), Size: c.Size(), Offset: c.Offset()}
	}

	return Snapshot{
		Envelope:  v.envelope.State(),
		LetterIn:  v.envelope.Remaining(now),
		Deck:      deck,
		Carousels: carousels,
		Music: MusicView{
			Enabled: v.music.Enabled(),
			State:   v.music.State(),
			Player:  v.music.Player(),
		},
	}
}

// OpenEnvelope starts the opening animation; repeated calls are ignored.
func (v *Visit) OpenEnvelope() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.envelope.Open(v.now())
	return v.snapshotLocked()
}

// ShowPhotos forces the letter open and performs the first reveal.
func (v *Visit) ShowPhotos() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.envelope.ForceOpen(v.now())
	v.photosShown = true
	v.deck.Show()
	return v.snapshotLocked()
}

// NextPhoto steps the deck forward, wrapping after the last photo.
func (v *Visit) NextPhoto() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deck.Next()
	return v.snapshotLocked()
}

// PrevPhoto steps the deck back, never below the first photo.
func (v *Visit) PrevPhoto() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deck.Prev()
	return v.snapshotLocked()
}

// StepCarousel moves the carousel of section forward or back. It reports false when the
// section has no carousel.
func (v *Visit) StepCarousel(section int, forward bool) (Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.carousels[section]
	if !ok {
		return Snapshot{}, false
	}
	if forward {
		c.Next()
	} else {
		c.Prev()
	}
	return v.snapshotLocked(), true
}

// ToggleMusic plays or pauses the song. The visit lock is not held while the embed
// loads, so other machines stay responsive.
func (v *Visit) ToggleMusic(ctx context.Context) (Snapshot, error) {
	_, err := v.music.Toggle(ctx)
	return v.Snapshot(), err
}

// MusicDenied records a browser playback refusal.
func (v *Visit) MusicDenied() Snapshot {
	v.music.Denied()
	return v.Snapshot()
}
