package experience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NZ-247/WebSite-Romantic/internal/content"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func visitDocument() content.Document {
	return content.Document{
		Sections: []content.Section{
			{ID: "inicio", Type: content.SectionPlain},
			{ID: "galeria", Type: content.SectionGallery},
		},
		Song: content.Song{URL: "https://cdn.example.com/nossa.mp3"},
		Photos: []content.Photo{
			{URL: "/a.jpg"}, {URL: "/b.jpg"}, {URL: "/c.jpg"},
		},
	}
}

func TestVisitEnvelopeAdvancesOnSnapshot(t *testing.T) {
	t.Parallel()

	c := &clock{now: time.Date(2025, 6, 12, 20, 0, 0, 0, time.UTC)}
	v := NewVisit(visitDocument(), Options{Now: c.Now})

	snap := v.OpenEnvelope()
	require.Equal(t, EnvelopeOpening, snap.Envelope)
	require.Equal(t, DefaultLetterDelay, snap.LetterIn)

	c.now = c.now.Add(DefaultLetterDelay)
	require.Equal(t, EnvelopeLetterVisible, v.Snapshot().Envelope)
}

func TestVisitShowPhotosForcesLetter(t *testing.T) {
	t.Parallel()

	v := NewVisit(visitDocument(), Options{})
	snap := v.ShowPhotos()
	require.Equal(t, EnvelopeLetterVisible, snap.Envelope)
	require.True(t, snap.Deck.Shown)
	require.Equal(t, 1, snap.Deck.Revealed)
	require.Len(t, snap.Deck.Cards, 3)
	require.True(t, snap.Deck.Cards[0].Visible)
	require.False(t, snap.Deck.Cards[1].Visible)

	v.NextPhoto()
	snap = v.NextPhoto()
	require.True(t, snap.Deck.AllSeen)
	require.True(t, snap.Deck.AtEnd)

	snap = v.NextPhoto()
	require.Equal(t, 1, snap.Deck.Revealed)
	require.True(t, snap.Deck.AllSeen)

	snap = v.PrevPhoto()
	require.Equal(t, 1, snap.Deck.Revealed)
}

func TestVisitCarousels(t *testing.T) {
	t.Parallel()

	v := NewVisit(visitDocument(), Options{})
	_, ok := v.StepCarousel(0, true)
	require.False(t, ok, "plain sections have no carousel")

	snap, ok := v.StepCarousel(1, false)
	require.True(t, ok)
	require.Equal(t, CarouselView{Section: 1, Index: 2, Size: 3, Offset: "-200%"}, snap.Carousels[1])
}

func TestVisitMusic(t *testing.T) {
	t.Parallel()

	v := NewVisit(visitDocument(), Options{})
	require.True(t, v.Snapshot().Music.Enabled)

	snap, err := v.ToggleMusic(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Music.Playing())

	snap = v.MusicDenied()
	require.False(t, snap.Music.Playing())
}
