package experience

import (
	"fmt"
	"strconv"
)

// Deck tracks how many photos of the stacked deck have been revealed.
type Deck struct {
	total    int
	revealed int
	allSeen  bool
}

// CardLayout is the fan-out placement of a visible card.
type CardLayout struct {
	X        int
	Y        int
	Rotation int
	Z        int
}

// Transform renders the layout as a CSS transform value.
func (l CardLayout) Transform() string {
	return fmt.Sprintf("translate(calc(-50%% + %dpx), calc(-50%% + %dpx)) rotate(%ddeg)", l.X, l.Y, l.Rotation)
}

// NewDeck returns a deck of total photos with nothing revealed.
func NewDeck(total int) *Deck {
	if total < 0 {
		total = 0
	}
	return &Deck{total: total}
}

// Show performs the first reveal. It is a no-op once the deck has started or when it
// has no photos.
func (d *Deck) Show() {
	if d.total > 0 && d.revealed == 0 {
		d.reveal(1)
	}
}

// Next reveals one more photo, wrapping back to the first after the last.
func (d *Deck) Next() {
	if d.total == 0 {
		return
	}
	if d.revealed < d.total {
		d.reveal(d.revealed + 1)
		return
	}
	d.reveal(1)
}

// Prev hides the top photo, never going below one.
func (d *Deck) Prev() {
	if d.revealed > 1 {
		d.revealed--
	}
}

func (d *Deck) reveal(n int) {
	d.revealed = n
	if d.revealed >= d.total {
		d.allSeen = true
	}
}

// Revealed returns the number of visible cards.
func (d *Deck) Revealed() int { return d.revealed }

// Total returns the number of photos.
func (d *Deck) Total() int { return d.total }

// AllSeen reports whether every photo has been shown at least once. It never resets.
func (d *Deck) AllSeen() bool { return d.allSeen }

// CanPrev reports whether Prev would change anything.
func (d *Deck) CanPrev() bool { return d.revealed > 1 }

// CanNext reports whether Next is enabled.
func (d *Deck) CanNext() bool { return d.total > 0 }

// AtEnd reports whether the next step restarts the deck.
func (d *Deck) AtEnd() bool { return d.total > 0 && d.revealed >= d.total }

// Visible reports whether card i is revealed.
func (d *Deck) Visible(i int) bool { return i >= 0 && i < d.revealed }

// Status renders "revealed/total".
func (d *Deck) Status() string {
	shown := d.revealed
	if shown > d.total {
		shown = d.total
	}
	return strconv.Itoa(shown) + "/" + strconv.Itoa(d.total)
}

// Layout returns the stacked placement of card i. Later cards sit on top.
func Layout(i int) CardLayout {
	rotation := 2 + i%4
	if i%2 == 0 {
		rotation = -rotation
	}
	return CardLayout{
		X:        (i%3 - 1) * 16,
		Y:        i * 3,
		Rotation: rotation,
		Z:        i + 2,
	}
}
