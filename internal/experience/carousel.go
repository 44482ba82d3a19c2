package experience

import "strconv"

// Carousel is the index of a static gallery track.
type Carousel struct {
	size  int
	index int
}

// NewCarousel returns a carousel over size slides positioned at the first one.
func NewCarousel(size int) *Carousel {
	if size < 0 {
		size = 0
	}
	return &Carousel{size: size}
}

// Next advances with wraparound.
func (c *Carousel) Next() {
	if c.size == 0 {
		return
	}
	c.index = (c.index + 1) % c.size
}

// Prev moves back with wraparound.
func (c *Carousel) Prev() {
	if c.size == 0 {
		return
	}
	c.index = (c.index - 1 + c.size) % c.size
}

// Index returns the current slide.
func (c *Carousel) Index() int { return c.index }

// Size returns the number of slides.
func (c *Carousel) Size() int { return c.size }

// Offset is the track translation for the current slide.
func (c *Carousel) Offset() string {
	if c.index == 0 {
		return "0%"
	}
	return "-" + strconv.Itoa(c.index*100) + "%"
}
