package models

import (
	"fmt"

	"github.com/desertthunder/lyricslide/internal/shared"
)

// Deck is an ordered list of slides plus the globals new slides inherit.
// A deck with no slides is a valid transient state but cannot be exported
// or presented.
type Deck struct {
	Slides           []Slide `json:"slides"`
	GlobalBackground string  `json:"globalBackground"`
	GlobalFontColor  string  `json:"globalFontColor"`
	GlobalFontSize   int     `json:"globalFontSize"`
	Policy
}

// NewDeck returns an empty deck with the default globals and policy.
func NewDeck() Deck {
	return Deck{
		GlobalBackground: DefaultBackground,
		GlobalFontColor:  DefaultFontColor,
		GlobalFontSize:   DefaultFontSize,
		Policy:           DefaultPolicy(),
	}
}

func (d Deck) Len() int { return len(d.Slides) }

func (d Deck) IsEmpty() bool { return len(d.Slides) == 0 }

// Clone deep-copies the slide list so the copy can be edited independently.
func (d Deck) Clone() Deck {
	d.Slides = cloneSlides(d.Slides)
	return d
}

// Slide returns the slide at i or ErrInvalidInput when i is out of range.
func (d Deck) Slide(i int) (Slide, error) {
	if err := d.checkIndex(i); err != nil {
		return Slide{}, err
	}
	return d.Slides[i], nil
}

// Presentable reports ErrEmptyDeck when there is nothing to show.
func (d Deck) Presentable() error {
	if d.IsEmpty() {
		return shared.ErrEmptyDeck
	}
	return nil
}

// NewSlide builds a placeholder slide in the deck's global style.
func (d Deck) NewSlide(content string) Slide {
	return Slide{
		Content:    content,
		Background: d.GlobalBackground,
		FontColor:  d.GlobalFontColor,
		FontSize:   d.GlobalFontSize,
		Transition: TransitionFade,
	}
}

// AddSlide appends a "New Slide" placeholder and returns its index.
func (d *Deck) AddSlide() int {
	d.Slides = append(d.Slides, d.NewSlide(NewSlideContent))
	return len(d.Slides) - 1
}

// DuplicateSlide inserts a copy of slide i directly after it and returns the
// copy's index.
func (d *Deck) DuplicateSlide(i int) (int, error) {
	if err := d.checkIndex(i); err != nil {
		return 0, err
	}
	dup := d.Slides[i].Clone()
	d.Slides = append(d.Slides, Slide{})
	copy(d.Slides[i+2:], d.Slides[i+1:])
	d.Slides[i+1] = dup
	return i + 1, nil
}

// DeleteSlide removes slide i and returns the cursor clamped to the new
// length. The last remaining slide cannot be deleted.
func (d *Deck) DeleteSlide(i, cursor int) (int, error) {
	if err := d.checkIndex(i); err != nil {
		return cursor, err
	}
	if len(d.Slides) <= 1 {
		return cursor, fmt.Errorf("%w: cannot delete the last slide", shared.ErrInvalidInput)
	}
	d.Slides = append(d.Slides[:i], d.Slides[i+1:]...)
	return min(cursor, len(d.Slides)-1), nil
}

// MoveSlide moves the slide at from so it ends up at index to.
func (d *Deck) MoveSlide(from, to int) error {
	if err := d.checkIndex(from); err != nil {
		return err
	}
	if err := d.checkIndex(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	moved := d.Slides[from]
	d.Slides = append(d.Slides[:from], d.Slides[from+1:]...)
	d.Slides = append(d.Slides[:to], append([]Slide{moved}, d.Slides[to:]...)...)
	return nil
}

// Next returns the index after cursor, wrapping to the first slide.
func (d Deck) Next(cursor int) int {
	if d.IsEmpty() {
		return 0
	}
	return (cursor + 1) % len(d.Slides)
}

// Prev returns the index before cursor, wrapping to the last slide.
func (d Deck) Prev(cursor int) int {
	if d.IsEmpty() {
		return 0
	}
	n := len(d.Slides)
	return (cursor - 1 + n) % n
}

func (d Deck) checkIndex(i int) error {
	if i < 0 || i >= len(d.Slides) {
		return fmt.Errorf("%w: slide index %d out of range [0,%d)", shared.ErrInvalidInput, i, len(d.Slides))
	}
	return nil
}
