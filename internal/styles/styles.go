// Package styles resolves style edits against a deck and provides the slide
// template catalog.
//
// Only background and font size have a global mode. When the matching
// propagation flag is set the edit updates the deck global and every slide;
// otherwise it touches the slide under the cursor. All other fields always
// target the current slide.
package styles

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
)

const fallbackContrastSource = "#1C1C1C"

var hexColor = regexp.MustCompile(`#[a-fA-F0-9]{6}`)

// Apply returns a copy of deck with edit applied. The input deck is not
// modified. A cursor outside the slide range is ErrInvalidInput unless the
// edit propagates to every slide.
func Apply(deck models.Deck, cursor int, edit models.StyleEdit) (models.Deck, error) {
	if err := edit.Validate(); err != nil {
		return deck, err
	}

	out := deck.Clone()
	switch {
	case edit.Field == models.FieldBackground && deck.ApplyBackgroundToAll:
		out.GlobalBackground = edit.Text
		for i := range out.Slides {
			out.Slides[i].Background = edit.Text
		}
		return out, nil
	case edit.Field == models.FieldFontSize && deck.ApplyFontSizeToAll:
		out.GlobalFontSize = edit.Size
		for i := range out.Slides {
			out.Slides[i].FontSize = edit.Size
		}
		return out, nil
	}

	if cursor < 0 || cursor >= len(out.Slides) {
		return deck, fmt.Errorf("%w: no slide at cursor %d", shared.ErrInvalidInput, cursor)
	}

	s := &out.Slides[cursor]
	switch edit.Field {
	case models.FieldBackground:
		s.Background = edit.Text
	case models.FieldFontSize:
		s.FontSize = edit.Size
	case models.FieldFontColor:
		s.FontColor = edit.Text
	case models.FieldTransition:
		// Validate has accepted it, so only the spelling is normalised.
		s.Transition, _ = models.ParseTransition(string(edit.Transition))
	case models.FieldNotes:
		s.Notes = edit.Text
	case models.FieldContent:
		s.Content = edit.Text
	case models.FieldMedia:
		if edit.Media == nil {
			s.Media = nil
		} else {
			m := *edit.Media
			s.Media = &m
		}
	}
	return out, nil
}

// SetPolicy changes the propagation flags. Existing slides are untouched.
func SetPolicy(deck models.Deck, policy models.Policy) models.Deck {
	deck.Policy = policy
	return deck
}

// ContrastColor picks black or white text for a background. The first
// #rrggbb in background is used, falling back to #1C1C1C when there is none.
func ContrastColor(background string) string {
	color := hexColor.FindString(background)
	if color == "" {
		color = fallbackContrastSource
	}

	r, _ := strconv.ParseUint(color[1:3], 16, 8)
	g, _ := strconv.ParseUint(color[3:5], 16, 8)
	b, _ := strconv.ParseUint(color[5:7], 16, 8)

	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return "#000000"
	}
	return "#FFFFFF"
}

// ApplyTemplate applies a template's background, font color, font size and
// transition as four edits through [Apply], so background and font size
// follow the deck's propagation policy.
func ApplyTemplate(deck models.Deck, cursor int, tmpl models.SlideTemplate) (models.Deck, error) {
	edits := []models.StyleEdit{
		{Field: models.FieldBackground, Text: tmpl.Background},
		{Field: models.FieldFontColor, Text: tmpl.FontColor},
		{Field: models.FieldFontSize, Size: tmpl.FontSize},
		{Field: models.FieldTransition, Transition: tmpl.Transition},
	}

	out := deck
	for _, edit := range edits {
		next, err := Apply(out, cursor, edit)
		if err != nil {
			return deck, fmt.Errorf("apply template %q: %w", tmpl.Name, err)
		}
		out = next
	}
	return out, nil
}
