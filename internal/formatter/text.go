package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/desertthunder/lyricslide/internal/lyrics"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/sizer"
)

// slideLines returns a slide's content as plain text lines.
func slideLines(s models.Slide) []string {
	var lines []string
	for _, line := range lyrics.SplitLines(s.Content) {
		lines = append(lines, strings.Split(sizer.PlainText(line), "\n")...)
	}
	return lines
}

// ExportToText renders a plain lyric sheet: one numbered block per slide,
// followed by presenter notes when present.
func ExportToText(deck models.Deck, title string) ([]byte, error) {
	if err := checkDeck(deck); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if title = strings.TrimSpace(title); title != "" {
		buf.WriteString(fmt.Sprintf("%s\n", title))
	}
	buf.WriteString(fmt.Sprintf("Slides: %d\n\n", deck.Len()))

	for i, s := range deck.Slides {
		buf.WriteString(fmt.Sprintf("[%d]\n", i+1))
		for _, line := range slideLines(s) {
			buf.WriteString(line + "\n")
		}
		if s.Notes != "" {
			buf.WriteString(fmt.Sprintf("Notes: %s\n", s.Notes))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the deck as a Markdown setlist with one section
// per slide. Presenter notes become block quotes.
func ExportToMarkdown(deck models.Deck, title string) ([]byte, error) {
	if err := checkDeck(deck); err != nil {
		return nil, err
	}
	if title = strings.TrimSpace(title); title == "" {
		title = defaultTitle
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Slides**: %d\n\n", deck.Len()))

	for i, s := range deck.Slides {
		buf.WriteString(fmt.Sprintf("## Slide %d\n\n", i+1))
		buf.WriteString(strings.Join(slideLines(s), "  \n"))
		buf.WriteString("\n\n")
		if s.Notes != "" {
			buf.WriteString(fmt.Sprintf("> %s\n\n", s.Notes))
		}
	}

	return buf.Bytes(), nil
}
