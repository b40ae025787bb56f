// Package lyrics turns pasted or scraped lyric text into slide content.
//
// A verse is a block of lines delimited by two or more consecutive newlines.
// A line holding only spaces stays inside its verse. Each verse becomes
// exactly one slide; verses are never split or merged.
package lyrics

import (
	"regexp"
	"strings"

	"github.com/desertthunder/lyricslide/internal/models"
	"golang.org/x/text/unicode/norm"
)

// LineBreak is the marker placed between lines of a verse.
const LineBreak = "<br/>"

var (
	blankLines    = regexp.MustCompile(`\n{2,}`)
	sectionHeader = regexp.MustCompile(`\[[^\]\n]*\]`)
	embedSuffix   = regexp.MustCompile(`\d*Embed\s*$`)
	lineEndings   = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Segment splits text into ordered slide contents. Verses that are empty
// after trimming are dropped; the lines of a verse are joined with
// [LineBreak]. Empty or whitespace-only input yields an empty slice.
func Segment(text string) []string {
	text = lineEndings.Replace(text)
	verses := blankLines.Split(text, -1)

	out := make([]string, 0, len(verses))
	for _, verse := range verses {
		verse = strings.TrimSpace(verse)
		if verse == "" {
			continue
		}

		lines := strings.Split(verse, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimRight(line, " \t")
		}
		out = append(out, strings.Join(lines, LineBreak))
	}
	return out
}

// Clean prepares scraped lyrics for segmentation: section tags such as
// [Chorus] and a trailing "NNEmbed" marker are removed, line endings are
// normalised and the text is converted to NFC.
func Clean(text string) string {
	text = norm.NFC.String(lineEndings.Replace(text))
	text = sectionHeader.ReplaceAllString(text, "")
	text = embedSuffix.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// SplitLines reverses the line-break markers of a slide's content into
// separate lines.
func SplitLines(content string) []string {
	content = strings.NewReplacer("<br/>", "\n", "<br>", "\n", "<br />", "\n").Replace(content)
	return strings.Split(content, "\n")
}

// BuildDeck derives a deck from text. Slides take the base deck's global
// background, font color and font size with a fade transition; the base
// deck's globals and policy carry over unchanged.
func BuildDeck(text string, base models.Deck) models.Deck {
	deck := base
	deck.Slides = nil

	segments := Segment(text)
	if len(segments) == 0 {
		return deck
	}

	deck.Slides = make([]models.Slide, len(segments))
	for i, content := range segments {
		deck.Slides[i] = base.NewSlide(content)
	}
	return deck
}

// Rebuild derives a new deck after the lyrics text changed. With
// preserveEdits false the result equals [BuildDeck] and every per-slide edit
// is discarded. With preserveEdits true, slides whose index still exists keep
// their style, media and notes; only content is taken from the new text.
func Rebuild(previous models.Deck, text string, preserveEdits bool) models.Deck {
	deck := BuildDeck(text, previous)
	if !preserveEdits {
		return deck
	}

	for i := range deck.Slides {
		if i >= len(previous.Slides) {
			break
		}
		kept := previous.Slides[i].Clone()
		kept.Content = deck.Slides[i].Content
		deck.Slides[i] = kept
	}
	return deck
}
