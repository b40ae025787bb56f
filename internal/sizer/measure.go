package sizer

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Measurer reports the rendered extent of text at a font size when wrapped
// to maxWidth pixels. Hard line breaks are "\n".
type Measurer interface {
	Measure(text string, size, maxWidth int) (width, height int)
}

var (
	breakTag = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag   = regexp.MustCompile(`<[^>]*>`)
)

// PlainText converts slide content to measurable text: <br/> markers become
// newlines, other tags are dropped and entities are unescaped.
func PlainText(content string) string {
	text := breakTag.ReplaceAllString(content, "\n")
	text = anyTag.ReplaceAllString(text, "")
	return html.UnescapeString(text)
}

// FontMeasurer measures text with an OpenType face. Faces are built lazily
// per size and kept for the life of the measurer.
type FontMeasurer struct {
	font *opentype.Font
	dpi  float64

	mu    sync.Mutex
	faces map[int]font.Face
}

// NewFontMeasurer parses an OpenType/TrueType font. Pass nil to use Go Regular.
func NewFontMeasurer(ttf []byte) (*FontMeasurer, error) {
	if ttf == nil {
		ttf = goregular.TTF
	}
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &FontMeasurer{font: f, dpi: 72, faces: make(map[int]font.Face)}, nil
}

func (m *FontMeasurer) face(size int) (font.Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(m.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     m.dpi,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	m.faces[size] = f
	return f, nil
}

// Measure word-wraps each hard line at maxWidth and returns the widest line
// and the total height. A single word wider than maxWidth stays on its own
// line and is reported at its full width.
func (m *FontMeasurer) Measure(text string, size, maxWidth int) (int, int) {
	face, err := m.face(size)
	if err != nil {
		return maxWidth + 1, 1 << 30
	}

	// font.Face is not safe for concurrent use.
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := fixed.I(maxWidth)
	space := font.MeasureString(face, " ")
	lineHeight := face.Metrics().Height

	var widest fixed.Int26_6
	lines := 0
	for _, hard := range strings.Split(text, "\n") {
		words := strings.Fields(hard)
		if len(words) == 0 {
			lines++
			continue
		}

		var current fixed.Int26_6
		for i, word := range words {
			w := font.MeasureString(face, word)
			switch {
			case i == 0:
				current = w
				lines++
			case current+space+w <= limit:
				current += space + w
			default:
				widest = max(widest, current)
				current = w
				lines++
			}
		}
		widest = max(widest, current)
	}

	return widest.Ceil(), (lineHeight * fixed.Int26_6(lines)).Ceil()
}

// Close releases every cached face.
func (m *FontMeasurer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for size, f := range m.faces {
		err = multierr.Append(err, f.Close())
		delete(m.faces, size)
	}
	return err
}
