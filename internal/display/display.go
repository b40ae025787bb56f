// Package display shows slides on a second screen during presentation.
//
// The core only depends on the [Display] capability. [Hub] implements it
// over websockets: any browser that opens the display page receives every
// frame. Writes to a closed display are dropped without error.
package display

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/formatter"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/sizer"
)

// Display is a surface that shows one slide's HTML at a time.
type Display interface {
	Open(ctx context.Context) error
	Write(html string) error
	Close() error
	IsOpen() bool
}

// Presenter renders the slide under the cursor to a display, shrinking the
// font when the text would overflow the reference box.
type Presenter struct {
	display Display
	fit     *sizer.Cache
	box     sizer.Box
	opts    formatter.Options
	logger  *log.Logger
}

// NewPresenter creates a Presenter. fit may be nil to keep slide font sizes as set.
func NewPresenter(d Display, fit *sizer.Cache, box sizer.Box, opts formatter.Options, logger *log.Logger) *Presenter {
	return &Presenter{display: d, fit: fit, box: box, opts: opts, logger: logger}
}

// Frame renders slide cursor of deck without sending it.
func (p *Presenter) Frame(deck models.Deck, cursor int) (string, error) {
	slide, err := deck.Slide(cursor)
	if err != nil {
		return "", err
	}
	if p.fit != nil && strings.TrimSpace(slide.Content) != "" {
		slide.FontSize = min(slide.FontSize, p.fit.Fit(p.box, slide.Content))
	}
	return formatter.SlideHTML(slide, cursor+1, p.opts)
}

// Show sends slide cursor to the display. A closed display is a no-op.
func (p *Presenter) Show(deck models.Deck, cursor int) error {
	if !p.display.IsOpen() {
		return nil
	}

	frame, err := p.Frame(deck, cursor)
	if err != nil {
		return err
	}
	if err := p.display.Write(frame); err != nil {
		if p.logger != nil {
			p.logger.Warn("display update failed", "slide", cursor+1, "error", err)
		}
	}
	return nil
}
