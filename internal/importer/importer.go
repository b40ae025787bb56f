// Package importer reads presentational HTML exports and zipped slide-deck
// packages back into decks.
//
// Extensions are checked before any parsing. HTML documents with no page
// break containers fail with ErrNoSlidesFound; packages with no text yield a
// single fallback slide naming the source file. Every other failure is an
// [*ImportError] wrapping ErrImportFailed.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
)

var (
	htmlExt    = mapset.NewSet(".html", ".htm")
	packageExt = mapset.NewSet(".pptx", ".ppt")
)

// SupportedExt lists every extension Import accepts, lower case.
var SupportedExt = htmlExt.Union(packageExt)

// Result is an imported deck plus the best title guess.
type Result struct {
	Deck  models.Deck
	Title string
}

// ImportError reports why a file could not be parsed.
type ImportError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ImportError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("import failed: %s", e.Reason)
	}
	return fmt.Sprintf("import failed for %s: %s", e.Filename, e.Reason)
}

func (e *ImportError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrImportFailed}
	}
	return []error{shared.ErrImportFailed, e.Err}
}

func importFailed(filename, reason string, err error) *ImportError {
	if err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err)
	}
	return &ImportError{Filename: filename, Reason: reason, Err: err}
}

// Importer parses supported files into decks.
type Importer struct {
	ignored mapset.Set[string]
	logger  *log.Logger
}

// New returns an importer that drops package text runs equal to any of
// ignoredTexts, typically the exporter's watermark.
func New(logger *log.Logger, ignoredTexts ...string) *Importer {
	ignored := mapset.NewSet[string]()
	for _, text := range ignoredTexts {
		if text = strings.TrimSpace(text); text != "" {
			ignored.Add(text)
		}
	}
	return &Importer{ignored: ignored, logger: logger}
}

// Import parses data according to filename's extension. titleOverride, when
// non-empty, replaces any title found in the file.
func (im *Importer) Import(ctx context.Context, filename string, data []byte, titleOverride string) (Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !SupportedExt.Contains(ext) {
		return Result{}, fmt.Errorf("%w: %q", shared.ErrUnsupportedFormat, ext)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, importFailed(filename, "cancelled", err)
	}

	var (
		slides []models.Slide
		title  string
		err    error
	)
	if htmlExt.Contains(ext) {
		slides, title, err = parseHTML(data)
	} else {
		slides, title, err = im.parsePackage(ctx, filename, data)
	}
	if err != nil {
		var ie *ImportError
		switch {
		case errors.Is(err, shared.ErrNoSlidesFound):
			return Result{}, err
		case errors.As(err, &ie):
			ie.Filename = filename
			return Result{}, ie
		default:
			return Result{}, importFailed(filename, "parse error", err)
		}
	}

	deck := models.NewDeck()
	deck.Slides = slides

	if t := strings.TrimSpace(titleOverride); t != "" {
		title = t
	}
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	if im.logger != nil {
		im.logger.Debug("imported deck", "file", filename, "slides", len(slides), "title", title)
	}
	return Result{Deck: deck, Title: title}, nil
}

// Guard admits one import at a time.
type Guard struct {
	mu   sync.Mutex
	busy bool
}

// Acquire claims the guard or fails with ErrImportInProgress. The returned
// release func must be called exactly once.
func (g *Guard) Acquire() (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return nil, shared.ErrImportInProgress
	}
	g.busy = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.busy = false
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether an import currently holds the guard.
func (g *Guard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
