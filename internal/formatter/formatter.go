// Package formatter exports decks to files: a standalone HTML document, a
// native PPTX package, and plain-text / Markdown lyric sheets.
//
// The HTML export is the format the importer reads back. Every slide is a
// full-viewport frame marked with page-break-after so printing yields one
// slide per page.
package formatter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/gosimple/slug"
	"go.uber.org/multierr"
)

// DefaultWatermark is drawn in the bottom corner of every exported slide.
const DefaultWatermark = "IPC Gilgal"

const defaultTitle = "LyricSlide Presentation"

// Options tune every export format.
type Options struct {
	Watermark string
	// FixZip rewrites the PPTX without data descriptors for strict readers.
	FixZip bool
	// Fetch loads media referenced by URL rather than data URI. Nil skips
	// remote media in package exports.
	Fetch MediaFetcher
}

func (o Options) watermark() string {
	if w := strings.TrimSpace(o.Watermark); w != "" {
		return w
	}
	return DefaultWatermark
}

func checkDeck(deck models.Deck) error {
	if deck.IsEmpty() {
		return fmt.Errorf("%w: %w", shared.ErrExportFailed, shared.ErrEmptyDeck)
	}
	return nil
}

// Filename builds a filesystem-safe name for title with ext.
func Filename(title, ext string) string {
	base := slug.Make(title)
	if base == "" {
		base = slug.Make(defaultTitle)
	}
	return base + ext
}

// ExportResult lists files created by a Write*Export call.
type ExportResult struct {
	Path   string
	Bytes  int
	Slides int
}

func writeExport(dir, title, ext string, slides int, data []byte) (*ExportResult, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory: %v", shared.ErrExportFailed, err)
	}

	path := filepath.Join(dir, Filename(title, ext))
	if err := writeFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExportFailed, err)
	}
	return &ExportResult{Path: path, Bytes: len(data), Slides: slides}, nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	_, err = tmp.Write(data)
	err = multierr.Append(err, tmp.Close())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteHTMLExport writes <slug(title)>.html into dir.
func WriteHTMLExport(deck models.Deck, title, dir string, opts Options) (*ExportResult, error) {
	data, err := ExportHTML(deck, title, opts)
	if err != nil {
		return nil, err
	}
	return writeExport(dir, title, ".html", deck.Len(), data)
}

// WriteTextExport writes <slug(title)>.txt into dir.
func WriteTextExport(deck models.Deck, title, dir string) (*ExportResult, error) {
	data, err := ExportToText(deck, title)
	if err != nil {
		return nil, err
	}
	return writeExport(dir, title, ".txt", deck.Len(), data)
}

// WriteMarkdownExport writes <slug(title)>.md into dir.
func WriteMarkdownExport(deck models.Deck, title, dir string) (*ExportResult, error) {
	data, err := ExportToMarkdown(deck, title)
	if err != nil {
		return nil, err
	}
	return writeExport(dir, title, ".md", deck.Len(), data)
}

// WriteJSONExport writes the deck as indented JSON to <slug(title)>.json.
func WriteJSONExport(deck models.Deck, title, dir string) (*ExportResult, error) {
	if err := checkDeck(deck); err != nil {
		return nil, err
	}
	data, err := shared.MarshalJSON(deck, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExportFailed, err)
	}
	return writeExport(dir, title, ".json", deck.Len(), data)
}

// WritePPTXExport writes <slug(title)>.pptx into dir.
func WritePPTXExport(ctx context.Context, deck models.Deck, title, dir string, opts Options, logger *log.Logger) (*ExportResult, error) {
	data, err := ExportPPTX(ctx, deck, title, opts, logger)
	if err != nil {
		return nil, err
	}
	return writeExport(dir, title, ".pptx", deck.Len(), data)
}

// Formats lists the names accepted by [WriteExport].
var Formats = []string{"html", "pptx", "md", "txt", "json"}

// WriteExport dispatches to the writer for format. "markdown" is accepted
// as an alias for "md" and "text" for "txt".
func WriteExport(ctx context.Context, format string, deck models.Deck, title, dir string, opts Options, logger *log.Logger) (*ExportResult, error) {
	switch strings.ToLower(format) {
	case "html", "htm":
		return WriteHTMLExport(deck, title, dir, opts)
	case "pptx", "ppt":
		return WritePPTXExport(ctx, deck, title, dir, opts, logger)
	case "md", "markdown":
		return WriteMarkdownExport(deck, title, dir)
	case "txt", "text":
		return WriteTextExport(deck, title, dir)
	case "json":
		return WriteJSONExport(deck, title, dir)
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnsupportedFormat, format)
	}
}
