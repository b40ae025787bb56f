package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
)

// LyricsSource looks up a song by free-text query.
type LyricsSource interface {
	Lookup(ctx context.Context, query string) (*models.Song, error)
}

// DeckJob is one deck queued for export.
type DeckJob struct {
	Key   string // Query or presentation id that produced the deck
	Title string
	Deck  models.Deck

	song *models.Song
}

// DeckResult is the outcome of exporting or fetching a single deck.
type DeckResult struct {
	Key     string       `json:"key"`
	Title   string       `json:"title"`
	Song    *models.Song `json:"song,omitempty"`
	Slides  int          `json:"slides"`
	Files   []string     `json:"files,omitempty"`
	Success bool         `json:"success"`
	Error   error        `json:"-"`
	Message string       `json:"error,omitempty"`
}

// BatchResult summarises a batch run. Results are in completion order.
type BatchResult struct {
	Total           int          `json:"total"`
	Successful      int          `json:"successful"`
	Failed          int          `json:"failed"`
	OutputDirectory string       `json:"outputDirectory"`
	ManifestPath    string       `json:"-"`
	Results         []DeckResult `json:"results"`
}

// BatchEngine builds decks from looked-up songs and exports them.
type BatchEngine struct {
	source LyricsSource
	base   models.Deck
	logger *log.Logger
}

// NewBatchEngine creates an engine. New decks inherit base's globals and
// policy. source may be nil when only [BatchEngine.ExportDecks] is used.
func NewBatchEngine(source LyricsSource, base models.Deck, logger *log.Logger) *BatchEngine {
	return &BatchEngine{source: source, base: base, logger: logger}
}

// sendProgress never blocks; updates are dropped when the channel is full.
func (e *BatchEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *BatchEngine) debug(msg string, kv ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, kv...)
	}
}

// SongTitle is the deck title used for a fetched song.
func SongTitle(song *models.Song) string {
	switch {
	case song == nil:
		return ""
	case song.Artist == "" || strings.EqualFold(song.Artist, "unknown"):
		return song.Title
	default:
		return fmt.Sprintf("%s - %s", song.Title, song.Artist)
	}
}

func requireSource(source LyricsSource) error {
	if source == nil {
		return fmt.Errorf("%w: lyrics source not configured", shared.ErrServiceUnavailable)
	}
	return nil
}
