package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/importer"
	"github.com/desertthunder/lyricslide/internal/lyrics"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/desertthunder/lyricslide/internal/styles"
)

// ErrImportSuperseded is returned by [Session.Import] when a newer import or
// load started while the file was being parsed. The deck is left as the
// newer operation set it.
var ErrImportSuperseded = errors.New("import superseded by a newer import or load")

// LyricsSource looks up a song's lyrics by free-text query.
type LyricsSource interface {
	Lookup(ctx context.Context, query string) (*models.Song, error)
}

// PresentationStore persists named deck snapshots.
type PresentationStore interface {
	Save(ctx context.Context, name string, deck models.Deck) (*models.SavedPresentation, error)
	Resolve(ctx context.Context, ref string) (*models.SavedPresentation, error)
}

// Options configure a new Session.
type Options struct {
	Base          models.Deck
	PreserveEdits bool
	Importer      *importer.Importer
	Logger        *log.Logger
}

// State is the serializable part of a session.
type State struct {
	Text          string      `json:"text"`
	Title         string      `json:"title,omitempty"`
	Cursor        int         `json:"cursor"`
	PreserveEdits bool        `json:"preserveEdits"`
	Deck          models.Deck `json:"deck"`
}

// Session is the single owner of the deck being edited.
type Session struct {
	mu            sync.Mutex
	deck          models.Deck
	cursor        int
	text          string
	title         string
	preserveEdits bool
	fontSize      int // size slides are rebuilt at

	importer   *importer.Importer
	guard      importer.Guard
	generation uint64
	logger     *log.Logger
}

// New creates a session whose deck starts empty with opts.Base's globals and policy.
func New(opts Options) *Session {
	base := opts.Base
	if base.GlobalFontSize <= 0 {
		base = models.NewDeck()
	}
	base.Slides = nil

	im := opts.Importer
	if im == nil {
		im = importer.New(opts.Logger)
	}

	return &Session{
		deck:          base,
		preserveEdits: opts.PreserveEdits,
		fontSize:      base.GlobalFontSize,
		importer:      im,
		logger:        opts.Logger,
	}
}

func (s *Session) debug(msg string, kv ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, kv...)
	}
}

// Deck returns a copy of the current deck.
func (s *Session) Deck() models.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck.Clone()
}

// Cursor returns the active slide index.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Text returns the lyrics text the deck was last derived from.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Title returns the presentation title, empty when unknown.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// SetTitle names the presentation for exports.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = strings.TrimSpace(title)
}

// State snapshots the session for storage between runs.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Text:          s.text,
		Title:         s.title,
		Cursor:        s.cursor,
		PreserveEdits: s.preserveEdits,
		Deck:          s.deck.Clone(),
	}
}

// Restore replaces the session with st. The cursor is clamped to the deck.
func (s *Session) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = st.Text
	s.title = st.Title
	s.preserveEdits = st.PreserveEdits
	s.deck = st.Deck.Clone()
	if s.deck.GlobalFontSize <= 0 {
		s.deck.GlobalFontSize = models.DefaultFontSize
	}
	s.cursor = clamp(st.Cursor, s.deck.Len())
	s.generation++
}

// SetPreserveEdits toggles whether per-slide styles survive a text change.
func (s *Session) SetPreserveEdits(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preserveEdits = on
}

func clamp(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	return min(cursor, n-1)
}

// rebuild derives the deck from the current text. Rebuilt slides take the
// configured font size, not an edited global one; the edited global still
// applies to slides added later. Callers hold mu.
func (s *Session) rebuild() {
	globalSize := s.deck.GlobalFontSize
	tmpl := s.deck
	tmpl.GlobalFontSize = s.fontSize

	s.deck = lyrics.Rebuild(tmpl, s.text, s.preserveEdits)
	s.deck.GlobalFontSize = globalSize
	s.cursor = clamp(s.cursor, s.deck.Len())
}

// SetLyrics replaces the lyrics text and rebuilds the deck from it.
func (s *Session) SetLyrics(text string) models.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = text
	s.rebuild()
	s.debug("deck rebuilt from text", "slides", s.deck.Len(), "preserve_edits", s.preserveEdits)
	return s.deck.Clone()
}

// SetGlobalBackground changes the background new slides inherit and picks a
// readable global font color for it. A deck derived from text is rebuilt;
// an imported or loaded deck has the background and color applied to every
// slide instead, since there is no text to rebuild from.
func (s *Session) SetGlobalBackground(background string) error {
	background = strings.TrimSpace(background)
	if background == "" {
		return fmt.Errorf("%w: background is required", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deck.GlobalBackground = background
	s.deck.GlobalFontColor = styles.ContrastColor(background)

	if strings.TrimSpace(s.text) != "" {
		s.rebuild()
		return nil
	}
	for i := range s.deck.Slides {
		s.deck.Slides[i].Background = background
		s.deck.Slides[i].FontColor = s.deck.GlobalFontColor
	}
	return nil
}

// SetPolicy changes the propagation flags. Slides are not touched.
func (s *Session) SetPolicy(policy models.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck = styles.SetPolicy(s.deck, policy)
}

// ApplyEdit applies one style edit at the cursor through the style resolver.
func (s *Session) ApplyEdit(edit models.StyleEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deck, err := styles.Apply(s.deck, s.cursor, edit)
	if err != nil {
		return err
	}
	s.deck = deck
	return nil
}

// ApplyTemplate applies tmpl at the cursor.
func (s *Session) ApplyTemplate(tmpl models.SlideTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deck, err := styles.ApplyTemplate(s.deck, s.cursor, tmpl)
	if err != nil {
		return err
	}
	s.deck = deck
	return nil
}

// Select moves the cursor to i.
func (s *Session) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deck.Slide(i); err != nil {
		return err
	}
	s.cursor = i
	return nil
}

// Next advances the cursor, wrapping at the end.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.deck.Next(s.cursor)
	return s.cursor
}

// Prev moves the cursor back, wrapping at the start.
func (s *Session) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.deck.Prev(s.cursor)
	return s.cursor
}

// AddSlide appends a placeholder slide and selects it.
func (s *Session) AddSlide() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.deck.AddSlide()
	return s.cursor
}

// DuplicateSlide copies slide i right after it and selects the copy.
func (s *Session) DuplicateSlide(i int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, err := s.deck.DuplicateSlide(i)
	if err != nil {
		return s.cursor, err
	}
	s.cursor = at
	return at, nil
}

// DeleteSlide removes slide i. The last remaining slide cannot be deleted.
func (s *Session) DeleteSlide(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursor, err := s.deck.DeleteSlide(i, s.cursor)
	if err != nil {
		return err
	}
	s.cursor = cursor
	return nil
}

// MoveSlide moves slide from to index to and keeps it selected.
func (s *Session) MoveSlide(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deck.MoveSlide(from, to); err != nil {
		return err
	}
	s.cursor = to
	return nil
}

// Import replaces the deck with the slides parsed from data. Only one import
// may run at a time; a result is dropped with [ErrImportSuperseded] if a
// newer import or load began after this one started. The session's globals
// and policy are kept.
func (s *Session) Import(ctx context.Context, filename string, data []byte, titleOverride string) (importer.Result, error) {
	release, err := s.guard.Acquire()
	if err != nil {
		return importer.Result{}, err
	}
	defer release()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	result, err := s.importer.Import(ctx, filename, data, titleOverride)
	if err != nil {
		return importer.Result{}, err
	}
	if err := s.applyImport(gen, result); err != nil {
		s.debug("stale import dropped", "file", filename)
		return importer.Result{}, err
	}
	return result, nil
}

// applyImport installs result unless another import or load has begun since
// generation gen.
func (s *Session) applyImport(gen uint64, result importer.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return ErrImportSuperseded
	}
	s.deck.Slides = result.Deck.Slides
	s.cursor = 0
	s.text = ""
	s.title = result.Title
	return nil
}

// Importing reports whether an import is in flight.
func (s *Session) Importing() bool {
	return s.guard.Busy()
}

// Save stores a snapshot of the deck under name.
func (s *Session) Save(ctx context.Context, store PresentationStore, name string) (*models.SavedPresentation, error) {
	deck := s.Deck()
	if err := deck.Presentable(); err != nil {
		return nil, fmt.Errorf("%w: nothing to save", err)
	}
	return store.Save(ctx, name, deck)
}

// Load replaces the deck with the slides of the presentation ref (an ID or
// a name) and resets the cursor to the first slide.
func (s *Session) Load(ctx context.Context, store PresentationStore, ref string) (*models.SavedPresentation, error) {
	p, err := store.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.deck.Slides = make([]models.Slide, 0, len(p.Slides))
	for _, slide := range p.Slides {
		s.deck.Slides = append(s.deck.Slides, slide.Clone())
	}
	s.cursor = 0
	s.text = ""
	s.title = p.Name
	return p, nil
}

// Fetch looks up query and rebuilds the deck from the cleaned lyrics. On
// failure the deck is left unchanged.
func (s *Session) Fetch(ctx context.Context, source LyricsSource, query string) (*models.Song, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: %w: song query is required", shared.ErrLookupFailed, shared.ErrInvalidInput)
	}

	song, err := source.Lookup(ctx, query)
	if err != nil {
		if errors.Is(err, shared.ErrLookupFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrLookupFailed, err)
	}
	if song == nil || strings.TrimSpace(song.Lyrics) == "" {
		return nil, fmt.Errorf("%w: no lyrics for %q", shared.ErrLookupFailed, query)
	}

	text := lyrics.Clean(song.Lyrics)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = text
	s.title = song.Title
	s.rebuild()
	return song, nil
}
