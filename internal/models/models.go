package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/lyricslide/internal/shared"
)

const (
	// DefaultBackground is the gradient new decks and imported packages start with.
	DefaultBackground = "linear-gradient(45deg, #1C1C1C, #663399, #B06AB3)"
	DefaultFontColor  = "#FFFFFF"
	DefaultFontSize   = 30
	NewSlideContent   = "New Slide"
)

// Transition is the animation used when a slide becomes active.
type Transition string

const (
	TransitionFade  Transition = "fade"
	TransitionSlide Transition = "slide"
	TransitionZoom  Transition = "zoom"
)

// ParseTransition accepts fade, slide or zoom in any case.
func ParseTransition(s string) (Transition, error) {
	switch t := Transition(strings.ToLower(strings.TrimSpace(s))); t {
	case TransitionFade, TransitionSlide, TransitionZoom:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown transition %q", shared.ErrInvalidInput, s)
	}
}

// MediaKind distinguishes still images from looping video.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is an image or video drawn behind the slide text. Data is usually a
// data: URI but may be any URL the renderer can reach.
type Media struct {
	Kind MediaKind `json:"type"`
	Data string    `json:"url"`
}

// Slide is one visual unit. Content may contain <br/> line-break markers.
type Slide struct {
	Content    string     `json:"content"`
	Background string     `json:"background"`
	FontColor  string     `json:"fontColor"`
	FontSize   int        `json:"fontSize"`
	Transition Transition `json:"transition"`
	Media      *Media     `json:"media,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// Clone returns a copy that shares no pointers with s.
func (s Slide) Clone() Slide {
	if s.Media != nil {
		m := *s.Media
		s.Media = &m
	}
	return s
}

// Policy controls whether background and font-size edits reach every slide.
type Policy struct {
	ApplyBackgroundToAll bool `json:"applyBackgroundToAll"`
	ApplyFontSizeToAll   bool `json:"applyFontSizeToAll"`
}

// DefaultPolicy matches the browser app: both toggles start on.
func DefaultPolicy() Policy {
	return Policy{ApplyBackgroundToAll: true, ApplyFontSizeToAll: true}
}

// SlideTemplate is a named look loaded from the template catalog.
type SlideTemplate struct {
	Name       string     `json:"name" toml:"name"`
	Background string     `json:"background" toml:"background"`
	FontColor  string     `json:"fontColor" toml:"font_color"`
	FontSize   int        `json:"fontSize" toml:"font_size"`
	Transition Transition `json:"transition" toml:"transition"`
}

// SavedPresentation is a snapshot stored by the persistence layer. Names are
// not unique; ID selects one specific entry.
type SavedPresentation struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	Slides       []Slide   `json:"slides"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

// NewSavedPresentation snapshots slides under name with fresh timestamps.
func NewSavedPresentation(name string, slides []Slide) (SavedPresentation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SavedPresentation{}, fmt.Errorf("%w: presentation name is required", shared.ErrInvalidInput)
	}

	now := time.Now().UTC()
	return SavedPresentation{
		ID:           shared.GenerateID(),
		Name:         name,
		Slides:       cloneSlides(slides),
		CreatedAt:    now,
		LastModified: now,
	}, nil
}

// Field names a style attribute a [StyleEdit] can change.
type Field string

const (
	FieldBackground Field = "background"
	FieldFontColor  Field = "fontColor"
	FieldFontSize   Field = "fontSize"
	FieldTransition Field = "transition"
	FieldMedia      Field = "media"
	FieldNotes      Field = "notes"
	FieldContent    Field = "content"
)

// StyleEdit is one field change. Only the value matching Field is read.
type StyleEdit struct {
	Field      Field
	Text       string
	Size       int
	Transition Transition
	Media      *Media
}

// ParseField maps user-facing names (font-color, font_size, bg...) to a Field.
func ParseField(s string) (Field, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "background", "bg":
		return FieldBackground, nil
	case "fontcolor", "color":
		return FieldFontColor, nil
	case "fontsize", "size":
		return FieldFontSize, nil
	case "transition":
		return FieldTransition, nil
	case "media":
		return FieldMedia, nil
	case "notes":
		return FieldNotes, nil
	case "content", "text":
		return FieldContent, nil
	}
	return "", fmt.Errorf("%w: unknown style field %q", shared.ErrInvalidInput, s)
}

// Validate rejects edits whose value cannot be applied.
func (e StyleEdit) Validate() error {
	switch e.Field {
	case FieldBackground, FieldFontColor:
		if strings.TrimSpace(e.Text) == "" {
			return fmt.Errorf("%w: %s requires a value", shared.ErrInvalidInput, e.Field)
		}
	case FieldFontSize:
		if e.Size <= 0 {
			return fmt.Errorf("%w: font size must be positive, got %d", shared.ErrInvalidInput, e.Size)
		}
	case FieldTransition:
		if _, err := ParseTransition(string(e.Transition)); err != nil {
			return err
		}
	case FieldMedia:
		if e.Media != nil && e.Media.Kind != MediaImage && e.Media.Kind != MediaVideo {
			return fmt.Errorf("%w: unknown media kind %q", shared.ErrInvalidInput, e.Media.Kind)
		}
	case FieldNotes, FieldContent:
	default:
		return fmt.Errorf("%w: unknown style field %q", shared.ErrInvalidInput, e.Field)
	}
	return nil
}

func cloneSlides(slides []Slide) []Slide {
	if slides == nil {
		return nil
	}
	out := make([]Slide, len(slides))
	for i, s := range slides {
		out[i] = s.Clone()
	}
	return out
}

// Song is a lyrics lookup result as served by GET /lyrics.
type Song struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseDate string `json:"releaseDate"`
	Lyrics      string `json:"lyrics"`
}
