package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/lyricslide/internal/editor"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/desertthunder/lyricslide/internal/sizer"
	"github.com/h2non/filetype"
	"github.com/urfave/cli/v3"
)

// mutate runs fn against the session and persists the result.
func (r *Runner) mutate(ctx context.Context, fn func(*editor.Session) error) error {
	session, err := r.Session(ctx)
	if err != nil {
		return err
	}
	if err := fn(session); err != nil {
		return err
	}
	return r.persist(ctx)
}

func (r *Runner) readLyrics(cmd *cli.Command) (string, error) {
	switch path := cmd.String("file"); {
	case path == "-":
		data, err := io.ReadAll(r.input)
		return string(data), err
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		return string(data), nil
	case cmd.NArg() > 0:
		return strings.Join(cmd.Args().Slice(), " "), nil
	default:
		data, err := io.ReadAll(r.input)
		return string(data), err
	}
}

// Build derives the deck from lyrics text.
func (r *Runner) Build(ctx context.Context, cmd *cli.Command) error {
	text, err := r.readLyrics(cmd)
	if err != nil {
		return err
	}

	var deck models.Deck
	err = r.mutate(ctx, func(s *editor.Session) error {
		if cmd.IsSet("preserve-edits") {
			s.SetPreserveEdits(cmd.Bool("preserve-edits"))
		}
		if title := cmd.String("title"); title != "" {
			s.SetTitle(title)
		}
		deck = s.SetLyrics(text)
		return nil
	})
	if err != nil {
		return err
	}

	if deck.IsEmpty() {
		r.logger.Warn("no verses found; deck is empty")
	}
	r.writePlain("✓ Built %d slides\n", deck.Len())
	return nil
}

// Show prints the deck with the selected slide marked.
func (r *Runner) Show(ctx context.Context, cmd *cli.Command) error {
	session, err := r.Session(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(session.State(), true)
	}

	deck, cursor := session.Deck(), session.Cursor()
	title := session.Title()
	if title == "" {
		title = "Untitled"
	}
	r.writePlainHeader(fmt.Sprintf("%s (%d slides)", title, deck.Len()))
	r.writePlain("Background: %s\n", deck.GlobalBackground)
	r.writePlain("Policy: background-all=%t font-size-all=%t\n\n", deck.ApplyBackgroundToAll, deck.ApplyFontSizeToAll)

	for i, slide := range deck.Slides {
		mark := " "
		if i == cursor {
			mark = "▶"
		}
		first, _, _ := strings.Cut(strings.TrimSpace(sizer.PlainText(slide.Content)), "\n")
		r.writePlain("%s %2d. %-40s %3dpt %-5s %s\n", mark, i+1, first, slide.FontSize, slide.Transition, slide.FontColor)
		if slide.Notes != "" {
			r.writePlain("      notes: %s\n", slide.Notes)
		}
	}
	return nil
}

// Style applies a single field edit to the selected (or --slide) slide.
func (r *Runner) Style(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("%w: field is required", shared.ErrMissingArgument)
	}
	field, err := models.ParseField(cmd.Args().First())
	if err != nil {
		return err
	}
	value := strings.Join(cmd.Args().Tail(), " ")

	edit, err := r.styleEdit(field, value)
	if err != nil {
		return err
	}

	return r.mutate(ctx, func(s *editor.Session) error {
		if n := cmd.Int("slide"); n != 0 {
			if err := s.Select(n - 1); err != nil {
				return err
			}
		}
		if err := s.ApplyEdit(edit); err != nil {
			return err
		}
		r.writePlain("✓ %s updated on slide %d\n", field, s.Cursor()+1)
		return nil
	})
}

func (r *Runner) styleEdit(field models.Field, value string) (models.StyleEdit, error) {
	edit := models.StyleEdit{Field: field}
	switch field {
	case models.FieldFontSize:
		size, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return edit, fmt.Errorf("%w: font size %q is not a number", shared.ErrInvalidInput, value)
		}
		edit.Size = size
	case models.FieldTransition:
		t, err := models.ParseTransition(value)
		if err != nil {
			return edit, err
		}
		edit.Transition = t
	case models.FieldMedia:
		media, err := mediaFromSource(value)
		if err != nil {
			return edit, err
		}
		edit.Media = media
	default:
		edit.Text = value
	}
	return edit, edit.Validate()
}

// mediaFromSource builds slide media from a URL or a local file, which is
// inlined as a data URI. "none" or an empty value clears the media.
func mediaFromSource(src string) (*models.Media, error) {
	src = strings.TrimSpace(src)
	if src == "" || strings.EqualFold(src, "none") {
		return nil, nil
	}

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "data:") {
		kind := models.MediaImage
		if strings.HasPrefix(src, "data:video/") || hasVideoExt(src) {
			kind = models.MediaVideo
		}
		return &models.Media{Kind: kind, Data: src}, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	t, err := filetype.Match(data)
	if err != nil || t == filetype.Unknown {
		return nil, fmt.Errorf("%w: %s is not a recognised image or video", shared.ErrInvalidInput, src)
	}

	var kind models.MediaKind
	switch {
	case filetype.IsImage(data):
		kind = models.MediaImage
	case filetype.IsVideo(data):
		kind = models.MediaVideo
	default:
		return nil, fmt.Errorf("%w: %s is %s, not an image or video", shared.ErrInvalidInput, src, t.MIME.Value)
	}

	uri := fmt.Sprintf("data:%s;base64,%s", t.MIME.Value, base64.StdEncoding.EncodeToString(data))
	return &models.Media{Kind: kind, Data: uri}, nil
}

func hasVideoExt(src string) bool {
	src = strings.ToLower(src)
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	for _, ext := range []string{".mp4", ".webm", ".mov", ".m4v", ".ogv"} {
		if strings.HasSuffix(src, ext) {
			return true
		}
	}
	return false
}

// Background sets the global background.
func (r *Runner) Background(ctx context.Context, cmd *cli.Command) error {
	css := strings.Join(cmd.Args().Slice(), " ")
	return r.mutate(ctx, func(s *editor.Session) error {
		if err := s.SetGlobalBackground(css); err != nil {
			return err
		}
		deck := s.Deck()
		r.writePlain("✓ Background set; font color %s\n", deck.GlobalFontColor)
		return nil
	})
}

// Policy prints the propagation flags, updating those given.
func (r *Runner) Policy(ctx context.Context, cmd *cli.Command) error {
	return r.mutate(ctx, func(s *editor.Session) error {
		st := s.State()
		policy := st.Deck.Policy
		if cmd.IsSet("background-all") {
			policy.ApplyBackgroundToAll = cmd.Bool("background-all")
		}
		if cmd.IsSet("font-size-all") {
			policy.ApplyFontSizeToAll = cmd.Bool("font-size-all")
		}
		s.SetPolicy(policy)

		preserve := st.PreserveEdits
		if cmd.IsSet("preserve-edits") {
			preserve = cmd.Bool("preserve-edits")
			s.SetPreserveEdits(preserve)
		}

		r.writePlain("background-all: %t\n", policy.ApplyBackgroundToAll)
		r.writePlain("font-size-all:  %t\n", policy.ApplyFontSizeToAll)
		r.writePlain("preserve-edits: %t\n", preserve)
		return nil
	})
}

// TemplateList prints the catalog.
func (r *Runner) TemplateList(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.Catalog()
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(catalog.All(), true)
	}
	r.printTemplates(catalog.All())
	return nil
}

// TemplateSearch prints templates whose name contains the query.
func (r *Runner) TemplateSearch(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.Catalog()
	if err != nil {
		return err
	}
	matches := catalog.Search(strings.Join(cmd.Args().Slice(), " "))
	if len(matches) == 0 {
		r.writePlain("No templates found\n")
		return nil
	}
	r.printTemplates(matches)
	return nil
}

func (r *Runner) printTemplates(list []models.SlideTemplate) {
	for _, t := range list {
		r.writePlain("%-20s %3dpt %-5s %-8s %s\n", t.Name, t.FontSize, t.Transition, t.FontColor, t.Background)
	}
}

// TemplateApply applies a named template at the cursor.
func (r *Runner) TemplateApply(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.Catalog()
	if err != nil {
		return err
	}
	tmpl, err := catalog.Find(strings.Join(cmd.Args().Slice(), " "))
	if err != nil {
		return err
	}
	return r.mutate(ctx, func(s *editor.Session) error {
		if err := s.ApplyTemplate(tmpl); err != nil {
			return err
		}
		r.writePlain("✓ Applied %s to slide %d\n", tmpl.Name, s.Cursor()+1)
		return nil
	})
}

// slideNumber reads the 1-based slide argument at position i, defaulting to
// the selected slide.
func slideNumber(cmd *cli.Command, i int, s *editor.Session) (int, error) {
	arg := cmd.Args().Get(i)
	if arg == "" {
		return s.Cursor(), nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: slide number %q", shared.ErrInvalidArgument, arg)
	}
	return n - 1, nil
}

func (r *Runner) SlideAdd(ctx context.Context, cmd *cli.Command) error {
	return r.mutate(ctx, func(s *editor.Session) error {
		r.writePlain("✓ Added slide %d\n", s.AddSlide()+1)
		return nil
	})
}

func (r *Runner) SlideDuplicate(ctx context.Context, cmd *cli.Command) error {
	return r.mutate(ctx, func(s *editor.Session) error {
		i, err := slideNumber(cmd, 0, s)
		if err != nil {
			return err
		}
		at, err := s.DuplicateSlide(i)
		if err != nil {
			return err
		}
		r.writePlain("✓ Duplicated slide %d as %d\n", i+1, at+1)
		return nil
	})
}

func (r *Runner) SlideDelete(ctx context.Context, cmd *cli.Command) error {
	return r.mutate(ctx, func(s *editor.Session) error {
		i, err := slideNumber(cmd, 0, s)
		if err != nil {
			return err
		}
		if err := s.DeleteSlide(i); err != nil {
			return err
		}
		r.writePlain("✓ Deleted slide %d\n", i+1)
		return nil
	})
}

func (r *Runner) SlideMove(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 2 {
		return fmt.Errorf("%w: from and to are required", shared.ErrMissingArgument)
	}
	return r.mutate(ctx, func(s *editor.Session) error {
		from, err := slideNumber(cmd, 0, s)
		if err != nil {
			return err
		}
		to, err := slideNumber(cmd, 1, s)
		if err != nil {
			return err
		}
		if err := s.MoveSlide(from, to); err != nil {
			return err
		}
		r.writePlain("✓ Moved slide %d to %d\n", from+1, to+1)
		return nil
	})
}

func (r *Runner) SlideSelect(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("%w: slide number is required", shared.ErrMissingArgument)
	}
	return r.mutate(ctx, func(s *editor.Session) error {
		i, err := slideNumber(cmd, 0, s)
		if err != nil {
			return err
		}
		if err := s.Select(i); err != nil {
			return err
		}
		r.writePlain("Slide %d of %d\n", i+1, s.Deck().Len())
		return nil
	})
}

func (r *Runner) SlideNext(ctx context.Context, cmd *cli.Command) error {
	return r.mutate(ctx, func(s *editor.Session) error {
		r.writePlain("Slide %d of %d\n", s.Next()+1, s.Deck().Len())
		return nil
	})
}

func (r *Runner) SlidePrev(ctx context.Context, cmd *cli.Command) error {
	return r.mutate(ctx, func(s *editor.Session) error {
		r.writePlain("Slide %d of %d\n", s.Prev()+1, s.Deck().Len())
		return nil
	})
}
