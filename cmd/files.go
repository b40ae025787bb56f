package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/lyricslide/internal/editor"
	"github.com/desertthunder/lyricslide/internal/formatter"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/urfave/cli/v3"
)

// Import replaces the deck with slides read from a presentation file.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("%w: file is required", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	return r.mutate(ctx, func(s *editor.Session) error {
		result, err := s.Import(ctx, filepath.Base(path), data, cmd.String("title"))
		if err != nil {
			return err
		}
		r.logger.Info("imported presentation", "file", path, "slides", result.Deck.Len())
		r.writePlain("✓ Imported %d slides from %s\n", result.Deck.Len(), filepath.Base(path))
		r.writePlain("Title: %s\n", result.Title)
		return nil
	})
}

// Export writes the deck in the requested format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	session, err := r.Session(ctx)
	if err != nil {
		return err
	}

	title := cmd.String("title")
	if title == "" {
		title = session.Title()
	}
	dir := cmd.String("dir")
	if dir == "" {
		dir = r.config.Export.OutputDir
	}

	result, err := formatter.WriteExport(ctx, cmd.String("format"), session.Deck(), title, dir, r.exportOptions(), r.logger)
	if err != nil {
		return err
	}

	r.logger.Info("exported presentation", "path", result.Path, "bytes", result.Bytes)
	r.writePlain("✓ Exported %d slides to %s\n", result.Slides, result.Path)

	if cmd.Bool("open") {
		if err := shared.OpenInBrowser(result.Path); err != nil {
			r.logger.Warn("could not open export", "error", err)
		}
	}
	return nil
}
