package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/lyricslide/internal/editor"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/urfave/cli/v3"
)

const listTimeFormat = "2006-01-02 15:04"

func argText(cmd *cli.Command, what string) (string, error) {
	text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if text == "" {
		return "", fmt.Errorf("%w: %s is required", shared.ErrMissingArgument, what)
	}
	return text, nil
}

// Save stores the deck under a name. Saving the same name twice keeps both.
func (r *Runner) Save(ctx context.Context, cmd *cli.Command) error {
	name, err := argText(cmd, "name")
	if err != nil {
		return err
	}
	repo, err := r.presentations()
	if err != nil {
		return err
	}
	session, err := r.Session(ctx)
	if err != nil {
		return err
	}

	saved, err := session.Save(ctx, repo, name)
	if err != nil {
		return err
	}
	r.writePlain("✓ Saved %q (%d slides)\n", saved.Name, len(saved.Slides))
	r.writePlain("ID: %s\n", saved.ID)
	return nil
}

// Load replaces the deck with a saved presentation.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) error {
	ref, err := argText(cmd, "presentation id or name")
	if err != nil {
		return err
	}
	repo, err := r.presentations()
	if err != nil {
		return err
	}

	return r.mutate(ctx, func(s *editor.Session) error {
		p, err := s.Load(ctx, repo, ref)
		if err != nil {
			return err
		}
		r.writePlain("✓ Loaded %q (%d slides)\n", p.Name, len(p.Slides))
		return nil
	})
}

// List prints saved presentations, most recently modified first.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.presentations()
	if err != nil {
		return err
	}
	list, err := repo.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, true)
	}
	if len(list) == 0 {
		r.writePlain("No saved presentations\n")
		return nil
	}
	slices.SortStableFunc(list, func(a, b models.SavedPresentation) int {
		return b.LastModified.Compare(a.LastModified)
	})
	for _, p := range list {
		r.writePlain("%-36s  %-30s  %3d slides  %s\n", p.ID, p.Name, len(p.Slides), p.LastModified.Local().Format(listTimeFormat))
	}
	return nil
}

// Search prints saved presentations whose name contains the query.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query, err := argText(cmd, "query")
	if err != nil {
		return err
	}
	repo, err := r.presentations()
	if err != nil {
		return err
	}
	entries, err := repo.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		r.writePlain("No presentations match %q\n", query)
		return nil
	}
	for _, e := range entries {
		r.writePlain("%-36s  %-30s  %3d slides  %s\n", e.ID, e.Name, e.SlideCount, e.SavedAt.Local().Format(listTimeFormat))
	}
	return nil
}

// Delete removes one saved presentation, resolved by id or newest name match.
func (r *Runner) Delete(ctx context.Context, cmd *cli.Command) error {
	ref, err := argText(cmd, "presentation id or name")
	if err != nil {
		return err
	}
	repo, err := r.presentations()
	if err != nil {
		return err
	}
	p, err := repo.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, p.ID); err != nil {
		return err
	}
	r.writePlain("✓ Deleted %q (saved %s)\n", p.Name, p.CreatedAt.Local().Format(time.DateTime))
	return nil
}
