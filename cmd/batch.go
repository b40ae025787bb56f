package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/desertthunder/lyricslide/internal/tasks"
	"github.com/urfave/cli/v3"
)

// BatchFetch looks up every query and exports a deck per song.
func (r *Runner) BatchFetch(ctx context.Context, cmd *cli.Command) error {
	queries := cmd.Args().Slice()
	if path := cmd.String("file"); path != "" {
		lines, err := readQueries(path)
		if err != nil {
			return err
		}
		queries = append(queries, lines...)
	}
	if len(queries) == 0 {
		return fmt.Errorf("%w: at least one song query is required", shared.ErrMissingArgument)
	}

	opts := r.batchOpts(cmd)
	opts.RateLimit = cmd.Float("rate")

	engine := tasks.NewBatchEngine(r.Lookup(), r.baseDeck(), r.logger)
	progressCh, done := r.printProgress()
	result, err := engine.Fetch(ctx, progressCh, queries, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}
	return r.printBatchResult(result)
}

// BatchExport exports saved presentations, all of them with --all.
func (r *Runner) BatchExport(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.presentations()
	if err != nil {
		return err
	}

	var saved []models.SavedPresentation
	switch {
	case cmd.Bool("all"):
		if saved, err = repo.List(ctx); err != nil {
			return err
		}
	case cmd.Args().Len() > 0:
		for _, ref := range cmd.Args().Slice() {
			p, err := repo.Resolve(ctx, ref)
			if err != nil {
				return err
			}
			saved = append(saved, *p)
		}
	default:
		return fmt.Errorf("%w: pass presentation ids or names, or --all", shared.ErrMissingArgument)
	}

	if len(saved) == 0 {
		r.writePlain("No saved presentations\n")
		return nil
	}

	jobs := make([]tasks.DeckJob, 0, len(saved))
	for _, p := range saved {
		deck := r.baseDeck()
		deck.Slides = append([]models.Slide(nil), p.Slides...)
		jobs = append(jobs, tasks.DeckJob{Key: p.ID, Title: p.Name, Deck: deck})
	}

	engine := tasks.NewBatchEngine(nil, r.baseDeck(), r.logger)
	progressCh, done := r.printProgress()
	result, err := engine.ExportDecks(ctx, progressCh, jobs, r.batchOpts(cmd))
	close(progressCh)
	<-done

	if err != nil {
		return err
	}
	return r.printBatchResult(result)
}

func (r *Runner) batchOpts(cmd *cli.Command) tasks.BatchOpts {
	dir := cmd.String("dir")
	if dir == "" {
		dir = filepath.Join(r.config.Export.OutputDir, fmt.Sprintf("batch_%d", time.Now().Unix()))
	}
	return tasks.BatchOpts{
		Formats:    cmd.StringSlice("format"),
		OutputDir:  dir,
		NumWorkers: int(cmd.Int("workers")),
		Export:     r.exportOptions(),
	}
}

// printProgress drains updates until the returned channel is closed; done
// is closed once everything has been written.
func (r *Runner) printProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progressCh := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSongs:
				r.writePlain("🔍 [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.BuildDecks:
				r.writePlain("🧱 [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.ExportDecks:
				r.writePlain("📦 [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.WriteManifest:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()
	return progressCh, done
}

func (r *Runner) printBatchResult(result *tasks.BatchResult) error {
	r.writePlainHeader("Batch Summary")
	r.writePlain("Total:      %d\n", result.Total)
	r.writePlain("Successful: %d\n", result.Successful)
	r.writePlain("Failed:     %d\n", result.Failed)
	r.writePlain("Output:     %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest:   %s\n", result.ManifestPath)
	}

	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %s\n", res.Title, res.Message)
		}
	}
	return nil
}

// readQueries returns the non-blank lines of path, skipping # comments.
func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, scanner.Err()
}
