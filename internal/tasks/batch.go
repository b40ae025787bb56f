package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/desertthunder/lyricslide/internal/formatter"
	"github.com/desertthunder/lyricslide/internal/lyrics"
	"github.com/desertthunder/lyricslide/internal/shared"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 2.0
	manifestName     = "batch_manifest.json"
)

var exportFormats = mapset.NewThreadUnsafeSet("html", "htm", "pptx", "ppt", "md", "markdown", "txt", "text", "json")

// BatchOpts configures a batch run.
type BatchOpts struct {
	Formats    []string          // Export formats (default: html)
	OutputDir  string            // Output directory (default: lyricslide_batch_{epoch})
	NumWorkers int               // Concurrent exporters (default: 4, max: 10)
	RateLimit  float64           // Lookups per second (default: 2)
	Export     formatter.Options // Watermark and package options
}

func (o *BatchOpts) normalize() error {
	if o.OutputDir == "" {
		o.OutputDir = fmt.Sprintf("lyricslide_batch_%d", time.Now().Unix())
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = defaultWorkers
	}
	if o.NumWorkers > maxWorkers {
		o.NumWorkers = maxWorkers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = defaultRateLimit
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{"html"}
	}
	for i, f := range o.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if !exportFormats.Contains(f) {
			return fmt.Errorf("%w: %q", shared.ErrUnsupportedFormat, f)
		}
		o.Formats[i] = f
	}
	return nil
}

// Fetch looks up every query, builds a deck from each song's lyrics and
// exports it in every requested format. Lookups are rate limited and run in
// order; exports run on a bounded worker pool. Individual failures are
// recorded in the result and do not stop the run.
func (e *BatchEngine) Fetch(ctx context.Context, prog chan<- ProgressUpdate, queries []string, opts BatchOpts) (*BatchResult, error) {
	if err := requireSource(e.source); err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	return e.run(ctx, prog, len(queries), opts, func(jobs chan<- DeckJob, results chan<- DeckResult) {
		total := len(queries)
		for i, query := range queries {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			e.sendProgress(prog, fetchingSongUpdate(i+1, total, query))

			job, err := e.buildJob(ctx, query)
			if err != nil {
				e.debug("batch lookup failed", "query", query, "error", err)
				results <- DeckResult{Key: query, Title: query, Error: err}
				continue
			}

			e.sendProgress(prog, builtDeckUpdate(i+1, total, job))
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	})
}

// ExportDecks exports already-built decks, such as saved presentations.
func (e *BatchEngine) ExportDecks(ctx context.Context, prog chan<- ProgressUpdate, decks []DeckJob, opts BatchOpts) (*BatchResult, error) {
	return e.run(ctx, prog, len(decks), opts, func(jobs chan<- DeckJob, results chan<- DeckResult) {
		for _, job := range decks {
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	})
}

func (e *BatchEngine) buildJob(ctx context.Context, query string) (DeckJob, error) {
	song, err := e.source.Lookup(ctx, query)
	if err != nil {
		return DeckJob{}, fmt.Errorf("%w: %v", shared.ErrLookupFailed, err)
	}

	deck := lyrics.BuildDeck(lyrics.Clean(song.Lyrics), e.base)
	if deck.IsEmpty() {
		return DeckJob{}, fmt.Errorf("%w: %q has no lyrics", shared.ErrNoSlidesFound, query)
	}
	return DeckJob{Key: query, Title: SongTitle(song), Deck: deck, song: song}, nil
}

// run drives the shared pipeline: produce feeds jobs (and may report
// failures directly), workers export, and the caller collects results.
func (e *BatchEngine) run(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	total int,
	opts BatchOpts,
	produce func(jobs chan<- DeckJob, results chan<- DeckResult),
) (*BatchResult, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BatchResult{
		Total:           total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]DeckResult, 0, total),
	}

	jobs := make(chan DeckJob, total)
	results := make(chan DeckResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		produce(jobs, results)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.Message = res.Error.Error()
			result.Failed++
			e.sendProgress(prog, exportFailedUpdate(completed, total, res))
		} else {
			result.Successful++
			e.sendProgress(prog, exportCompletedUpdate(completed, total, res))
		}
		result.Results = append(result.Results, res)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("batch completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

func (e *BatchEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan DeckJob,
	results chan<- DeckResult,
	opts BatchOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- e.exportDeck(ctx, job, opts)
	}
}

// exportDeck writes job in every format. A failing format fails the deck but
// the files already written are still reported.
func (e *BatchEngine) exportDeck(ctx context.Context, job DeckJob, opts BatchOpts) DeckResult {
	res := DeckResult{
		Key:    job.Key,
		Title:  job.Title,
		Song:   job.song,
		Slides: job.Deck.Len(),
		Files:  make([]string, 0, len(opts.Formats)),
	}

	var errs []error
	for _, format := range opts.Formats {
		out, err := formatter.WriteExport(ctx, format, job.Deck, job.Title, opts.OutputDir, opts.Export, e.logger)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", format, err))
			continue
		}
		res.Files = append(res.Files, out.Path)
	}

	res.Error = multierr.Combine(errs...)
	res.Success = res.Error == nil
	return res
}

func writeManifest(result *BatchResult, path string) error {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
