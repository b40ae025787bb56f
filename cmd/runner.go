package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/editor"
	"github.com/desertthunder/lyricslide/internal/formatter"
	"github.com/desertthunder/lyricslide/internal/importer"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/repositories"
	"github.com/desertthunder/lyricslide/internal/services"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/desertthunder/lyricslide/internal/styles"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
)

// sessionKey holds the editing session between invocations.
const sessionKey = "current_session"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	store      repositories.Store
	db         *sql.DB
	lookup     services.Service
	catalog    *styles.Catalog
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	session    *editor.Session
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      repositories.Store // opened from Config on first use when nil
	Lookup     services.Service   // lyrics client for Config.Lyrics.BaseURL when nil
	Catalog    *styles.Catalog
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		timeout := time.Duration(opts.Config.Lyrics.TimeoutSeconds) * time.Second
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		lookup:     opts.Lookup,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, migrateCommand,
		buildCommand, showCommand, styleCommand, backgroundCommand, policyCommand, templateCommand, slideCommand,
		importCommand, exportCommand,
		saveCommand, loadCommand, listCommand, searchCommand, deleteCommand,
		presentCommand, fetchCommand, serveCommand, batchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Store opens the configured backend on first use.
func (r *Runner) Store() (repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	store, db, err := repositories.OpenStore(r.config)
	if err != nil {
		return nil, err
	}
	r.store, r.db = store, db
	return store, nil
}

func (r *Runner) presentations() (*repositories.PresentationRepository, error) {
	store, err := r.Store()
	if err != nil {
		return nil, err
	}
	return repositories.NewPresentationRepository(store, r.db), nil
}

// Lookup returns the lyrics service, cached through the store when one can
// be opened.
func (r *Runner) Lookup() services.Service {
	if r.lookup != nil {
		return r.lookup
	}

	var svc services.Service = services.NewLyricsClient(r.config.Lyrics.BaseURL, r.httpClient)
	if store, err := r.Store(); err != nil {
		r.logger.Warn("song cache unavailable", "error", err)
	} else {
		svc = services.NewCachedService(svc, repositories.NewSongCache(store), r.logger)
	}
	r.lookup = svc
	return svc
}

func (r *Runner) Catalog() (*styles.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	catalog, err := styles.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	r.catalog = catalog
	return catalog, nil
}

// baseDeck is an empty deck carrying the [deck] config defaults.
func (r *Runner) baseDeck() models.Deck {
	cfg := r.config.Deck
	deck := models.NewDeck()
	if cfg.Background != "" {
		deck.GlobalBackground = cfg.Background
	}
	if cfg.FontSize > 0 {
		deck.GlobalFontSize = cfg.FontSize
	}
	deck.GlobalFontColor = styles.ContrastColor(deck.GlobalBackground)
	deck.Policy = models.Policy{
		ApplyBackgroundToAll: cfg.ApplyBackgroundToAll,
		ApplyFontSizeToAll:   cfg.ApplyFontSizeToAll,
	}
	return deck
}

func (r *Runner) exportOptions() formatter.Options {
	return formatter.Options{
		Watermark: r.watermark(),
		FixZip:    r.config.Export.FixZip,
		Fetch:     formatter.HTTPFetcher(r.httpClient),
	}
}

func (r *Runner) watermark() string {
	if r.config.Deck.Watermark != "" {
		return r.config.Deck.Watermark
	}
	return formatter.DefaultWatermark
}

// Session restores the editing session saved by the previous command.
func (r *Runner) Session(ctx context.Context) (*editor.Session, error) {
	if r.session != nil {
		return r.session, nil
	}

	session := editor.New(editor.Options{
		Base:          r.baseDeck(),
		PreserveEdits: r.config.Deck.PreserveEdits,
		Importer:      importer.New(r.logger, r.watermark()),
		Logger:        r.logger,
	})

	store, err := r.Store()
	if err != nil {
		return nil, err
	}

	data, err := store.Get(ctx, sessionKey)
	switch {
	case errors.Is(err, repositories.ErrKeyNotFound):
	case err != nil:
		return nil, err
	default:
		var st editor.State
		if err := json.Unmarshal(data, &st); err != nil {
			r.logger.Warn("discarding unreadable session", "error", err)
		} else {
			session.Restore(st)
		}
	}

	r.session = session
	return session, nil
}

// persist writes the session back so the next command continues from it.
func (r *Runner) persist(ctx context.Context) error {
	if r.session == nil {
		return nil
	}
	store, err := r.Store()
	if err != nil {
		return err
	}
	data, err := shared.MarshalJSON(r.session.State(), false)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", shared.ErrPersistenceUnavailable, err)
	}
	return store.Put(ctx, sessionKey, data)
}

// Close releases the store.
func (r *Runner) Close() error {
	var err error
	if r.store != nil {
		err = multierr.Append(err, r.store.Close())
	}
	return err
}

// SetLogger swaps the logger, used when the TUI takes over the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
