// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/lyricslide/internal/formatter"
	"github.com/urfave/cli/v3"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("LYRICSLIDE_CONFIG"),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

// setupCommand writes the config file and initializes storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize storage",
		Action: r.Setup,
	}
}

// migrateCommand manages the SQLite schema.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage database migrations",
		Commands: []*cli.Command{
			{Name: "up", Usage: "Apply pending migrations", Action: r.MigrateUp},
			{Name: "down", Usage: "Roll back the latest migration", Action: r.MigrateDown},
			{Name: "status", Usage: "List migrations and whether they are applied", Action: r.MigrateStatus},
			{Name: "reindex", Usage: "Rebuild the presentation search index", Action: r.Reindex},
		},
	}
}

// buildCommand derives the deck from lyrics text.
func buildCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Build slides from lyrics (arguments, --file, or stdin)",
		ArgsUsage: "[lyrics]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read lyrics from a file ('-' for stdin)",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Presentation title",
			},
			&cli.BoolFlag{
				Name:  "preserve-edits",
				Usage: "Keep per-slide styles of slides that still exist",
			},
		},
		Action: r.Build,
	}
}

// showCommand prints the current deck.
func showCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "show",
		Usage:  "Show the current deck",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.Show,
	}
}

// styleCommand edits one field of the selected slide.
func styleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "style",
		Usage:     "Change a style field (background, font-color, font-size, transition, media, notes, content)",
		ArgsUsage: "<field> <value>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "slide",
				Aliases: []string{"s"},
				Usage:   "Slide number to edit (default: selected slide)",
			},
		},
		Action: r.Style,
	}
}

// backgroundCommand replaces the deck-wide background.
func backgroundCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "background",
		Aliases:   []string{"bg"},
		Usage:     "Set the global background and rebuild slides",
		ArgsUsage: "<css>",
		Action:    r.Background,
	}
}

// policyCommand toggles propagation of background and font-size edits.
func policyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "policy",
		Usage: "Show or change whether edits apply to all slides",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "background-all", Usage: "Apply background edits to every slide"},
			&cli.BoolFlag{Name: "font-size-all", Usage: "Apply font-size edits to every slide"},
			&cli.BoolFlag{Name: "preserve-edits", Usage: "Keep slide styles when lyrics change"},
		},
		Action: r.Policy,
	}
}

// templateCommand browses and applies the template catalog.
func templateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "template",
		Aliases: []string{"tpl"},
		Usage:   "Slide templates",
		Commands: []*cli.Command{
			{Name: "list", Usage: "List templates", Flags: []cli.Flag{jsonFlag()}, Action: r.TemplateList},
			{Name: "search", Usage: "Search templates by name", ArgsUsage: "<query>", Action: r.TemplateSearch},
			{Name: "apply", Usage: "Apply a template to the selected slide", ArgsUsage: "<name>", Action: r.TemplateApply},
		},
	}
}

// slideCommand performs structural edits. Slide numbers are 1-based.
func slideCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "slide",
		Usage: "Add, duplicate, delete, move and select slides",
		Commands: []*cli.Command{
			{Name: "add", Usage: "Append a new slide", Action: r.SlideAdd},
			{Name: "dup", Aliases: []string{"duplicate"}, Usage: "Duplicate a slide", ArgsUsage: "[n]", Action: r.SlideDuplicate},
			{Name: "delete", Aliases: []string{"rm"}, Usage: "Delete a slide", ArgsUsage: "[n]", Action: r.SlideDelete},
			{Name: "move", Usage: "Move a slide", ArgsUsage: "<from> <to>", Action: r.SlideMove},
			{Name: "select", Usage: "Select a slide", ArgsUsage: "<n>", Action: r.SlideSelect},
			{Name: "next", Usage: "Select the next slide", Action: r.SlideNext},
			{Name: "prev", Usage: "Select the previous slide", Action: r.SlidePrev},
		},
	}
}

// importCommand loads slides from an HTML or PPTX file.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import slides from .html/.htm or .pptx/.ppt",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Override the detected title"},
		},
		Action: r.Import,
	}
}

// exportCommand writes the deck to a file.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the current deck",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: " + joinFormats(),
				Value:   "html",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: [export] output_dir)",
			},
			&cli.StringFlag{Name: "title", Usage: "Title and file name"},
			&cli.BoolFlag{Name: "open", Usage: "Open the exported file in a browser"},
		},
		Action: r.Export,
	}
}

func saveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save the deck under a name",
		ArgsUsage: "<name>",
		Action:    r.Save,
	}
}

func loadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Load a saved presentation by id or name",
		ArgsUsage: "<id|name>",
		Action:    r.Load,
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List saved presentations",
		Flags:   []cli.Flag{jsonFlag()},
		Action:  r.List,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search saved presentations by name",
		ArgsUsage: "<query>",
		Action:    r.Search,
	}
}

func deleteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a saved presentation",
		ArgsUsage: "<id|name>",
		Action:    r.Delete,
	}
}

// presentCommand runs presentation mode.
func presentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "present",
		Usage: "Present the deck in the terminal, optionally mirrored to a browser",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "display",
				Usage: "Serve a second-screen display and wait for a browser to connect",
			},
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "How long to wait for the display",
				Value: defaultDisplayWait,
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address for the display page",
				Value: defaultDisplayAddr,
			},
			&cli.BoolFlag{Name: "open", Usage: "Open the display page in a browser"},
		},
		Action: r.Present,
	}
}

// fetchCommand looks up lyrics and rebuilds the deck from them.
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch lyrics for a song and build slides",
		ArgsUsage: "<song query>",
		Flags:     []cli.Flag{jsonFlag()},
		Action:    r.Fetch,
	}
}

// serveCommand runs the lyrics lookup server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the lyrics lookup server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (default: [server] host)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (default: [server] port)"},
		},
		Action: r.Serve,
	}
}

// batchCommand processes many songs or presentations at once.
func batchCommand(r *Runner) *cli.Command {
	flags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output formats (repeatable): " + joinFormats(),
				Value:   []string{"html"},
			},
			&cli.StringFlag{Name: "dir", Aliases: []string{"o"}, Usage: "Output directory"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent exporters", Value: 4},
		}
	}

	return &cli.Command{
		Name:  "batch",
		Usage: "Fetch or export many decks at once",
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "Fetch songs and export a deck for each",
				ArgsUsage: "[query...]",
				Flags: append(flags(),
					&cli.StringFlag{Name: "file", Usage: "File with one song query per line"},
					&cli.FloatFlag{Name: "rate", Usage: "Lookups per second", Value: 2},
				),
				Action: r.BatchFetch,
			},
			{
				Name:      "export",
				Usage:     "Export saved presentations",
				ArgsUsage: "[id|name...]",
				Flags: append(flags(),
					&cli.BoolFlag{Name: "all", Usage: "Export every saved presentation"},
				),
				Action: r.BatchExport,
			},
		},
	}
}

func joinFormats() string {
	return strings.Join(formatter.Formats, ", ")
}
