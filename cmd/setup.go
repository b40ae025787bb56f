package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/urfave/cli/v3"
)

// Before loads the config named by --config when it exists and applies the
// log level. A missing file keeps the embedded defaults.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	r.configPath = path

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else if !errors.Is(err, os.ErrNotExist) {
		return ctx, fmt.Errorf("%w: %v", shared.ErrMissingConfig, err)
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// After releases the store.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Setup writes the example config when missing and initializes storage.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if _, err := os.Stat(path); err == nil {
		r.logger.Info("config file found", "path", path)
	} else {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		config, err := shared.LoadConfig(path)
		if err != nil {
			return err
		}
		r.config = config
	}

	r.logger.Info("initializing storage", "backend", r.config.Storage.Backend)
	if _, err := r.Store(); err != nil {
		return err
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config:  %s\n", path)
	switch r.config.Storage.Backend {
	case "file":
		r.writePlain("Storage: %s\n", r.config.Storage.FilePath)
	default:
		r.writePlain("Storage: %s\n", r.config.Database.Path)
	}
	return nil
}

func (r *Runner) rawDatabase() (func() error, error) {
	if r.config.Storage.Backend == "file" {
		return nil, fmt.Errorf("%w: migrations need the sqlite storage backend", shared.ErrInvalidConfig)
	}
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db.Close, nil
}

// MigrateUp applies pending migrations.
func (r *Runner) MigrateUp(ctx context.Context, cmd *cli.Command) error {
	closeDB, err := r.rawDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := shared.RunMigrations(r.db); err != nil {
		return err
	}
	r.logger.Info("migrations applied", "path", r.config.Database.Path)
	return nil
}

// MigrateDown rolls back the most recent migration.
func (r *Runner) MigrateDown(ctx context.Context, cmd *cli.Command) error {
	closeDB, err := r.rawDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := shared.RollbackMigration(r.db); err != nil {
		return err
	}
	r.logger.Info("rolled back latest migration")
	return nil
}

// MigrateStatus prints every known migration.
func (r *Runner) MigrateStatus(ctx context.Context, cmd *cli.Command) error {
	closeDB, err := r.rawDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	statuses, err := shared.MigrationStatuses(r.db)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		mark := " "
		if s.Applied {
			mark = "✓"
		}
		r.writePlain("[%s] %04d %s\n", mark, s.Version, s.Name)
	}
	return nil
}

// Reindex rebuilds the presentation search index from the stored blob.
func (r *Runner) Reindex(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.presentations()
	if err != nil {
		return err
	}
	n, err := repo.Reindex(ctx)
	if err != nil {
		return err
	}
	r.writePlain("✓ Indexed %d presentations\n", n)
	return nil
}
