package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/desertthunder/lyricslide/internal/display"
	"github.com/desertthunder/lyricslide/internal/editor"
	"github.com/desertthunder/lyricslide/internal/repositories"
	"github.com/desertthunder/lyricslide/internal/server"
	"github.com/desertthunder/lyricslide/internal/services"
	"github.com/urfave/cli/v3"
)

const placeholderToken = "your_genius_api_token"

// Fetch looks up a song and rebuilds the deck from its lyrics. The deck is
// unchanged when the lookup fails.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	query, err := argText(cmd, "song query")
	if err != nil {
		return err
	}

	return r.mutate(ctx, func(s *editor.Session) error {
		song, err := s.Fetch(ctx, r.Lookup(), query)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(song, true)
		}

		r.writePlain("✓ %s by %s\n", song.Title, song.Artist)
		r.writePlain("Album: %s (%s)\n", song.Album, song.ReleaseDate)
		r.writePlain("Slides: %d\n", s.Deck().Len())
		return nil
	})
}

// Serve runs the lyrics lookup server backed by Genius until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	token := strings.TrimSpace(r.config.Lyrics.GeniusToken)
	if token == "" || token == placeholderToken {
		r.logger.Warn("no Genius token configured; lookups will fail", "config", r.configPath)
	}

	var svc services.Service = services.NewGeniusServiceFromConfig(r.config.Lyrics, r.logger)
	if store, err := r.Store(); err != nil {
		r.logger.Warn("song cache unavailable", "error", err)
	} else {
		svc = services.NewCachedService(svc, repositories.NewSongCache(store), r.logger)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Addr()
	r.logger.Info("starting lyrics server", "addr", addr, "upstream", svc.Name())
	srv := server.New(addr, svc, display.NewHub(r.logger), r.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server on %s: %w", strconv.Quote(addr), err)
	}
	return nil
}
