package main

import (
	"context"
	"fmt"
	"net"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lyricslide/internal/display"
	"github.com/desertthunder/lyricslide/internal/server"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/desertthunder/lyricslide/internal/sizer"
	"github.com/desertthunder/lyricslide/internal/ui"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
)

const (
	defaultDisplayWait = 30 * time.Second
	defaultDisplayAddr = "127.0.0.1:5001"
	presentLogPath     = "./tmp/lyricslide-present.log"
)

// Present runs the terminal presenter. With --display, slides are mirrored
// to a browser; if no browser connects in time the terminal presenter runs
// alone.
func (r *Runner) Present(ctx context.Context, cmd *cli.Command) error {
	session, err := r.Session(ctx)
	if err != nil {
		return err
	}
	deck := session.Deck()
	if err := deck.Presentable(); err != nil {
		return fmt.Errorf("%w: build or load slides first", err)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(presentLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	var screen ui.Screen
	if cmd.Bool("display") {
		presenter, stop, err := r.startDisplay(ctx, cmd.String("addr"), cmd.Duration("wait"), cmd.Bool("open"))
		if err != nil {
			r.logger.Warn("second screen unavailable", "error", err)
			r.writePlain("⚠ Second screen unavailable, presenting in the terminal only: %v\n", err)
		} else {
			screen = presenter
			defer func() {
				if err := stop(); err != nil {
					r.logger.Warn("display shutdown", "error", err)
				}
			}()
		}
	}

	model, err := ui.NewModel(ctx, deck, session.Cursor(), ui.Options{
		Title:  session.Title(),
		Screen: screen,
		Logger: fileLogger,
	})
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("error running presenter: %w", err)
	}

	if m, ok := final.(*ui.Model); ok {
		if err := session.Select(m.Cursor()); err == nil {
			return r.persist(ctx)
		}
	}
	return nil
}

// startDisplay serves the display page on addr and waits up to wait for a
// browser. The returned stop func shuts the server and the hub down.
func (r *Runner) startDisplay(ctx context.Context, addr string, wait time.Duration, open bool) (*display.Presenter, func() error, error) {
	measurer, err := sizer.NewFontMeasurer(nil)
	if err != nil {
		return nil, nil, err
	}
	fit, err := sizer.FromConfig(r.config.Sizer, measurer)
	if err != nil {
		measurer.Close()
		return nil, nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		measurer.Close()
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrDisplayUnavailable, err)
	}

	logger := shared.WithLogger(r.logger, "component", "display")
	hub := display.NewHub(logger)
	srv := server.New(addr, r.Lookup(), hub, logger)

	serveCtx, cancel := context.WithCancel(ctx)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(serveCtx, ln) }()

	stop := func() error {
		err := hub.Close()
		cancel()
		err = multierr.Append(err, <-served)
		return multierr.Append(err, measurer.Close())
	}

	pageURL := "http://" + ln.Addr().String() + "/"
	r.writePlain("Display page: %s\n", pageURL)
	if open {
		if err := shared.OpenInBrowser(pageURL); err != nil {
			r.logger.Warn("could not open display page", "error", err)
		}
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, wait)
	defer cancelWait()
	if err := hub.Open(waitCtx); err != nil {
		stop()
		return nil, nil, err
	}

	box := sizer.Box{Width: r.config.Sizer.BoxWidth, Height: r.config.Sizer.BoxHeight}
	presenter := display.NewPresenter(hub, sizer.NewCache(fit, 0), box, r.exportOptions(), logger)
	return presenter, stop, nil
}
