package main

import (
	"context"
	"os"

	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "lyricslide",
		Usage:    "Turn song lyrics into slide decks and present them",
		Version:  "0.3.0",
		Flags:    globalFlags(),
		Before:   runner.Before,
		After:    runner.After,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
