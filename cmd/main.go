// Package main implements the genresort command line application, a
// genre-based router for Spotify liked songs. It builds genre profiles for a
// set of target playlists, scores each newly liked track against those
// profiles, and files the track into the best matching playlist.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genresort/internal/catalog"
	"github.com/desertthunder/genresort/internal/shared"
	"github.com/urfave/cli/v3"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("failed to load config: %v", err)
		}
		config = shared.DefaultConfig()
	}

	shared.LoadEnvCredentials(config)

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	if spotify, err := catalog.NewSpotifyCatalog(config.Credentials.Spotify, config.Sync.RequestsPerSecond); err == nil {
		runner.catalog = spotify
	} else {
		logger.Debugf("spotify client not configured: %v", err)
	}

	app := &cli.Command{
		Name:     "genresort",
		Usage:    "Sort your Spotify liked songs into genre playlists",
		Version:  "0.1.0",
		Commands: runner.register(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
