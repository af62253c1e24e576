package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the local database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Path for the generated config file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return r.Setup(ctx, cmd.String("path"), cmd.Bool("force"))
		},
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize access to your Spotify library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file to store the token in",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return r.Auth(ctx, cmd.String("config"), cmd.Bool("no-browser"))
		},
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show the current authorization state",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.AuthStatus(ctx)
				},
			},
		},
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Route newly liked songs into your genre playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Compute routing decisions without modifying playlists or saved state",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Emit the run result as JSON",
			},
			&cli.StringFlag{
				Name:    "report",
				Aliases: []string{"r"},
				Usage:   "Write routing decisions to a CSV file at the given path",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show interactive progress while the sync runs",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return r.Sync(ctx, SyncOpts{
				DryRun:     cmd.Bool("dry-run"),
				JSON:       cmd.Bool("json"),
				ReportPath: cmd.String("report"),
				TUI:        cmd.Bool("tui"),
			})
		},
	}
}

func profilesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "Inspect and rebuild playlist genre profiles",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the genre profile for a target playlist",
				ArgsUsage: "<playlist-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"n"},
						Usage:   "Limit output to the N heaviest genres (0 = all)",
						Value:   0,
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Emit the profile as JSON",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.ProfilesShow(ctx, cmd.Args().First(), int(cmd.Int("top")), cmd.Bool("json"))
				},
			},
			{
				Name:      "rebuild",
				Usage:     "Force a fresh profile build for one playlist, or all targets",
				ArgsUsage: "[playlist-id]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.ProfilesRebuild(ctx, cmd.Args().First())
				},
			},
		},
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the sync watermark and per-playlist rebuild times",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Emit status as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return r.Status(ctx, cmd.Bool("json"))
		},
	}
}
