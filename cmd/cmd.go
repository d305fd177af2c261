// submodule cmd contains command definitions
package main

import (
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scorg/internal/scope"
)

// nowFlag pins the clock for reproducible runs.
func nowFlag() cli.Flag {
	return &cli.StringFlag{
		Name:   "now",
		Usage:  "Evaluate scopes relative to this RFC3339 instant",
		Hidden: true,
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON",
	}
}

// loginCommand runs the SoundCloud authorization flow
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authorize scorg with your SoundCloud account",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: 2 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Login,
	}
}

// organizeCommand files the stream into monthly playlists
func organizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "organize",
		Aliases: []string{"sync"},
		Usage:   "Add tracks from your stream to monthly playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "length-filter",
				Aliases: []string{"f"},
				Usage:   "Only include tracks of this length: short (<5m), medium (5-20m), long (>=20m) or all",
				Value:   "all",
			},
			&cli.StringFlag{
				Name:    "scope",
				Aliases: []string{"s"},
				Usage:   "Only include tracks posted in " + strings.Join(scope.Forms(), ", "),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would change without creating playlists or adding tracks",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log every API request",
			},
			jsonFlag(),
			nowFlag(),
		},
		Action: r.Organize,
	}
}

// scopeCommand previews the interval a scope token resolves to
func scopeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scope",
		Usage: "Show the date range a scope covers",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "token"},
		},
		Flags:  []cli.Flag{jsonFlag(), nowFlag()},
		Action: r.Scope,
	}
}

// historyCommand inspects recorded runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect previous organize runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show runs with this status (running, completed, failed)",
					},
					jsonFlag(),
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show the full report of a run by number or id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Remove a run from the history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write an example config.toml",
				Action: r.SetupConfig,
			},
		},
	}
}
