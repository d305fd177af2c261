package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{})

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		runner.logger.Error("scorg failed", "error", err)
		runner.close()
		stop()
		os.Exit(1)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "scorg",
		Usage:   "Organize your SoundCloud stream into monthly playlists",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}
