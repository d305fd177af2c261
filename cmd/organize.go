package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scorg/internal/formatter"
	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/repositories"
	"github.com/desertthunder/scorg/internal/scope"
	"github.com/desertthunder/scorg/internal/shared"
	"github.com/desertthunder/scorg/internal/tasks"
)

// Organize syncs the stream into monthly playlists and prints the run report.
//
// An invalid scope or length filter is rejected before any network access. Mutation failures are listed
// in the report and do not fail the command.
func (r *Runner) Organize(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	band, err := models.ParseLengthBand(cmd.String("length-filter"))
	if err != nil {
		return fmt.Errorf("%w: --length-filter: %v", shared.ErrInvalidFlag, err)
	}

	now, err := r.now(cmd)
	if err != nil {
		return err
	}

	filters := models.Filters{Length: band, Scope: cmd.String("scope")}
	if filters.Scope != "" {
		if _, err := scope.Resolve(filters.Scope, now); err != nil {
			return err
		}
	}

	svc, err := r.soundcloud(ctx)
	if err != nil {
		return err
	}

	engine := tasks.NewSynchronizer(svc, svc, tasks.Options{
		DryRun:         cmd.Bool("dry-run"),
		StopAfterStale: r.config.Sync.StopAfterStale,
		Visibility:     r.config.Sync.Visibility,
	})

	r.logger.Info("organizing stream", "service", svc.Name(), "length", band, "scope", filters.Scope, "dry_run", cmd.Bool("dry-run"))

	report, err := r.recordRun(filters, func() (*models.RunReport, error) {
		return engine.Run(ctx, filters, now)
	})
	if err != nil {
		return err
	}

	r.logger.Info("organize finished",
		"accepted", report.ItemsAccepted,
		"created", report.CollectionsCreated,
		"added", report.MembershipsAdded,
		"failures", len(report.Failures),
	)

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}
	return r.writePlain("%s", formatter.FormatReport(report, r.palette))
}

// recordRun wraps run with a history entry when history is enabled. History errors are logged, not returned.
func (r *Runner) recordRun(filters models.Filters, run func() (*models.RunReport, error)) (*models.RunReport, error) {
	if !r.config.Sync.History {
		return run()
	}

	repo, err := r.runs()
	if err != nil {
		r.logger.Warn("run history disabled", "error", err)
		return run()
	}

	entry := models.NewSyncRun(0, models.NewRunReport("", filters, time.Now()))
	if err := repo.Create(entry); err != nil {
		r.logger.Warn("failed to record run", "error", err)
		return run()
	}

	report, runErr := run()
	finish(repo, entry, report, runErr, r.logger)
	if runErr == nil {
		r.logger.Debug("run recorded", "run", entry.Sequence(), "id", entry.ID())
	}
	return report, runErr
}

func finish(repo *repositories.RunRepository, entry *models.SyncRun, report *models.RunReport, runErr error, logger *log.Logger) {
	if report != nil {
		entry.Complete(report)
	}
	if runErr != nil {
		entry.Fail(runErr)
	}
	if err := repo.Update(entry); err != nil {
		logger.Warn("failed to update run history", "run", entry.Sequence(), "error", err)
	}
}
