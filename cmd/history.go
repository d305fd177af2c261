package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scorg/internal/formatter"
	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/repositories"
	"github.com/desertthunder/scorg/internal/shared"
)

// HistoryList prints recorded runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runs()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		switch models.RunStatus(status) {
		case models.RunRunning, models.RunCompleted, models.RunFailed:
		default:
			return fmt.Errorf("%w: --status must be running, completed or failed", shared.ErrInvalidFlag)
		}
		criteria["status"] = status
	}

	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		reports := make([]runOutput, 0, len(runs))
		for _, run := range runs {
			reports = append(reports, newRunOutput(run))
		}
		return r.writeJSON(reports, true)
	}

	return r.writePlain("%s", formatter.FormatRuns(runs, r.palette))
}

// HistoryShow prints one run's full report.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runs()
	if err != nil {
		return err
	}

	run, err := findRun(repo, cmd.StringArg("run"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(newRunOutput(run), true)
	}
	return r.writePlain("%s", formatter.FormatRun(run, r.palette))
}

// HistoryDelete removes a run from the history.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runs()
	if err != nil {
		return err
	}

	run, err := findRun(repo, cmd.StringArg("run"))
	if err != nil {
		return err
	}

	if err := repo.Delete(run.ID()); err != nil {
		return err
	}

	r.logger.Info("run deleted", "run", run.Sequence(), "id", run.ID())
	return r.writePlain("✓ Deleted run #%d\n", run.Sequence())
}

// findRun resolves "42", "#42" or a run id.
func findRun(repo *repositories.RunRepository, ref string) (*models.SyncRun, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: run number or id", shared.ErrMissingArgument)
	}

	if seq, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		return repo.GetBySequence(seq)
	}
	return repo.Get(ref)
}

type runOutput struct {
	Sequence int               `json:"sequence"`
	Status   models.RunStatus  `json:"status"`
	Error    string            `json:"error,omitempty"`
	Report   *models.RunReport `json:"report"`
}

func newRunOutput(run *models.SyncRun) runOutput {
	return runOutput{
		Sequence: run.Sequence(),
		Status:   run.Status(),
		Error:    run.ErrorMessage(),
		Report:   run.Report(),
	}
}
