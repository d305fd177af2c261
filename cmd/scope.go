package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/scope"
	"github.com/desertthunder/scorg/internal/shared"
)

type scopeOutput struct {
	Token    string              `json:"token"`
	Interval models.DateInterval `json:"interval"`
	Days     int                 `json:"days"`
}

// Scope prints the half-open date range a scope token resolves to.
func (r *Runner) Scope(ctx context.Context, cmd *cli.Command) error {
	token := cmd.StringArg("token")
	if token == "" {
		return fmt.Errorf("%w: scope token (one of %s)", shared.ErrMissingArgument, strings.Join(scope.Forms(), ", "))
	}

	now, err := r.now(cmd)
	if err != nil {
		return err
	}

	interval, err := scope.Resolve(token, now)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(scopeOutput{Token: token, Interval: interval, Days: interval.Days()}, true)
	}

	return r.writePlain("%s %s %s\n", r.palette.Title(token), interval, r.palette.Help(fmt.Sprintf("(%d days)", interval.Days())))
}
