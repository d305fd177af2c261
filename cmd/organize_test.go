package main

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/repositories"
	"github.com/desertthunder/scorg/internal/shared"
	tu "github.com/desertthunder/scorg/internal/testing"
)

const fixedNow = "2024-03-10T09:00:00Z"

func stream() *tu.MockService {
	return tu.NewMockService(
		item("5", 3, 2023, time.July, 1),
		item("4", 45, 2023, time.June, 28),
		item("3", 25, 2023, time.June, 15),
		item("2", 8, 2023, time.June, 10),
		item("1", 60, 2022, time.December, 31),
	)
}

func TestOrganize(t *testing.T) {
	t.Run("files accepted items by month", func(t *testing.T) {
		svc := stream()
		runner, output := testRunner(t, svc, nil)

		err := execute(runner, "organize", "-f", "long", "-s", "2023-06", "--now", fixedNow)
		if err != nil {
			t.Fatalf("organize failed: %v", err)
		}

		if got := svc.CollectionNames(); !reflect.DeepEqual(got, []string{"2023-06"}) {
			t.Errorf("expected only 2023-06, got %v", got)
		}
		if got := svc.MembersOf("2023-06"); !reflect.DeepEqual(got, []string{"3", "4"}) {
			t.Errorf("expected long June items oldest first, got %v", got)
		}

		for _, want := range []string{"Playlists created: 1", "Tracks added: 2", "+ track 3", "5 fetched, 2 accepted"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in output:\n%s", want, output.String())
			}
		}
	})

	t.Run("second run adds nothing", func(t *testing.T) {
		svc := stream()
		runner, output := testRunner(t, svc, nil)

		for range 2 {
			output.Reset()
			if err := execute(runner, "organize", "--now", fixedNow); err != nil {
				t.Fatalf("organize failed: %v", err)
			}
		}

		if !strings.Contains(output.String(), "Tracks added: 0") || !strings.Contains(output.String(), "Duplicates skipped: 5") {
			t.Errorf("expected idempotent second run, got:\n%s", output.String())
		}
		if got := len(svc.MembersOf("2023-06")); got != 3 {
			t.Errorf("expected 3 members in 2023-06, got %d", got)
		}
	})

	t.Run("dry run", func(t *testing.T) {
		svc := stream()
		runner, output := testRunner(t, svc, nil)

		if err := execute(runner, "organize", "--dry-run", "--now", fixedNow); err != nil {
			t.Fatalf("organize failed: %v", err)
		}

		if svc.Mutations() != 0 {
			t.Errorf("expected no mutations in dry run, got calls %v", svc.Calls)
		}
		if !strings.Contains(output.String(), "Dry run") || !strings.Contains(output.String(), "Playlists to create: 3") {
			t.Errorf("unexpected dry run output:\n%s", output.String())
		}
	})

	t.Run("json output", func(t *testing.T) {
		runner, output := testRunner(t, stream(), nil)

		if err := execute(runner, "organize", "--json", "-f", "short", "--now", fixedNow); err != nil {
			t.Fatalf("organize failed: %v", err)
		}

		var report models.RunReport
		if err := json.Unmarshal(output.Bytes(), &report); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, output.String())
		}
		if report.Filters.Length != models.Short || report.ItemsAccepted != 1 || report.MembershipsAdded != 1 {
			t.Errorf("unexpected report %+v", report)
		}
	})

	t.Run("mutation failures do not fail the command", func(t *testing.T) {
		svc := stream()
		svc.AppendErr["3"] = errors.New("500 internal server error")
		runner, output := testRunner(t, svc, nil)

		if err := execute(runner, "organize", "--now", fixedNow); err != nil {
			t.Fatalf("expected success with recorded failures, got %v", err)
		}
		if !strings.Contains(output.String(), "Failures: 1") || !strings.Contains(output.String(), "2023-06 track 3 (append)") {
			t.Errorf("expected failure listing, got:\n%s", output.String())
		}
	})

	t.Run("invalid scope fails before any request", func(t *testing.T) {
		svc := stream()
		runner, _ := testRunner(t, svc, nil)

		err := execute(runner, "organize", "--scope", "not-a-scope")

		if !errors.Is(err, shared.ErrInvalidScope) {
			t.Errorf("expected ErrInvalidScope, got %v", err)
		}
		if len(svc.Calls) != 0 {
			t.Errorf("expected no service calls, got %v", svc.Calls)
		}
	})

	t.Run("invalid length filter", func(t *testing.T) {
		runner, _ := testRunner(t, stream(), nil)

		err := execute(runner, "organize", "-f", "tiny")

		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		svc := stream()
		svc.FetchErr = errors.New("connection reset")
		runner, _ := testRunner(t, svc, nil)

		err := execute(runner, "organize", "--now", fixedNow)

		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Errorf("expected ErrFetchFailed, got %v", err)
		}
		if svc.Mutations() != 0 {
			t.Errorf("expected no mutations, got %v", svc.Calls)
		}
	})
}

func TestHistory(t *testing.T) {
	t.Run("records runs", func(t *testing.T) {
		db := testDB(t)
		svc := stream()
		runner, output := testRunner(t, svc, db)

		if err := execute(runner, "organize", "-s", "2023", "--now", fixedNow); err != nil {
			t.Fatalf("organize failed: %v", err)
		}

		svc.FetchErr = errors.New("connection reset")
		if err := execute(runner, "organize", "--now", fixedNow); !errors.Is(err, shared.ErrFetchFailed) {
			t.Fatalf("expected fetch failure, got %v", err)
		}

		runs, err := repositories.NewRunRepository(db).List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 recorded runs, got %d", len(runs))
		}
		if runs[0].Status() != models.RunFailed || !strings.Contains(runs[0].ErrorMessage(), "connection reset") {
			t.Errorf("expected newest run failed, got %s %q", runs[0].Status(), runs[0].ErrorMessage())
		}
		if runs[1].Status() != models.RunCompleted || runs[1].Report().MembershipsAdded != 4 {
			t.Errorf("expected completed run with 4 additions, got %s %+v", runs[1].Status(), runs[1].Report())
		}

		output.Reset()
		if err := execute(runner, "history", "list"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}
		for _, want := range []string{"#1", "#2", "completed", "failed", "2023"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in history:\n%s", want, output.String())
			}
		}

		output.Reset()
		if err := execute(runner, "history", "list", "--status", "failed", "--json"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}
		var listed []runOutput
		if err := json.Unmarshal(output.Bytes(), &listed); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(listed) != 1 || listed[0].Sequence != 2 {
			t.Errorf("expected only run #2, got %+v", listed)
		}

		if err := execute(runner, "history", "list", "--status", "bogus"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("show and delete", func(t *testing.T) {
		db := testDB(t)
		runner, output := testRunner(t, stream(), db)

		if err := execute(runner, "organize", "-s", "2023-06", "--now", fixedNow); err != nil {
			t.Fatalf("organize failed: %v", err)
		}

		output.Reset()
		if err := execute(runner, "history", "show", "#1"); err != nil {
			t.Fatalf("history show failed: %v", err)
		}
		for _, want := range []string{"Run #1", "Status:  completed", "Scope:  2023-06 [2023-06-01, 2023-07-01)", "Tracks added: 3"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in:\n%s", want, output.String())
			}
		}

		output.Reset()
		if err := execute(runner, "history", "delete", "1"); err != nil {
			t.Fatalf("history delete failed: %v", err)
		}
		if !strings.Contains(output.String(), "Deleted run #1") {
			t.Errorf("unexpected delete output %q", output.String())
		}

		if err := execute(runner, "history", "show", "1"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
		if err := execute(runner, "history", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("disabled history records nothing", func(t *testing.T) {
		db := testDB(t)
		runner, _ := testRunner(t, stream(), db)
		runner.config.Sync.History = false

		if err := execute(runner, "organize", "--now", fixedNow); err != nil {
			t.Fatalf("organize failed: %v", err)
		}

		runs, _ := repositories.NewRunRepository(db).List(map[string]any{})
		if len(runs) != 0 {
			t.Errorf("expected no runs, got %d", len(runs))
		}
	})
}
