package formatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/scorg/internal/models"
)

func sampleReport() *models.RunReport {
	started := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	report := models.NewRunReport("run-1", models.Filters{Length: models.Long, Scope: "2023"}, started)
	report.FinishedAt = started.Add(1500 * time.Millisecond)
	report.Interval = &models.DateInterval{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	report.ItemsFetched = 40
	report.ItemsAccepted = 3
	report.CollectionsCreated = 1
	report.MembershipsAdded = 2
	report.DuplicatesSkipped = 1
	report.Buckets = []models.BucketReport{
		{Name: "2023-06", Items: 2, Created: true, MembershipsAdded: 2, Added: []string{"Boiler Room Set", "Essential Mix"}},
		{Name: "2023-07", Items: 1, DuplicatesSkipped: 1},
	}
	return report
}

func TestFormatReport(t *testing.T) {
	t.Run("Live Run", func(t *testing.T) {
		output := FormatReport(sampleReport(), PlainPalette())

		for _, want := range []string{
			"Length: long",
			"Scope:  2023 [2023-01-01, 2024-01-01)",
			"40 fetched, 3 accepted",
			"2023-06  created  2 items, +2 added, 0 skipped",
			"+ Boiler Room Set",
			"2023-07  existing  1 items, +0 added, 1 skipped",
			"Playlists created: 1",
			"Tracks added: 2",
			"Duplicates skipped: 1",
			"Elapsed: 1.5s",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}

		if strings.Contains(output, "Dry run") || strings.Contains(output, "Failures") {
			t.Errorf("unexpected dry run or failure section:\n%s", output)
		}
	})

	t.Run("Dry Run", func(t *testing.T) {
		report := sampleReport()
		report.DryRun = true

		output := FormatReport(report, PlainPalette())

		for _, want := range []string{"Dry run", "Playlists to create: 1", "Tracks to add: 2", "2023-06  would create"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
	})

	t.Run("Failures", func(t *testing.T) {
		report := sampleReport()
		report.Buckets[1].Failed = true
		report.Fail("2023-07", "", models.OpMembers, errors.New("503 service unavailable"))
		report.Fail("2023-06", "123", models.OpAppend, errors.New("rate limited"))

		output := FormatReport(report, PlainPalette())

		for _, want := range []string{
			"Failures: 2",
			"2023-07 (members): 503 service unavailable",
			"2023-06 track 123 (append): rate limited",
			"2023-07  failed",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
	})

	t.Run("Unscoped", func(t *testing.T) {
		report := models.NewRunReport("run-2", models.Filters{}, time.Now())

		output := FormatReport(report, PlainPalette())

		if !strings.Contains(output, "Length: all") || !strings.Contains(output, "entire stream") {
			t.Errorf("unexpected unscoped output:\n%s", output)
		}
		if strings.Contains(output, "Elapsed") {
			t.Error("unfinished run should not report elapsed time")
		}
	})
}

func TestFormatRuns(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if output := FormatRuns(nil, PlainPalette()); !strings.Contains(output, "No runs recorded") {
			t.Errorf("unexpected output %q", output)
		}
	})

	t.Run("Table", func(t *testing.T) {
		completed := models.NewSyncRun(2, sampleReport())
		completed.Complete(nil)

		failedReport := models.NewRunReport("run-3", models.Filters{}, time.Now())
		failedReport.DryRun = true
		failed := models.NewSyncRun(1, failedReport)
		failed.Fail(errors.New("stream fetch failed"))

		output := FormatRuns([]*models.SyncRun{completed, failed}, PlainPalette())

		for _, want := range []string{"RUN", "STATUS", "#2", "#1", "completed", "failed", "dry run", "live", "2023"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in table:\n%s", want, output)
			}
		}
	})
}

func TestFormatRun(t *testing.T) {
	run := models.NewSyncRun(7, sampleReport())
	run.SetID("run-7")
	run.Fail(errors.New("stream fetch failed: 500"))

	output := FormatRun(run, PlainPalette())

	for _, want := range []string{"Run #7", "run-7", "Status:  failed", "Error:   stream fetch failed: 500", "Tracks added: 2"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestReportJSON(t *testing.T) {
	data, err := ReportJSON(sampleReport())
	if err != nil {
		t.Fatalf("ReportJSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	filters, ok := decoded["filters"].(map[string]any)
	if !ok || filters["length"] != "long" || filters["scope"] != "2023" {
		t.Errorf("unexpected filters %v", decoded["filters"])
	}
	if decoded["memberships_added"] != float64(2) {
		t.Errorf("expected memberships_added 2, got %v", decoded["memberships_added"])
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250*time.Millisecond + 400*time.Microsecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{65*time.Second + 420*time.Millisecond, "1m5.4s"},
	}

	for _, tt := range tests {
		if got := FormatElapsed(tt.in); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
