// package formatter renders run reports and run history for the terminal (plain text styled with lipgloss, or JSON)
package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/shared"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatReport renders a run report: header, one block per month, totals and failures.
func FormatReport(report *models.RunReport, p *Palette) string {
	if p == nil {
		p = DefaultPalette
	}

	var b strings.Builder

	if report.DryRun {
		b.WriteString(p.Warn("Dry run: no playlists were created or modified") + "\n")
	}

	b.WriteString(p.Title("Filters") + "\n")
	fmt.Fprintf(&b, "  Length: %s\n", report.Filters.Length)
	if report.Filters.Scope != "" {
		fmt.Fprintf(&b, "  Scope:  %s", report.Filters.Scope)
		if report.Interval != nil {
			fmt.Fprintf(&b, " %s", p.Help(report.Interval.String()))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("  Scope:  " + p.Help("entire stream") + "\n")
	}
	fmt.Fprintf(&b, "  Items:  %d fetched, %d accepted\n", report.ItemsFetched, report.ItemsAccepted)

	if len(report.Buckets) > 0 {
		b.WriteString("\n" + p.Title("Playlists") + "\n")
		for _, bucket := range report.Buckets {
			b.WriteString(formatBucket(bucket, report.DryRun, p))
		}
	}

	created, added := "Playlists created", "Tracks added"
	if report.DryRun {
		created, added = "Playlists to create", "Tracks to add"
	}

	b.WriteString("\n" + p.Title("Summary") + "\n")
	fmt.Fprintf(&b, "  %s: %d\n", created, report.CollectionsCreated)
	fmt.Fprintf(&b, "  %s: %d\n", added, report.MembershipsAdded)
	fmt.Fprintf(&b, "  Duplicates skipped: %d\n", report.DuplicatesSkipped)
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "  Elapsed: %s\n", FormatElapsed(report.FinishedAt.Sub(report.StartedAt)))
	}

	if report.HasFailures() {
		b.WriteString("\n" + p.Err(fmt.Sprintf("Failures: %d", len(report.Failures))) + "\n")
		for _, f := range report.Failures {
			target := f.Collection
			if f.ItemID != "" {
				target += " track " + f.ItemID
			}
			fmt.Fprintf(&b, "  %s %s (%s): %s\n", p.Err("✗"), target, f.Op, f.Message)
		}
	}

	return b.String()
}

func formatBucket(bucket models.BucketReport, dryRun bool, p *Palette) string {
	var b strings.Builder

	status := p.OK("existing")
	switch {
	case bucket.Failed:
		status = p.Err("failed")
	case bucket.Created && dryRun:
		status = p.Warn("would create")
	case bucket.Created:
		status = p.OK("created")
	}

	fmt.Fprintf(&b, "  %s  %s  %d items, +%d added, %d skipped\n",
		p.Title(bucket.Name), status, bucket.Items, bucket.MembershipsAdded, bucket.DuplicatesSkipped)
	for _, title := range bucket.Added {
		fmt.Fprintf(&b, "    %s %s\n", p.OK("+"), title)
	}
	return b.String()
}

// FormatElapsed rounds d for display.
func FormatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// FormatRuns renders the run history as a table, newest first.
func FormatRuns(runs []*models.SyncRun, p *Palette) string {
	if p == nil {
		p = DefaultPalette
	}
	if len(runs) == 0 {
		return p.Help("No runs recorded") + "\n"
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		report := run.Report()
		scope := report.Filters.Scope
		if scope == "" {
			scope = "-"
		}
		mode := "live"
		if report.DryRun {
			mode = "dry run"
		}
		rows = append(rows, []string{
			"#" + strconv.Itoa(run.Sequence()),
			report.StartedAt.Local().Format(timeLayout),
			string(run.Status()),
			mode,
			report.Filters.Length.String(),
			scope,
			strconv.Itoa(report.ItemsAccepted),
			strconv.Itoa(report.CollectionsCreated),
			strconv.Itoa(report.MembershipsAdded),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.help).
		Headers("RUN", "STARTED", "STATUS", "MODE", "LENGTH", "SCOPE", "ACCEPTED", "CREATED", "ADDED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Inherit(p.title)
			}
			if col == 2 && row >= 0 && row < len(runs) {
				switch runs[row].Status() {
				case models.RunFailed:
					return style.Inherit(p.err)
				case models.RunCompleted:
					return style.Inherit(p.ok)
				}
			}
			return style
		})

	return t.String() + "\n"
}

// FormatRun renders one stored run with its full report.
func FormatRun(run *models.SyncRun, p *Palette) string {
	if p == nil {
		p = DefaultPalette
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", p.Title(fmt.Sprintf("Run #%d", run.Sequence())), p.Help(run.ID()))
	fmt.Fprintf(&b, "  Started: %s\n", run.Report().StartedAt.Local().Format(timeLayout))

	switch run.Status() {
	case models.RunFailed:
		fmt.Fprintf(&b, "  Status:  %s\n", p.Err(string(run.Status())))
		if msg := run.ErrorMessage(); msg != "" {
			fmt.Fprintf(&b, "  Error:   %s\n", msg)
		}
	case models.RunCompleted:
		fmt.Fprintf(&b, "  Status:  %s\n", p.OK(string(run.Status())))
	default:
		fmt.Fprintf(&b, "  Status:  %s\n", p.Warn(string(run.Status())))
	}

	b.WriteString("\n")
	b.WriteString(FormatReport(run.Report(), p))
	return b.String()
}

// ReportJSON returns the indented JSON form of report.
func ReportJSON(report *models.RunReport) ([]byte, error) {
	return shared.MarshalJSON(report, true)
}
