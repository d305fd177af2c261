package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/shared"
)

// RunRepository implements [models.Repository] for [models.SyncRun] persistence.
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.SyncRun] = (*RunRepository)(nil)

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `
	id, sequence, status, length_filter, scope, interval_start, interval_end, dry_run,
	items_fetched, items_accepted, collections_created, memberships_added, duplicates_skipped,
	error, started_at, finished_at, created_at, updated_at, deleted_at`

type scanner interface {
	Scan(dest ...any) error
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Create inserts run with the next sequence number. An empty id is generated.
func (r *RunRepository) Create(run *models.SyncRun) error {
	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	run.SetSequence(sequence)

	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	report := run.Report()
	var start, end sql.NullTime
	if report.Interval != nil {
		start, end = nullTime(report.Interval.Start), nullTime(report.Interval.End)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO sync_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		run.ID(), sequence, string(run.Status()), report.Filters.Length.String(), report.Filters.Scope,
		start, end, report.DryRun,
		report.ItemsFetched, report.ItemsAccepted, report.CollectionsCreated, report.MembershipsAdded, report.DuplicatesSkipped,
		run.ErrorMessage(), report.StartedAt, nullTime(report.FinishedAt), run.CreatedAt(), run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	if err := insertFailures(tx, run.ID(), report.Failures); err != nil {
		return err
	}

	return tx.Commit()
}

func insertFailures(tx *sql.Tx, runID string, failures []models.MutationFailure) error {
	now := time.Now().UTC()
	for _, f := range failures {
		_, err := tx.Exec(`
			INSERT INTO sync_failures (id, run_id, collection, item_id, operation, message, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			shared.GenerateID(), runID, f.Collection, f.ItemID, f.Op, f.Message, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sync failure: %w", err)
		}
	}
	return nil
}

func scanRun(s scanner) (*models.SyncRun, error) {
	var (
		id, status, length, scope, errorMsg string
		sequence                            int
		start, end, finished, deleted       sql.NullTime
		dryRun                              bool
		startedAt, createdAt, updatedAt     time.Time
		report                              models.RunReport
	)

	err := s.Scan(
		&id, &sequence, &status, &length, &scope, &start, &end, &dryRun,
		&report.ItemsFetched, &report.ItemsAccepted, &report.CollectionsCreated, &report.MembershipsAdded, &report.DuplicatesSkipped,
		&errorMsg, &startedAt, &finished, &createdAt, &updatedAt, &deleted,
	)
	if err != nil {
		return nil, err
	}

	band, err := models.ParseLengthBand(length)
	if err != nil {
		return nil, fmt.Errorf("sync run %s: %w", id, err)
	}

	report.ID = id
	report.Filters = models.Filters{Length: band, Scope: scope}
	report.DryRun = dryRun
	report.StartedAt = startedAt.UTC()
	if finished.Valid {
		report.FinishedAt = finished.Time.UTC()
	}
	if start.Valid && end.Valid {
		report.Interval = &models.DateInterval{Start: start.Time.UTC(), End: end.Time.UTC()}
	}

	run := models.NewSyncRun(sequence, &report)
	run.SetStatus(models.RunStatus(status), errorMsg)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if deleted.Valid {
		run.SetDeletedAt(&deleted.Time)
	}
	return run, nil
}

func (r *RunRepository) failures(runID string) ([]models.MutationFailure, error) {
	rows, err := r.db.Query(`
		SELECT collection, item_id, operation, message
		FROM sync_failures
		WHERE run_id = ?
		ORDER BY created_at ASC, rowid ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync failures: %w", err)
	}
	defer rows.Close()

	var failures []models.MutationFailure
	for rows.Next() {
		var f models.MutationFailure
		if err := rows.Scan(&f.Collection, &f.ItemID, &f.Op, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan sync failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// Get retrieves a run and its failures by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.SyncRun, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run: %w", err)
	}

	failures, err := r.failures(id)
	if err != nil {
		return nil, err
	}
	run.Report().Failures = failures
	return run, nil
}

// GetBySequence retrieves a run by its run number.
func (r *RunRepository) GetBySequence(sequence int) (*models.SyncRun, error) {
	var id string
	err := r.db.QueryRow(`SELECT id FROM sync_runs WHERE sequence = ? AND deleted_at IS NULL`, sequence).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run #%d", shared.ErrRecordNotFound, sequence)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run: %w", err)
	}
	return r.Get(id)
}

// Update stores the run's status, counts and failures.
func (r *RunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)
	report := run.Report()

	var start, end sql.NullTime
	if report.Interval != nil {
		start, end = nullTime(report.Interval.Start), nullTime(report.Interval.End)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE sync_runs
		SET status = ?, interval_start = ?, interval_end = ?, items_fetched = ?, items_accepted = ?,
			collections_created = ?, memberships_added = ?, duplicates_skipped = ?,
			error = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		string(run.Status()), start, end, report.ItemsFetched, report.ItemsAccepted,
		report.CollectionsCreated, report.MembershipsAdded, report.DuplicatesSkipped,
		run.ErrorMessage(), nullTime(report.FinishedAt), now, run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: sync run %s not found or already deleted", shared.ErrRecordNotFound, run.ID())
	}

	if _, err := tx.Exec(`DELETE FROM sync_failures WHERE run_id = ?`, run.ID()); err != nil {
		return fmt.Errorf("failed to clear sync failures: %w", err)
	}
	if err := insertFailures(tx, run.ID(), report.Failures); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE sync_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: sync run %s not found or already deleted", shared.ErrRecordNotFound, id)
	}

	return nil
}

// List retrieves runs newest first, excluding soft-deleted runs.
//
// Supported criteria: "status" (string) and "limit" (int). Failures are not loaded.
func (r *RunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}
