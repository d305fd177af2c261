// Package repositories implements SQLite persistence for the organize run history.
//
// [RunRepository] implements models.Repository[*models.SyncRun]. Each run stores its report counts in
// sync_runs and its mutation failures in sync_failures. Runs are soft deleted via deleted_at and excluded
// from queries by default; failures are removed with their run on hard delete by a foreign key cascade.
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
