package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a persisted [SyncRun].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// SyncRun is the persisted history entry for one organize invocation.
type SyncRun struct {
	id        string
	sequence  int
	status    RunStatus
	errorMsg  string
	report    *RunReport
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewSyncRun wraps report in a running history entry.
func NewSyncRun(sequence int, report *RunReport) *SyncRun {
	now := time.Now().UTC()
	if report == nil {
		report = &RunReport{StartedAt: now}
	}
	return &SyncRun{
		id:        report.ID,
		sequence:  sequence,
		status:    RunRunning,
		report:    report,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *SyncRun) ID() string { return r.id }
func (r *SyncRun) Sequence() int { return r.sequence }
func (r *SyncRun) Status() RunStatus { return r.status }
func (r *SyncRun) ErrorMessage() string { return r.errorMsg }
func (r *SyncRun) Report() *RunReport { return r.report }
func (r *SyncRun) CreatedAt() time.Time { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time { return r.updatedAt }
func (r *SyncRun) DeletedAt() *time.Time { return r.deletedAt }
func (r *SyncRun) SetSequence(seq int) { r.sequence = seq }
func (r *SyncRun) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *SyncRun) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *SyncRun) SetDeletedAt(t *time.Time) { r.deletedAt = t }

// SetID updates the run and its report identifiers.
func (r *SyncRun) SetID(id string) {
	r.id = id
	r.report.ID = id
}

// Complete marks the run finished with report as its result.
func (r *SyncRun) Complete(report *RunReport) {
	if report != nil {
		report.ID = r.id
		r.report = report
	}
	r.status = RunCompleted
	r.errorMsg = ""
}

// Fail marks the run as aborted by err.
func (r *SyncRun) Fail(err error) {
	r.status = RunFailed
	if err != nil {
		r.errorMsg = err.Error()
	}
	if r.report.FinishedAt.IsZero() {
		r.report.FinishedAt = time.Now().UTC()
	}
}

// SetStatus restores persisted state.
func (r *SyncRun) SetStatus(status RunStatus, errorMsg string) {
	r.status = status
	r.errorMsg = errorMsg
}

// Validate checks the run has an identifier and a known status.
func (r *SyncRun) Validate() error {
	if r.id == "" {
		return fmt.Errorf("sync run id is required")
	}
	switch r.status {
	case RunRunning, RunCompleted, RunFailed:
	default:
		return fmt.Errorf("unknown sync run status %q", r.status)
	}
	if r.report.StartedAt.IsZero() {
		return fmt.Errorf("sync run start time is required")
	}
	return nil
}
