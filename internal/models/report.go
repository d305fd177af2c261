package models

import (
	"sort"
	"time"
)

// Mutation operations recorded in a [MutationFailure].
const (
	OpLookup  = "lookup"
	OpCreate  = "create"
	OpMembers = "members"
	OpAppend  = "append"
)

// Filters is the caller's selection for one run.
type Filters struct {
	Length LengthBand `json:"length"`
	Scope  string     `json:"scope,omitempty"`
}

// MutationFailure records one bucket- or item-scoped failure that did not abort the run.
type MutationFailure struct {
	Collection string `json:"collection"`
	ItemID     string `json:"item_id,omitempty"`
	Op         string `json:"op"`
	Message    string `json:"message"`
}

// BucketReport summarizes the work done for one month.
type BucketReport struct {
	Name              string   `json:"name"`
	Items             int      `json:"items"`
	Created           bool     `json:"created"`
	MembershipsAdded  int      `json:"memberships_added"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	Failed            bool     `json:"failed,omitempty"`
	Added             []string `json:"added,omitempty"` // titles added, or that would be added in a dry run
}

// RunReport is the result of one synchronization run.
type RunReport struct {
	ID                 string            `json:"id"`
	StartedAt          time.Time         `json:"started_at"`
	FinishedAt         time.Time         `json:"finished_at"`
	Filters            Filters           `json:"filters"`
	Interval           *DateInterval     `json:"interval,omitempty"`
	DryRun             bool              `json:"dry_run"`
	ItemsFetched       int               `json:"items_fetched"`
	ItemsAccepted      int               `json:"items_accepted"`
	CollectionsCreated int               `json:"collections_created"`
	MembershipsAdded   int               `json:"memberships_added"`
	DuplicatesSkipped  int               `json:"duplicates_skipped"`
	Failures           []MutationFailure `json:"failures,omitempty"`
	Buckets            []BucketReport    `json:"buckets,omitempty"`
}

// NewRunReport starts an empty report.
func NewRunReport(id string, filters Filters, startedAt time.Time) *RunReport {
	return &RunReport{ID: id, Filters: filters, StartedAt: startedAt.UTC()}
}

// Fail records a failure against collection. itemID is empty for bucket-scoped failures.
func (r *RunReport) Fail(collection, itemID, op string, err error) {
	r.Failures = append(r.Failures, MutationFailure{
		Collection: collection,
		ItemID:     itemID,
		Op:         op,
		Message:    err.Error(),
	})
}

// HasFailures reports whether any mutation failed.
func (r *RunReport) HasFailures() bool {
	return len(r.Failures) > 0
}

// SortBuckets orders the bucket summaries by name, which is chronological for YYYY-MM.
func (r *RunReport) SortBuckets() {
	sort.Slice(r.Buckets, func(i, j int) bool { return r.Buckets[i].Name < r.Buckets[j].Name })
}
