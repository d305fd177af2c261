// Package tasks files an activity stream into monthly collections.
//
// # Core Operation
//
// [SyncEngine.Run] is a strictly sequential pipeline:
//
//  1. Resolve the scope token with [scope.Resolve] (no remote calls on failure)
//  2. Fetch the whole stream from a [services.StreamSource]
//  3. Keep items passing [MatchesLength] and [MatchesScope]
//  4. Group them by calendar month, oldest month first
//  5. For each month find or create the collection named YYYY-MM and read its members
//  6. Append only the items not already present
//
// Creation and append are both conditional on remote state read just before the mutation,
// so repeating a run with the same inputs adds nothing.
//
// # Failures
//
// Lookup, create and member-read failures skip the month. Append failures skip the item.
// Both are recorded in [models.RunReport.Failures] and never abort the run.
// Fetch failures wrap [shared.ErrFetchFailed] and are returned before anything is mutated.
//
// # Implementation
//
// [Synchronizer] writes no logs and has no other output channel than the returned report.
package tasks
