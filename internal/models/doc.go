// Package models defines the domain types shared by the stream organizer.
//
// The package contains two categories of types:
//
// 1. Value types describing one synchronization run
//   - [Item] : one stream entry with duration and creation instant
//   - [DateInterval] : half-open UTC range produced by scope resolution
//   - [LengthBand] : short/medium/long duration selector
//   - [MonthKey] : YYYY-MM bucket key and collection title
//   - [Collection] : remote playlist
//   - [RunReport] : counts, failures and per-bucket summaries of a run
//
// 2. Persistent Entities
//   - [SyncRun] : history entry wrapping a [RunReport]
//
// Persistent entities implement the Model interface providing IDs, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
