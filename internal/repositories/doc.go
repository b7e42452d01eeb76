// Package repositories implements SQLite persistence for processing history.
//
// Only metadata is stored: the input URL, playlist name, counts and the reported track list.
// Records are soft deleted via deleted_at timestamps and excluded from queries by default.
//
// Key Implementations:
//   - [SessionRepository] : finished sessions and their tracks
//   - [SessionRecorderAdapter] : records a controller's terminal snapshots through a [SessionRepository]
//
// Sequence numbers provide stable, human-readable ordering (e.g. session #42) independent of UUIDs.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
