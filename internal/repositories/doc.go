// Package repositories implements SQLite persistence for the feed snapshot.
//
// Snapshot entities are immutable, so repositories only insert, read, and delete. Deletes are hard
// deletes; expired stories are removed in bulk by [MediaItemRepository.DeleteExpired].
//
// Key Implementations:
//   - [AuthorRepository] : authors with handle lookups
//   - [MediaItemRepository] : stories with author and expiry filters
//
// Sequence numbers record import order independent of UUIDs and timestamps, and listing queries
// sort by them so the group builder sees items in the order they were imported.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
