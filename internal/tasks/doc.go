// Package tasks orchestrates operations on the stored feed snapshot with real-time progress reporting.
//
// # Core Operations
//
// The [FeedEngine] interface defines three operations:
//
//  1. [FeedEngine.Import] : Feed snapshot → SQLite
//     - Fetches a [models.Fixture] from a [services.FeedSource]
//     - Reuses stored authors matched by ID or handle, creates the rest
//     - Stores stories in fixture order, skipping duplicates and malformed entries
//     - Keeps stories whose author cannot be resolved so grouping can report them
//
//  2. [FeedEngine.Snapshot] : Load the stored feed as of a reference time
//     - [FeedSnapshot.Groups] builds the playable author groups
//
//  3. [FeedEngine.Prune] : Delete expired stories
//
// [BulkExport] writes one export file (or directory) per author group using a worker pool and
// records the results in export_manifest.json.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [Engine] implements [FeedEngine] with dependencies on:
//   - [AuthorStore] : repositories.AuthorRepository
//   - [ItemStore] : repositories.MediaItemRepository
package tasks
