// Package models defines the domain entities of the storyx viewer.
//
// The package contains three categories of types:
//
// 1. Immutable snapshot entities, constructed once and only read afterwards
//   - [Author] : the owner of a run of stories
//   - [MediaItem] : a single image or video story with its display duration and expiry
//
// 2. Playback input
//   - [AuthorGroup] : an author with the ordered, non-empty run of items the sequencer plays
//
// 3. Feed fixtures: JSON transfer objects describing a snapshot to import
//   - [Fixture], [FixtureAuthor], [FixtureItem]
//
// Persistent entities implement the [Model] interface, and the [Repository] interface defines
// the data access operations used by the repositories package.
package models
