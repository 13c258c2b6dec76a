// Package playback sequences ephemeral stories: which item is on screen, when it auto-advances,
// and how that timer reconciles with navigation, pause/resume and teardown.
//
// # Components
//
//  1. [GroupBuilder] : flat, time-ordered items → ordered [models.AuthorGroup] runs
//     - preserves first-seen author order and each author's item order
//     - drops items without a known author (or expired ones) and lists them in a [BuildReport]
//
//  2. [Clock] : a periodic tick source with a fixed resolution
//     - [TickerClock] runs on a [time.Ticker]
//     - [ManualClock] fires ticks on demand for tests and replays
//
//  3. [Sequencer] : the state machine (Idle → Playing ⇄ Paused → Closed)
//     - consumes ticks and commands (Next, Prev, Pause, Resume, JumpTo, Close)
//     - owns the playback state and publishes read-only [Snapshot] values to subscribers
//
// # Timer discipline
//
// The Sequencer arms its Clock through cancel-then-arm pairs, except when resuming a suspended
// Clock. Every arm is tagged with the session epoch and an arm lease; a tick carrying either a stale
// epoch or a superseded lease is dropped. Pause suspends the timer rather than ignoring ticks: the
// Clock keeps its position within the current period, and resuming never produces a burst.
//
// # Concurrency
//
// All state mutation is serialized by a single mutex. Snapshots are queued under the lock and
// delivered in order outside it, so a subscriber may issue commands back to the Sequencer.
package playback
