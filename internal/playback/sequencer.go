package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/shared"
)

// DefaultImageDuration is the display duration for images and for videos whose duration is unknown.
const DefaultImageDuration = 5 * time.Second

// Options configures a [Sequencer].
type Options struct {
	Clock         Clock         // Tick source; defaults to a [TickerClock] at [DefaultResolution]
	ImageDuration time.Duration // Defaults to [DefaultImageDuration]
	Builder       *GroupBuilder // Used by [Sequencer.Open]; defaults to the zero-value builder
	Logger        *log.Logger   // Defaults to a discarding logger
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Sequencer is the playback state machine. It is the sole owner of the playback position;
// surfaces observe it through [Snapshot] values and drive it through its command methods.
//
// All methods are safe for concurrent use.
type Sequencer struct {
	clock         Clock
	imageDuration time.Duration
	builder       *GroupBuilder
	logger        *log.Logger

	mu     sync.Mutex
	groups []models.AuthorGroup
	status Status
	pos    position
	lease  uint64

	subs     []subscriber
	nextSub  int
	pending  []Snapshot
	draining bool
}

// NewSequencer creates an idle Sequencer.
func NewSequencer(opts Options) *Sequencer {
	if opts.Clock == nil {
		opts.Clock = NewTickerClock(DefaultResolution)
	}
	if opts.ImageDuration <= 0 {
		opts.ImageDuration = DefaultImageDuration
	}
	if opts.Builder == nil {
		opts.Builder = NewGroupBuilder()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Sequencer{
		clock:         opts.Clock,
		imageDuration: opts.ImageDuration,
		builder:       opts.Builder,
		logger:        opts.Logger,
	}
}

// Open groups items and starts a session at the given author and item.
//
// Empty IDs start at the first author or the author's first item. An ID that does not resolve
// clamps the start to (0, 0).
func (s *Sequencer) Open(items []models.MediaItem, startAuthorID, startItemID string) BuildReport {
	groups, report := s.builder.Build(items)
	authorIndex, itemIndex := Locate(groups, startAuthorID, startItemID)

	if n := len(report.Dropped); n > 0 {
		s.logger.Warn("dropped items while grouping", "dropped", n, "groups", report.Groups)
	}

	s.OpenGroups(groups, authorIndex, itemIndex)
	return report
}

// OpenGroups starts a new session over groups, replacing any current one.
//
// Empty groups close the session immediately. Out-of-range start indices clamp to (0, 0).
func (s *Sequencer) OpenGroups(groups []models.AuthorGroup, authorIndex, itemIndex int) {
	s.mu.Lock()

	s.clock.Cancel()
	s.lease++
	s.groups = groups
	s.pos = position{epoch: s.pos.epoch + 1}

	if len(groups) == 0 {
		s.status = StatusClosed
		s.pos.closed = true
		s.logger.Debug("opened empty session", "epoch", s.pos.epoch)
		s.enqueueLocked()
		s.mu.Unlock()
		s.drain()
		return
	}

	if !s.inBoundsLocked(authorIndex, itemIndex) {
		authorIndex, itemIndex = 0, 0
	}

	s.pos.authorIndex = authorIndex
	s.pos.itemIndex = itemIndex
	s.status = StatusPlaying
	s.armLocked()

	s.logger.Debug("opened session", "epoch", s.pos.epoch, "groups", len(groups), "author", authorIndex, "item", itemIndex)
	s.enqueueLocked()
	s.mu.Unlock()
	s.drain()
}

// Next advances to the following item, or closes the session after the last one.
func (s *Sequencer) Next() {
	s.mutate(func() bool {
		if !s.activeLocked() {
			return false
		}
		s.advanceLocked()
		return true
	})
}

// Prev steps back one item, crossing into the previous author's last item when needed.
// At the very first item it does nothing.
func (s *Sequencer) Prev() {
	s.mutate(func() bool {
		if !s.activeLocked() {
			return false
		}

		g, i := s.pos.authorIndex, s.pos.itemIndex
		switch {
		case i > 0:
			s.moveLocked(g, i-1)
		case g > 0:
			s.moveLocked(g-1, s.groups[g-1].Last())
		default:
			return false
		}
		return true
	})
}

// Pause suspends the clock, keeping progress on the current item.
func (s *Sequencer) Pause() {
	s.mutate(func() bool {
		if s.status != StatusPlaying {
			return false
		}
		s.clock.Suspend()
		s.lease++
		s.status = StatusPaused
		s.pos.paused = true
		s.logger.Debug("paused", "elapsed", s.pos.elapsed)
		return true
	})
}

// Resume re-arms the clock from the current progress.
func (s *Sequencer) Resume() {
	s.mutate(func() bool {
		if s.status != StatusPaused {
			return false
		}
		s.status = StatusPlaying
		s.pos.paused = false
		s.rearmLocked()
		s.logger.Debug("resumed", "elapsed", s.pos.elapsed)
		return true
	})
}

// TogglePause pauses a playing session and resumes a paused one.
func (s *Sequencer) TogglePause() {
	s.mutate(func() bool {
		switch s.status {
		case StatusPlaying:
			s.clock.Suspend()
			s.lease++
			s.status = StatusPaused
			s.pos.paused = true
		case StatusPaused:
			s.status = StatusPlaying
			s.pos.paused = false
			s.rearmLocked()
		default:
			return false
		}
		return true
	})
}

// JumpTo seeks to an explicit position, keeping the paused flag.
//
// An out-of-range position returns an error wrapping [shared.ErrInvalidArgument] and leaves the
// state unchanged. Outside an active session it does nothing.
func (s *Sequencer) JumpTo(authorIndex, itemIndex int) error {
	var err error
	s.mutate(func() bool {
		if !s.activeLocked() {
			return false
		}
		if !s.inBoundsLocked(authorIndex, itemIndex) {
			err = fmt.Errorf("%w: position (%d, %d) is outside the session", shared.ErrInvalidArgument, authorIndex, itemIndex)
			return false
		}
		s.moveLocked(authorIndex, itemIndex)
		return true
	})
	return err
}

// JumpToAuthor seeks to the first item of the author with the given ID.
func (s *Sequencer) JumpToAuthor(authorID string) error {
	var err error
	s.mutate(func() bool {
		if !s.activeLocked() {
			return false
		}
		for g, group := range s.groups {
			if group.Author.ID() == authorID {
				s.moveLocked(g, 0)
				return true
			}
		}
		err = fmt.Errorf("%w: author %q is not in the session", shared.ErrInvalidArgument, authorID)
		return false
	})
	return err
}

// Close stops the clock and ends the session. Safe to call repeatedly.
func (s *Sequencer) Close() {
	s.mutate(func() bool {
		if s.status == StatusClosed {
			return false
		}
		s.closeLocked("closed")
		return true
	})
}

// ReportDuration substitutes d for the active item's duration for the rest of its playback.
// Reports for any other item, or non-positive durations, are ignored.
func (s *Sequencer) ReportDuration(itemID string, d time.Duration) {
	s.mutate(func() bool {
		if !s.activeLocked() || d <= 0 || s.currentLocked().ID() != itemID {
			return false
		}
		s.pos.override = d
		s.logger.Debug("duration reported", "item", itemID, "duration", d)
		if s.pos.elapsed >= d {
			s.advanceLocked()
		}
		return true
	})
}

// Subscribe registers cb for every state change and returns a function that removes it.
//
// Callbacks run in notification order on whichever goroutine is draining the queue, outside the
// Sequencer's lock. They may call back into the Sequencer but must not block.
func (s *Sequencer) Subscribe(cb func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: cb})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Snapshot returns the current state.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status returns the lifecycle state.
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Groups returns the session's groups. The slice must not be modified.
func (s *Sequencer) Groups() []models.AuthorGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups
}

// Current returns the item on screen and false when no session is active.
func (s *Sequencer) Current() (models.MediaItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activeLocked() {
		return models.MediaItem{}, false
	}
	return s.currentLocked(), true
}

// tick applies one clock period. Ticks from another epoch or lease, or outside Playing, are dropped.
func (s *Sequencer) tick(delta time.Duration, epoch, lease uint64) {
	s.mutate(func() bool {
		if s.status != StatusPlaying || epoch != s.pos.epoch || lease != s.lease {
			return false
		}
		s.pos.elapsed += delta
		if s.pos.elapsed >= s.durationLocked() {
			s.advanceLocked()
		}
		return true
	})
}

// mutate runs fn under the lock and publishes a snapshot when fn reports a change.
func (s *Sequencer) mutate(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	if changed {
		s.enqueueLocked()
	}
	s.mu.Unlock()

	if changed {
		s.drain()
	}
}

func (s *Sequencer) advanceLocked() {
	g, i := s.pos.authorIndex, s.pos.itemIndex
	switch {
	case i+1 < len(s.groups[g].Items):
		s.moveLocked(g, i+1)
	case g+1 < len(s.groups):
		s.moveLocked(g+1, 0)
	default:
		s.closeLocked("finished")
	}
}

// moveLocked repositions the session and, while playing, re-arms the clock for the new item.
func (s *Sequencer) moveLocked(g, i int) {
	s.pos.authorIndex = g
	s.pos.itemIndex = i
	s.pos.elapsed = 0
	s.pos.override = 0
	if s.status == StatusPlaying {
		s.armLocked()
	} else {
		// the new item starts from a fresh period on resume
		s.clock.Cancel()
	}
	s.logger.Debug("moved", "author", g, "item", i, "epoch", s.pos.epoch)
}

// armLocked cancels the current timer and arms a new one bound to the current epoch and a fresh lease.
func (s *Sequencer) armLocked() {
	s.clock.Cancel()
	s.rearmLocked()
}

// rearmLocked arms the clock under a fresh lease without cancelling it first, so a suspended clock
// keeps its phase.
func (s *Sequencer) rearmLocked() {
	s.lease++
	epoch, lease := s.pos.epoch, s.lease
	s.clock.Arm(func(delta time.Duration) {
		s.tick(delta, epoch, lease)
	})
}

func (s *Sequencer) closeLocked(reason string) {
	s.clock.Cancel()
	s.lease++
	s.status = StatusClosed
	s.pos.closed = true
	s.pos.paused = false
	s.pos.elapsed = 0
	s.pos.override = 0
	s.pos.epoch++
	s.logger.Debug("session closed", "reason", reason, "epoch", s.pos.epoch)
}

func (s *Sequencer) activeLocked() bool {
	return s.status == StatusPlaying || s.status == StatusPaused
}

func (s *Sequencer) inBoundsLocked(g, i int) bool {
	return g >= 0 && g < len(s.groups) && i >= 0 && i < len(s.groups[g].Items)
}

func (s *Sequencer) currentLocked() models.MediaItem {
	return s.groups[s.pos.authorIndex].Items[s.pos.itemIndex]
}

// durationLocked resolves the active item's duration: a reported duration wins, then a video's own
// duration. Images always play for the image duration.
func (s *Sequencer) durationLocked() time.Duration {
	if s.pos.override > 0 {
		return s.pos.override
	}
	item := s.currentLocked()
	if d := item.Duration(); item.Kind() == models.KindVideo && d > 0 {
		return d
	}
	return s.imageDuration
}

func (s *Sequencer) snapshotLocked() Snapshot {
	snap := Snapshot{
		AuthorIndex: s.pos.authorIndex,
		ItemIndex:   s.pos.itemIndex,
		Paused:      s.pos.paused,
		Closed:      s.pos.closed,
		Status:      s.status,
		AuthorCount: len(s.groups),
	}

	if s.inBoundsLocked(s.pos.authorIndex, s.pos.itemIndex) {
		group := s.groups[s.pos.authorIndex]
		item := group.Items[s.pos.itemIndex]
		snap.AuthorID = group.Author.ID()
		snap.ItemID = item.ID()
		snap.Kind = item.Kind()
		snap.ItemCount = len(group.Items)
		if s.activeLocked() {
			snap.ElapsedRatio = float64(s.pos.elapsed) / float64(s.durationLocked())
		}
	}

	return snap
}

func (s *Sequencer) enqueueLocked() {
	s.pending = append(s.pending, s.snapshotLocked())
}

// drain delivers queued snapshots in order. Only one goroutine drains at a time; snapshots
// enqueued meanwhile (including by subscriber callbacks) are picked up by the active drainer.
// A panicking callback releases the drainer role so later changes are still delivered.
func (s *Sequencer) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	finished := false
	defer func() {
		if !finished {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.pending = nil
			s.draining = false
			finished = true
			s.mu.Unlock()
			return
		}
		snap := s.pending[0]
		s.pending = s.pending[1:]
		subs := append([]subscriber(nil), s.subs...)
		s.mu.Unlock()

		for _, sub := range subs {
			sub.fn(snap)
		}
	}
}

// Locate resolves start IDs to indices, clamping to (0, 0) when either does not resolve.
func Locate(groups []models.AuthorGroup, authorID, itemID string) (int, int) {
	if authorID == "" && itemID == "" {
		return 0, 0
	}

	for g, group := range groups {
		if authorID != "" && group.Author.ID() != authorID {
			continue
		}
		if itemID == "" {
			return g, 0
		}
		for i, item := range group.Items {
			if item.ID() == itemID {
				return g, i
			}
		}
		if authorID != "" {
			return 0, 0
		}
	}

	return 0, 0
}
