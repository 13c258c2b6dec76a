package playback

import (
	"strings"
	"time"

	"github.com/desertthunder/storyx/internal/models"
)

// DropReason explains why the builder skipped an item.
type DropReason string

const (
	DropMissingAuthor DropReason = "missing author"
	DropUnknownAuthor DropReason = "unknown author"
	DropExpired       DropReason = "expired"
)

// DroppedItem records a skipped item for diagnostics.
type DroppedItem struct {
	ItemID   string     `json:"itemId"`
	AuthorID string     `json:"authorId,omitempty"`
	Reason   DropReason `json:"reason"`
}

// BuildReport summarizes a [GroupBuilder.Build] call.
type BuildReport struct {
	Groups  int           `json:"groups"`
	Items   int           `json:"items"`
	Dropped []DroppedItem `json:"dropped,omitempty"`
}

// DroppedCount returns the number of skipped items with the given reason.
func (r BuildReport) DroppedCount(reason DropReason) int {
	n := 0
	for _, d := range r.Dropped {
		if d.Reason == reason {
			n++
		}
	}
	return n
}

// GroupBuilder turns a flat item list into per-author groups.
//
// The zero value accepts every non-empty author reference and keeps expired items.
type GroupBuilder struct {
	authors map[string]models.Author
	now     time.Time
}

// BuilderOption configures a [GroupBuilder].
type BuilderOption func(*GroupBuilder)

// WithAuthors restricts grouping to the given authors; items naming any other author are dropped
// as [DropUnknownAuthor]. Groups carry the registered author's details.
func WithAuthors(authors []models.Author) BuilderOption {
	return func(b *GroupBuilder) {
		b.authors = make(map[string]models.Author, len(authors))
		for _, a := range authors {
			b.authors[a.ID()] = a
		}
	}
}

// WithNow drops items that have expired at now.
func WithNow(now time.Time) BuilderOption {
	return func(b *GroupBuilder) {
		b.now = now
	}
}

// NewGroupBuilder creates a GroupBuilder.
func NewGroupBuilder(opts ...BuilderOption) *GroupBuilder {
	b := &GroupBuilder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build groups items by author. Output preserves the order in which authors first appear and the
// relative order of each author's items. Every returned group is non-empty; empty input yields nil.
func (b *GroupBuilder) Build(items []models.MediaItem) ([]models.AuthorGroup, BuildReport) {
	var (
		report BuildReport
		groups []models.AuthorGroup
		index  = make(map[string]int)
	)

	for _, item := range items {
		authorID := strings.TrimSpace(item.AuthorID())
		if reason, ok := b.reject(item, authorID); !ok {
			report.Dropped = append(report.Dropped, DroppedItem{ItemID: item.ID(), AuthorID: authorID, Reason: reason})
			continue
		}

		i, seen := index[authorID]
		if !seen {
			i = len(groups)
			index[authorID] = i
			groups = append(groups, models.AuthorGroup{Author: b.author(authorID)})
		}
		groups[i].Items = append(groups[i].Items, item)
		report.Items++
	}

	report.Groups = len(groups)
	return groups, report
}

func (b *GroupBuilder) reject(item models.MediaItem, authorID string) (DropReason, bool) {
	if authorID == "" {
		return DropMissingAuthor, false
	}
	if b.authors != nil {
		if _, ok := b.authors[authorID]; !ok {
			return DropUnknownAuthor, false
		}
	}
	if !b.now.IsZero() && item.Expired(b.now) {
		return DropExpired, false
	}
	return "", true
}

func (b *GroupBuilder) author(id string) models.Author {
	if a, ok := b.authors[id]; ok {
		return a
	}
	return models.NewAuthor(id, id, "", "")
}

// Build groups items with a zero-value [GroupBuilder].
func Build(items []models.MediaItem) ([]models.AuthorGroup, BuildReport) {
	return (&GroupBuilder{}).Build(items)
}
