package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var _ Model = MediaItem{}

// MediaKind is the type of media a story carries.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// ParseMediaKind parses s case-insensitively. An empty string is an image.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(KindImage):
		return KindImage, nil
	case string(KindVideo):
		return KindVideo, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// MediaItem is a single story. It is immutable once constructed: all fields are read through accessors
// and the With* helpers return copies.
type MediaItem struct {
	id        string
	authorID  string
	kind      MediaKind
	url       string
	duration  time.Duration
	createdAt time.Time
	expiresAt time.Time
}

// NewMediaItem constructs a MediaItem. Timestamps are normalized to UTC.
//
// duration is the default display duration; zero means "use the viewer's image duration".
func NewMediaItem(id, authorID string, kind MediaKind, url string, duration time.Duration, createdAt, expiresAt time.Time) MediaItem {
	return MediaItem{
		id:        id,
		authorID:  authorID,
		kind:      kind,
		url:       url,
		duration:  duration,
		createdAt: createdAt.UTC(),
		expiresAt: expiresAt.UTC(),
	}
}

func (m MediaItem) ID() string              { return m.id }
func (m MediaItem) AuthorID() string        { return m.authorID }
func (m MediaItem) Kind() MediaKind         { return m.kind }
func (m MediaItem) URL() string             { return m.url }
func (m MediaItem) Duration() time.Duration { return m.duration }
func (m MediaItem) CreatedAt() time.Time    { return m.createdAt }
func (m MediaItem) ExpiresAt() time.Time    { return m.expiresAt }

// Expired reports whether the item's expiry is at or before now.
// Items without an expiry never expire.
func (m MediaItem) Expired(now time.Time) bool {
	return !m.expiresAt.IsZero() && !m.expiresAt.After(now)
}

// WithID returns a copy of m carrying id.
func (m MediaItem) WithID(id string) MediaItem {
	m.id = id
	return m
}

// Validate checks that the item can be stored. A missing author is allowed and reported at group build time.
func (m MediaItem) Validate() error {
	if m.kind != KindImage && m.kind != KindVideo {
		return fmt.Errorf("invalid media kind %q", m.kind)
	}
	if m.duration < 0 {
		return errors.New("duration cannot be negative")
	}
	if m.createdAt.IsZero() {
		return errors.New("created_at is required")
	}
	if !m.expiresAt.IsZero() && m.expiresAt.Before(m.createdAt) {
		return errors.New("expires_at is before created_at")
	}
	return nil
}

// AuthorGroup is one author's ordered run of items. Groups produced by the playback group builder are never empty.
type AuthorGroup struct {
	Author Author
	Items  []MediaItem
}

// Last returns the index of the group's last item, or -1 for an empty group.
func (g AuthorGroup) Last() int {
	return len(g.Items) - 1
}
