package models

import (
	"errors"
	"strings"
	"time"
)

var _ Model = Author{}

// Author is the owner of a run of stories.
type Author struct {
	id          string
	handle      string
	displayName string
	avatarURL   string
	createdAt   time.Time
}

// NewAuthor constructs an Author. An empty display name falls back to the handle.
func NewAuthor(id, handle, displayName, avatarURL string) Author {
	if strings.TrimSpace(displayName) == "" {
		displayName = handle
	}
	return Author{
		id:          id,
		handle:      handle,
		displayName: displayName,
		avatarURL:   avatarURL,
		createdAt:   time.Now().UTC(),
	}
}

func (a Author) ID() string           { return a.id }
func (a Author) Handle() string       { return a.handle }
func (a Author) DisplayName() string  { return a.displayName }
func (a Author) AvatarURL() string    { return a.avatarURL }
func (a Author) CreatedAt() time.Time { return a.createdAt }

// WithID returns a copy of a carrying id.
func (a Author) WithID(id string) Author {
	a.id = id
	return a
}

// WithCreatedAt returns a copy of a carrying t.
func (a Author) WithCreatedAt(t time.Time) Author {
	a.createdAt = t
	return a
}

// Validate checks that the author can be stored.
func (a Author) Validate() error {
	if strings.TrimSpace(a.handle) == "" {
		return errors.New("author handle is required")
	}
	return nil
}
