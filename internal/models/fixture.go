package models

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DefaultTTL is the lifetime of an imported story that does not carry its own expiry.
const DefaultTTL = 24 * time.Hour

// Fixture is the JSON document describing a feed snapshot.
type Fixture struct {
	Authors []FixtureAuthor `json:"authors"`
	Items   []FixtureItem   `json:"items"`
}

// FixtureAuthor describes an author in a [Fixture].
type FixtureAuthor struct {
	ID          string `json:"id,omitempty"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// FixtureItem describes a story in a [Fixture]. Author matches a [FixtureAuthor] by ID or handle.
type FixtureItem struct {
	ID         string    `json:"id,omitempty"`
	Author     string    `json:"author"`
	Kind       string    `json:"kind"`
	URL        string    `json:"url"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
}

// ParseFixture decodes a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// LoadFixture reads and decodes the fixture at path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

// Expiry returns the item's explicit expiry, or CreatedAt + [DefaultTTL].
func (i FixtureItem) Expiry() time.Time {
	if !i.ExpiresAt.IsZero() {
		return i.ExpiresAt
	}
	return i.CreatedAt.Add(DefaultTTL)
}
