package playback

import (
	"fmt"
	"time"

	"github.com/desertthunder/storyx/internal/models"
)

// Status is the sequencer's lifecycle state.
type Status int

const (
	StatusIdle    Status = iota // Not yet opened
	StatusPlaying               // Clock armed, item advancing
	StatusPaused                // Clock suspended, progress kept
	StatusClosed                // Terminal for the current epoch
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusIdle, StatusPlaying, StatusPaused, StatusClosed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Snapshot is a read-only copy of the playback state handed to presentation surfaces.
type Snapshot struct {
	AuthorIndex  int     `json:"authorIndex"`
	ItemIndex    int     `json:"itemIndex"`
	ElapsedRatio float64 `json:"elapsedRatio"`
	Paused       bool    `json:"paused"`
	Closed       bool    `json:"closed"`

	Status      Status           `json:"status"`
	AuthorID    string           `json:"authorId,omitempty"`
	ItemID      string           `json:"itemId,omitempty"`
	Kind        models.MediaKind `json:"kind,omitempty"`
	ItemCount   int              `json:"itemCount"`
	AuthorCount int              `json:"authorCount"`
}

// position is the mutable playback state owned by a [Sequencer].
type position struct {
	authorIndex int
	itemIndex   int
	elapsed     time.Duration
	override    time.Duration // resolved duration for the active item; zero when unreported
	paused      bool
	closed      bool
	epoch       uint64
}
