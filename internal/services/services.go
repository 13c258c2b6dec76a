package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/shared"
)

// FeedSource provides a feed snapshot to import.
type FeedSource interface {
	// Fetch returns the current snapshot.
	Fetch(ctx context.Context) (*models.Fixture, error)

	// Name identifies the source in logs and progress updates (e.g., a file path or URL).
	Name() string
}

var (
	_ FeedSource = (*FileSource)(nil)
	_ FeedSource = (*FeedClient)(nil)
)

// FileSource reads a snapshot from a JSON fixture on disk.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return s.path }

// Fetch loads the fixture. Cancellation is checked once before reading.
func (s *FileSource) Fetch(ctx context.Context) (*models.Fixture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fixture, err := models.LoadFixture(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidFeed, err)
	}
	return fixture, nil
}
