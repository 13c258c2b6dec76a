// package tasks implements feed snapshot operations.
//
// The core abstraction is FeedEngine, which imports snapshots into storage, loads the playable
// snapshot back out, and prunes expired stories.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/playback"
	"github.com/desertthunder/storyx/internal/services"
	"github.com/desertthunder/storyx/internal/shared"
)

// SkippedItem records a fixture item that could not be imported.
type SkippedItem struct {
	Index  int    `json:"index"` // Position in the fixture's item list
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult contains the outcome of importing one feed snapshot.
type ImportResult struct {
	Source         string        `json:"source"`
	AuthorsCreated int           `json:"authors_created"`
	AuthorsReused  int           `json:"authors_reused"`
	ItemsImported  int           `json:"items_imported"`
	Unattributed   int           `json:"unattributed"` // Imported items whose author could not be resolved
	Skipped        []SkippedItem `json:"skipped,omitempty"`
}

// FeedSnapshot is the stored feed as of a reference time.
type FeedSnapshot struct {
	Authors []models.Author
	Items   []models.MediaItem
	At      time.Time
}

// Groups builds playable author groups. Items of unknown authors are dropped, and expired items are
// dropped when dropExpired is set.
func (s *FeedSnapshot) Groups(dropExpired bool) ([]models.AuthorGroup, playback.BuildReport) {
	opts := []playback.BuilderOption{playback.WithAuthors(s.Authors)}
	if dropExpired {
		opts = append(opts, playback.WithNow(s.At))
	}
	return playback.NewGroupBuilder(opts...).Build(s.Items)
}

// AuthorStore is the author persistence used by [Engine].
type AuthorStore interface {
	Create(author models.Author) (models.Author, error)
	Get(id string) (models.Author, error)
	GetByHandle(handle string) (models.Author, error)
	List(criteria map[string]any) ([]models.Author, error)
}

// ItemStore is the story persistence used by [Engine].
type ItemStore interface {
	Create(item models.MediaItem) (models.MediaItem, error)
	Get(id string) (models.MediaItem, error)
	List(criteria map[string]any) ([]models.MediaItem, error)
	DeleteExpired(now time.Time) (int64, error)
}

// FeedEngine defines operations on the stored feed snapshot.
type FeedEngine interface {
	// Import fetches a snapshot from source and stores its authors and stories.
	Import(ctx context.Context, source services.FeedSource, progress chan<- ProgressUpdate) (*ImportResult, error)

	// Snapshot loads the stored authors and stories. With activeOnly, stories expired at now are excluded.
	Snapshot(now time.Time, activeOnly bool) (*FeedSnapshot, error)

	// Prune deletes stories expired at now.
	Prune(ctx context.Context, now time.Time, progress chan<- ProgressUpdate) (int64, error)
}

var _ FeedEngine = (*Engine)(nil)

// Engine implements FeedEngine on top of the repositories.
type Engine struct {
	authors AuthorStore
	items   ItemStore
	logger  *log.Logger
}

// NewEngine creates a new Engine with the provided stores. A nil logger discards output.
func NewEngine(authors AuthorStore, items ItemStore, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{authors: authors, items: items, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Import fetches a snapshot and stores it.
//
// Authors are matched to stored authors by ID, then handle; unmatched authors are created.
// Items reference authors by fixture ID or handle. Items whose reference resolves to nothing are
// still stored under the raw reference so that grouping reports them as unknown-author drops.
// Items with an ID that is already stored, an unknown kind, or invalid fields are skipped.
func (e *Engine) Import(ctx context.Context, source services.FeedSource, progress chan<- ProgressUpdate) (*ImportResult, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: feed source not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, fetchFeedUpdate(1, 1, source.Name()))

	fixture, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if fixture == nil {
		return nil, fmt.Errorf("%w: %s returned no snapshot", shared.ErrInvalidFeed, source.Name())
	}

	result := &ImportResult{Source: source.Name()}

	refs, err := e.importAuthors(ctx, fixture.Authors, result, progress)
	if err != nil {
		return result, err
	}

	if err := e.importItems(ctx, fixture.Items, refs, result, progress); err != nil {
		return result, err
	}

	e.logger.Info("imported feed",
		"source", result.Source,
		"authors_created", result.AuthorsCreated,
		"authors_reused", result.AuthorsReused,
		"items", result.ItemsImported,
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// importAuthors stores fixture authors and returns a map from every fixture reference (ID and handle)
// to the stored author ID.
func (e *Engine) importAuthors(ctx context.Context, authors []models.FixtureAuthor, result *ImportResult, progress chan<- ProgressUpdate) (map[string]string, error) {
	refs := make(map[string]string, len(authors)*2)
	total := len(authors)

	for i, fa := range authors {
		if err := ctx.Err(); err != nil {
			return refs, err
		}

		handle := strings.TrimPrefix(strings.TrimSpace(fa.Handle), "@")
		sendProgress(progress, importAuthorUpdate(i+1, total, handle))

		stored, found, err := e.findAuthor(fa.ID, handle)
		if err != nil {
			return refs, err
		}

		if found {
			result.AuthorsReused++
		} else {
			stored, err = e.authors.Create(models.NewAuthor(fa.ID, handle, fa.DisplayName, fa.AvatarURL))
			if err != nil {
				return refs, fmt.Errorf("failed to store author @%s: %w", handle, err)
			}
			result.AuthorsCreated++
		}

		if fa.ID != "" {
			refs[fa.ID] = stored.ID()
		}
		refs[handle] = stored.ID()
		refs["@"+handle] = stored.ID()
	}

	return refs, nil
}

func (e *Engine) findAuthor(id, handle string) (models.Author, bool, error) {
	if id != "" {
		a, err := e.authors.Get(id)
		if err == nil {
			return a, true, nil
		}
		if !errors.Is(err, shared.ErrAuthorNotFound) {
			return models.Author{}, false, err
		}
	}

	if handle != "" {
		a, err := e.authors.GetByHandle(handle)
		if err == nil {
			return a, true, nil
		}
		if !errors.Is(err, shared.ErrAuthorNotFound) {
			return models.Author{}, false, err
		}
	}

	return models.Author{}, false, nil
}

// resolveAuthor maps a fixture reference to a stored author ID, falling back to stored authors that
// were imported by an earlier snapshot. Unresolved references are returned unchanged.
func (e *Engine) resolveAuthor(ref string, refs map[string]string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if id, ok := refs[ref]; ok {
		return id, true
	}

	if stored, found, err := e.findAuthor(ref, strings.TrimPrefix(ref, "@")); err == nil && found {
		refs[ref] = stored.ID()
		return stored.ID(), true
	}
	return ref, false
}

func (e *Engine) importItems(ctx context.Context, items []models.FixtureItem, refs map[string]string, result *ImportResult, progress chan<- ProgressUpdate) error {
	total := len(items)

	skip := func(i int, id, reason string) {
		skipped := SkippedItem{Index: i, ID: id, Reason: reason}
		result.Skipped = append(result.Skipped, skipped)
		sendProgress(progress, skippedItemUpdate(i+1, total, skipped))
		e.logger.Warn("skipped story", "index", i, "id", id, "reason", reason)
	}

	for i, fi := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		kind, err := models.ParseMediaKind(fi.Kind)
		if err != nil {
			skip(i, fi.ID, err.Error())
			continue
		}

		if fi.ID != "" {
			if _, err := e.items.Get(fi.ID); err == nil {
				skip(i, fi.ID, "already imported")
				continue
			} else if !errors.Is(err, shared.ErrItemNotFound) {
				return err
			}
		}

		authorID, resolved := e.resolveAuthor(fi.Author, refs)

		item := models.NewMediaItem(fi.ID, authorID, kind, fi.URL, time.Duration(fi.DurationMS)*time.Millisecond, fi.CreatedAt, fi.Expiry())
		if err := item.Validate(); err != nil {
			skip(i, fi.ID, err.Error())
			continue
		}

		stored, err := e.items.Create(item)
		if err != nil {
			return fmt.Errorf("failed to store item %d: %w", i, err)
		}

		if !resolved {
			result.Unattributed++
		}
		result.ItemsImported++
		sendProgress(progress, importItemUpdate(i+1, total, stored.ID()))
	}

	return nil
}

// Snapshot loads the stored feed.
func (e *Engine) Snapshot(now time.Time, activeOnly bool) (*FeedSnapshot, error) {
	authors, err := e.authors.List(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}

	criteria := map[string]any{}
	if activeOnly {
		criteria["active_at"] = now
	}

	items, err := e.items.List(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to load stories: %w", err)
	}

	return &FeedSnapshot{Authors: authors, Items: items, At: now}, nil
}

// Prune deletes expired stories.
func (e *Engine) Prune(ctx context.Context, now time.Time, progress chan<- ProgressUpdate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed, err := e.items.DeleteExpired(now)
	if err != nil {
		return 0, err
	}

	sendProgress(progress, pruneUpdate(removed))
	e.logger.Info("pruned expired stories", "removed", removed)
	return removed, nil
}

// LoadGroups loads the snapshot at now and builds playable groups from it.
func LoadGroups(engine FeedEngine, now time.Time, dropExpired bool, progress chan<- ProgressUpdate) ([]models.AuthorGroup, playback.BuildReport, error) {
	snap, err := engine.Snapshot(now, dropExpired)
	if err != nil {
		return nil, playback.BuildReport{}, err
	}

	groups, report := snap.Groups(dropExpired)
	sendProgress(progress, buildGroupsUpdate(report.Groups, report.Items, len(report.Dropped)))
	return groups, report, nil
}
