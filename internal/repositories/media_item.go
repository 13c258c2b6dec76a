package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/shared"
)

var _ models.Repository[models.MediaItem] = (*MediaItemRepository)(nil)

// MediaItemRepository implements models.Repository[models.MediaItem].
//
// Durations are stored in whole milliseconds and timestamps in UTC. A NULL expiry never expires.
type MediaItemRepository struct {
	db *sql.DB
}

// NewMediaItemRepository creates a new MediaItemRepository with the given database connection
func NewMediaItemRepository(db *sql.DB) *MediaItemRepository {
	return &MediaItemRepository{db: db}
}

const mediaItemColumns = `id, sequence, author_id, kind, url, duration_ms, created_at, expires_at`

// Create inserts item, generating an ID when it has none, and returns the stored copy.
func (r *MediaItemRepository) Create(item models.MediaItem) (models.MediaItem, error) {
	if err := item.Validate(); err != nil {
		return models.MediaItem{}, fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "media_items")
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("failed to generate sequence: %w", err)
	}

	if item.ID() == "" {
		item = item.WithID(shared.GenerateID())
	}

	var expiresAt sql.NullTime
	if !item.ExpiresAt().IsZero() {
		expiresAt = sql.NullTime{Time: item.ExpiresAt(), Valid: true}
	}

	query := `
		INSERT INTO media_items (id, sequence, author_id, kind, url, duration_ms, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		item.ID(),
		sequence,
		item.AuthorID(),
		string(item.Kind()),
		item.URL(),
		item.Duration().Milliseconds(),
		item.CreatedAt(),
		expiresAt,
	)
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("failed to insert media item: %w", err)
	}

	return item, nil
}

// Get retrieves a media item by ID
func (r *MediaItemRepository) Get(id string) (models.MediaItem, error) {
	query := `SELECT ` + mediaItemColumns + ` FROM media_items WHERE id = ?`

	item, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MediaItem{}, fmt.Errorf("%w: %s", shared.ErrItemNotFound, id)
	}
	return item, err
}

// Delete removes a media item by ID
func (r *MediaItemRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM media_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media item: %w", err)
	}
	return checkAffected(result, shared.ErrItemNotFound, id)
}

// List retrieves media items in import order.
//
// Supported criteria:
//   - "author_id" (string): items of one author
//   - "active_at" (time.Time): items not yet expired at that instant
func (r *MediaItemRepository) List(criteria map[string]any) ([]models.MediaItem, error) {
	query := `SELECT ` + mediaItemColumns + ` FROM media_items WHERE 1 = 1`
	args := []any{}

	if authorID, ok := criteria["author_id"].(string); ok && authorID != "" {
		query += " AND author_id = ?"
		args = append(args, authorID)
	}

	if at, ok := criteria["active_at"].(time.Time); ok && !at.IsZero() {
		query += " AND (expires_at IS NULL OR expires_at > ?)"
		args = append(args, at.UTC())
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media items: %w", err)
	}
	defer rows.Close()

	var items []models.MediaItem
	for rows.Next() {
		item, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// DeleteExpired removes every item whose expiry is at or before now and returns how many were removed.
func (r *MediaItemRepository) DeleteExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM media_items WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired media items: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// Count returns the number of stored media items.
func (r *MediaItemRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM media_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count media items: %w", err)
	}
	return n, nil
}

func (r *MediaItemRepository) scan(row rowScanner) (models.MediaItem, error) {
	var (
		id         string
		sequence   int
		authorID   string
		kind       string
		url        string
		durationMS int64
		createdAt  time.Time
		expiresAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &authorID, &kind, &url, &durationMS, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MediaItem{}, err
	}
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("failed to scan media item: %w", err)
	}

	mediaKind, err := models.ParseMediaKind(kind)
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("failed to scan media item %s: %w", id, err)
	}

	var expiry time.Time
	if expiresAt.Valid {
		expiry = expiresAt.Time
	}

	return models.NewMediaItem(id, authorID, mediaKind, url, time.Duration(durationMS)*time.Millisecond, createdAt, expiry), nil
}
