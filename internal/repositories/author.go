package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/shared"
)

var _ models.Repository[models.Author] = (*AuthorRepository)(nil)

// AuthorRepository implements models.Repository[models.Author].
type AuthorRepository struct {
	db *sql.DB
}

// NewAuthorRepository creates a new AuthorRepository with the given database connection
func NewAuthorRepository(db *sql.DB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

const authorColumns = `id, sequence, handle, display_name, avatar_url, created_at`

// Create inserts author, generating an ID when it has none, and returns the stored copy.
func (r *AuthorRepository) Create(author models.Author) (models.Author, error) {
	if err := author.Validate(); err != nil {
		return models.Author{}, fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "authors")
	if err != nil {
		return models.Author{}, fmt.Errorf("failed to generate sequence: %w", err)
	}

	if author.ID() == "" {
		author = author.WithID(shared.GenerateID())
	}
	if author.CreatedAt().IsZero() {
		author = author.WithCreatedAt(time.Now())
	}
	author = author.WithCreatedAt(author.CreatedAt().UTC())

	query := `
		INSERT INTO authors (id, sequence, handle, display_name, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		author.ID(),
		sequence,
		author.Handle(),
		author.DisplayName(),
		author.AvatarURL(),
		author.CreatedAt(),
		author.CreatedAt(),
	)
	if err != nil {
		return models.Author{}, fmt.Errorf("failed to insert author: %w", err)
	}

	return author, nil
}

// Get retrieves an author by ID
func (r *AuthorRepository) Get(id string) (models.Author, error) {
	query := `SELECT ` + authorColumns + ` FROM authors WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByHandle retrieves an author by handle
func (r *AuthorRepository) GetByHandle(handle string) (models.Author, error) {
	query := `SELECT ` + authorColumns + ` FROM authors WHERE handle = ?`
	return r.scanOne(r.db.QueryRow(query, handle), handle)
}

// Delete removes an author by ID. The author's stories are kept and surface as unknown-author
// drops the next time they are grouped.
func (r *AuthorRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM authors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}
	return checkAffected(result, shared.ErrAuthorNotFound, id)
}

// List retrieves authors in import order. Supported criteria: "handle" (string).
func (r *AuthorRepository) List(criteria map[string]any) ([]models.Author, error) {
	query := `SELECT ` + authorColumns + ` FROM authors WHERE 1 = 1`
	args := []any{}

	if handle, ok := criteria["handle"].(string); ok && handle != "" {
		query += " AND handle = ?"
		args = append(args, handle)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer rows.Close()

	var authors []models.Author
	for rows.Next() {
		author, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return authors, nil
}

func (r *AuthorRepository) scanOne(row *sql.Row, key string) (models.Author, error) {
	author, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Author{}, fmt.Errorf("%w: %s", shared.ErrAuthorNotFound, key)
	}
	return author, err
}

func (r *AuthorRepository) scan(row rowScanner) (models.Author, error) {
	var (
		id          string
		sequence    int
		handle      string
		displayName string
		avatarURL   string
		createdAt   time.Time
	)

	err := row.Scan(&id, &sequence, &handle, &displayName, &avatarURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Author{}, err
	}
	if err != nil {
		return models.Author{}, fmt.Errorf("failed to scan author: %w", err)
	}

	return models.NewAuthor(id, handle, displayName, avatarURL).WithCreatedAt(createdAt.UTC()), nil
}
