package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/shared"
)

var created = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "authors")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "nonexistent"); err == nil {
		t.Error("expected error for missing sequence table")
	}
}

func TestAuthorRepository(t *testing.T) {
	t.Run("Create generates an ID", func(t *testing.T) {
		repo := NewAuthorRepository(setupTestDB(t))

		stored, err := repo.Create(models.NewAuthor("", "alice", "Alice", ""))
		if err != nil {
			t.Fatalf("failed to create author: %v", err)
		}
		if stored.ID() == "" {
			t.Error("author ID should be set after creation")
		}
	})

	t.Run("Create keeps a provided ID", func(t *testing.T) {
		repo := NewAuthorRepository(setupTestDB(t))

		stored, err := repo.Create(models.NewAuthor("a-1", "alice", "", ""))
		if err != nil {
			t.Fatalf("failed to create author: %v", err)
		}
		if stored.ID() != "a-1" {
			t.Errorf("expected ID a-1, got %s", stored.ID())
		}
	})

	t.Run("Create rejects invalid and duplicate authors", func(t *testing.T) {
		repo := NewAuthorRepository(setupTestDB(t))

		if _, err := repo.Create(models.NewAuthor("", "", "", "")); err == nil {
			t.Error("expected validation error for empty handle")
		}

		if _, err := repo.Create(models.NewAuthor("", "alice", "", "")); err != nil {
			t.Fatalf("failed to create author: %v", err)
		}
		if _, err := repo.Create(models.NewAuthor("", "alice", "", "")); err == nil {
			t.Error("expected unique constraint error for duplicate handle")
		}
	})

	t.Run("Get & GetByHandle", func(t *testing.T) {
		repo := NewAuthorRepository(setupTestDB(t))

		stored, err := repo.Create(models.NewAuthor("", "alice", "Alice A.", "https://cdn.example.com/a.png"))
		if err != nil {
			t.Fatalf("failed to create author: %v", err)
		}

		byID, err := repo.Get(stored.ID())
		if err != nil {
			t.Fatalf("failed to get author: %v", err)
		}
		if byID.Handle() != "alice" || byID.DisplayName() != "Alice A." || byID.AvatarURL() != "https://cdn.example.com/a.png" {
			t.Errorf("unexpected author: %+v", byID)
		}

		byHandle, err := repo.GetByHandle("alice")
		if err != nil {
			t.Fatalf("failed to get author by handle: %v", err)
		}
		if byHandle.ID() != stored.ID() {
			t.Errorf("expected ID %s, got %s", stored.ID(), byHandle.ID())
		}

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrAuthorNotFound) {
			t.Errorf("expected ErrAuthorNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewAuthorRepository(setupTestDB(t))

		stored, err := repo.Create(models.NewAuthor("", "alice", "", ""))
		if err != nil {
			t.Fatalf("failed to create author: %v", err)
		}

		if err := repo.Delete(stored.ID()); err != nil {
			t.Fatalf("failed to delete author: %v", err)
		}
		if _, err := repo.Get(stored.ID()); err == nil {
			t.Error("expected error when getting deleted author")
		}
		if err := repo.Delete(stored.ID()); !errors.Is(err, shared.ErrAuthorNotFound) {
			t.Errorf("expected ErrAuthorNotFound on second delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewAuthorRepository(setupTestDB(t))

		for _, handle := range []string{"carol", "alice", "bob"} {
			if _, err := repo.Create(models.NewAuthor("", handle, "", "")); err != nil {
				t.Fatalf("failed to create author: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list authors: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 authors, got %d", len(all))
		}
		if all[0].Handle() != "carol" || all[2].Handle() != "bob" {
			t.Error("expected authors in import order")
		}

		filtered, err := repo.List(map[string]any{"handle": "alice"})
		if err != nil {
			t.Fatalf("failed to list filtered authors: %v", err)
		}
		if len(filtered) != 1 || filtered[0].Handle() != "alice" {
			t.Errorf("expected only alice, got %v", filtered)
		}
	})
}

func TestMediaItemRepository(t *testing.T) {
	newItem := func(author string, kind models.MediaKind, d time.Duration, expires time.Time) models.MediaItem {
		return models.NewMediaItem("", author, kind, "https://cdn.example.com/x", d, created, expires)
	}

	t.Run("Create & Get", func(t *testing.T) {
		repo := NewMediaItemRepository(setupTestDB(t))

		stored, err := repo.Create(newItem("a-1", models.KindVideo, 7500*time.Millisecond, created.Add(time.Hour)))
		if err != nil {
			t.Fatalf("failed to create item: %v", err)
		}
		if stored.ID() == "" {
			t.Fatal("item ID should be set after creation")
		}

		got, err := repo.Get(stored.ID())
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}
		if got.Kind() != models.KindVideo || got.AuthorID() != "a-1" {
			t.Errorf("unexpected item: %+v", got)
		}
		if got.Duration() != 7500*time.Millisecond {
			t.Errorf("expected 7.5s, got %v", got.Duration())
		}
		if !got.CreatedAt().Equal(created) || !got.ExpiresAt().Equal(created.Add(time.Hour)) {
			t.Errorf("timestamps did not round trip: %v %v", got.CreatedAt(), got.ExpiresAt())
		}
	})

	t.Run("items without an expiry or author are stored", func(t *testing.T) {
		repo := NewMediaItemRepository(setupTestDB(t))

		stored, err := repo.Create(newItem("", models.KindImage, 0, time.Time{}))
		if err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		got, err := repo.Get(stored.ID())
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}
		if !got.ExpiresAt().IsZero() || got.AuthorID() != "" {
			t.Errorf("unexpected item: %+v", got)
		}
	})

	t.Run("Create rejects invalid items", func(t *testing.T) {
		repo := NewMediaItemRepository(setupTestDB(t))

		if _, err := repo.Create(newItem("a", "gif", 0, time.Time{})); err == nil {
			t.Error("expected validation error for unknown kind")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		repo := NewMediaItemRepository(setupTestDB(t))

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
		if err := repo.Delete("missing"); !errors.Is(err, shared.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("List filters", func(t *testing.T) {
		repo := NewMediaItemRepository(setupTestDB(t))
		now := created.Add(3 * time.Hour)

		fixtures := []models.MediaItem{
			newItem("a", models.KindImage, 0, created.Add(time.Hour)),
			newItem("b", models.KindImage, 0, created.Add(24*time.Hour)),
			newItem("a", models.KindVideo, 0, created.Add(24*time.Hour)),
			newItem("a", models.KindImage, 0, time.Time{}),
			newItem("b", models.KindImage, 0, now),
		}
		for _, item := range fixtures {
			if _, err := repo.Create(item); err != nil {
				t.Fatalf("failed to create item: %v", err)
			}
		}

		tc := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{name: "all", criteria: map[string]any{}, want: 5},
			{name: "author", criteria: map[string]any{"author_id": "a"}, want: 3},
			{name: "active", criteria: map[string]any{"active_at": now}, want: 3},
			{name: "author and active", criteria: map[string]any{"author_id": "a", "active_at": now}, want: 2},
			{name: "ignores wrong types", criteria: map[string]any{"author_id": 1, "active_at": "now"}, want: 5},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				items, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(items) != tt.want {
					t.Errorf("expected %d items, got %d", tt.want, len(items))
				}
			})
		}
	})

	t.Run("List preserves import order", func(t *testing.T) {
		repo := NewMediaItemRepository(setupTestDB(t))

		var ids []string
		for range 4 {
			stored, err := repo.Create(newItem("a", models.KindImage, 0, time.Time{}))
			if err != nil {
				t.Fatalf("failed to create item: %v", err)
			}
			ids = append(ids, stored.ID())
		}

		items, err := repo.List(nil)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for i, item := range items {
			if item.ID() != ids[i] {
				t.Errorf("position %d: expected %s, got %s", i, ids[i], item.ID())
			}
		}
	})

	t.Run("DeleteExpired & Count", func(t *testing.T) {
		repo := NewMediaItemRepository(setupTestDB(t))
		now := created.Add(2 * time.Hour)

		for _, expires := range []time.Time{created.Add(time.Hour), now, created.Add(48 * time.Hour), {}} {
			if _, err := repo.Create(newItem("a", models.KindImage, 0, expires)); err != nil {
				t.Fatalf("failed to create item: %v", err)
			}
		}

		removed, err := repo.DeleteExpired(now)
		if err != nil {
			t.Fatalf("DeleteExpired() error = %v", err)
		}
		if removed != 2 {
			t.Errorf("expected 2 expired items removed, got %d", removed)
		}

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 remaining items, got %d", count)
		}
	})
}
