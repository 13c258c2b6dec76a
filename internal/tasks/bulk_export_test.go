package tasks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/storyx/internal/models"
	tu "github.com/desertthunder/storyx/internal/testing"
)

func exportGroups() []models.AuthorGroup {
	expires := created.Add(models.DefaultTTL)
	return []models.AuthorGroup{
		{
			Author: models.NewAuthor("a-1", "alice", "Alice", ""),
			Items: []models.MediaItem{
				models.NewMediaItem("s-1", "a-1", models.KindImage, "u1", 0, created, expires),
				models.NewMediaItem("s-2", "a-1", models.KindVideo, "u2", 8*time.Second, created, expires),
			},
		},
		{
			Author: models.NewAuthor("b-1", "bob", "", ""),
			Items:  []models.MediaItem{models.NewMediaItem("s-3", "b-1", models.KindImage, "u3", 0, created, expires)},
		},
		{
			Author: models.NewAuthor("c-1", "carol", "", ""),
			Items:  []models.MediaItem{models.NewMediaItem("s-4", "c-1", models.KindImage, "u4", 0, created, expires)},
		},
	}
}

func TestBulkExport(t *testing.T) {
	tc := []struct {
		format    string
		wantFiles int // per group
	}{
		{format: "json", wantFiles: 1},
		{format: "csv", wantFiles: 2},
		{format: "markdown", wantFiles: 1},
		{format: "txt", wantFiles: 1},
	}

	for _, tt := range tc {
		t.Run(tt.format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			progress := make(chan ProgressUpdate, 100)

			result, err := BulkExport(context.Background(), exportGroups(), BulkExportOpts{
				Format:     tt.format,
				OutputDir:  dir,
				NumWorkers: 2,
				Now:        created,
			}, progress)
			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}

			if result.TotalGroups != 3 || result.SuccessfulExports != 3 || result.FailedExports != 0 {
				t.Errorf("unexpected result: %+v", result)
			}
			for _, res := range result.Results {
				if len(res.Files) != tt.wantFiles {
					t.Errorf("@%s: expected %d files, got %v", res.Handle, tt.wantFiles, res.Files)
				}
				for _, f := range res.Files {
					tu.AssertFileExists(t, f)
				}
			}

			var manifest BulkExportResult
			if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
				t.Fatalf("invalid manifest: %v", err)
			}
			if manifest.Format != tt.format || len(manifest.Results) != 3 {
				t.Errorf("unexpected manifest: %+v", manifest)
			}

			if len(drain(progress)) < 3 {
				t.Error("expected per-group progress updates")
			}
		})
	}

	t.Run("defaults", func(t *testing.T) {
		wd := tu.MustGetwd(t)
		tu.MustChdir(t, t.TempDir())
		defer tu.MustChdir(t, wd)

		result, err := BulkExport(context.Background(), exportGroups()[:1], BulkExportOpts{NumWorkers: 50, Now: created}, nil)
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.Format != "json" {
			t.Errorf("expected json default, got %s", result.Format)
		}
		tu.AssertDirExists(t, result.OutputDirectory)
	})

	t.Run("unwritable output directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := BulkExport(context.Background(), exportGroups(), BulkExportOpts{OutputDir: filepath.Join(file, "out")}, nil); err == nil {
			t.Error("expected error creating output under a file")
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := BulkExport(ctx, exportGroups(), BulkExportOpts{OutputDir: t.TempDir(), Now: created}, nil)
		if err == nil {
			t.Error("expected context error")
		}
	})
}
