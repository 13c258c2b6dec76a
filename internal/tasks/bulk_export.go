package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/storyx/internal/formatter"
	"github.com/desertthunder/storyx/internal/models"
)

// BulkExportOpts contains configuration for per-author exports.
type BulkExportOpts struct {
	Format          string    // Export format: json, csv, markdown, txt
	OutputDir       string    // Base output directory (default: stories_export_{epoch})
	NumWorkers      int       // Concurrent workers (default: 4, max 8)
	DownloadAvatars bool      // Markdown only: fetch avatars next to each README
	Now             time.Time // Reference time for relative expiries (default: time.Now)
}

// GroupExportResult is the outcome of exporting one author group.
type GroupExportResult struct {
	AuthorID string   `json:"author_id"`
	Handle   string   `json:"handle"`
	Success  bool     `json:"success"`
	Files    []string `json:"files,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export and is written as the export manifest.
type BulkExportResult struct {
	Format            string              `json:"format"`
	TotalGroups       int                 `json:"total_groups"`
	SuccessfulExports int                 `json:"successful_exports"`
	FailedExports     int                 `json:"failed_exports"`
	OutputDirectory   string              `json:"output_directory"`
	ManifestPath      string              `json:"-"`
	Results           []GroupExportResult `json:"results"`
}

type groupExportJob struct {
	step  int
	group models.AuthorGroup
}

// BulkExport writes one export per author group concurrently, then writes a manifest summarizing
// the results. Individual failures are recorded in the manifest and do not stop the export.
func BulkExport(ctx context.Context, groups []models.AuthorGroup, opts BulkExportOpts, prog chan<- ProgressUpdate) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = "json"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("stories_export_%d", opts.Now.Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalGroups:     len(groups),
		OutputDirectory: opts.OutputDir,
		Results:         make([]GroupExportResult, 0, len(groups)),
	}

	jobs := make(chan groupExportJob, len(groups))
	results := make(chan GroupExportResult, len(groups))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts, len(groups), prog)
	}

	for i, g := range groups {
		jobs <- groupExportJob{step: i + 1, group: g}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(groups), res.Handle, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(groups), res.Handle, fmt.Errorf("%s", res.Error)))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker exports groups from the jobs channel until it is drained or ctx is done.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan groupExportJob,
	results chan<- GroupExportResult,
	opts BulkExportOpts,
	total int,
	prog chan<- ProgressUpdate,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sendProgress(prog, exportingGroupUpdate(job.step, total, job.group.Author.Handle()))
		results <- exportGroup(job.group, opts)
	}
}

// exportGroup writes a single author group in the configured format.
func exportGroup(g models.AuthorGroup, opts BulkExportOpts) GroupExportResult {
	result := GroupExportResult{
		AuthorID: g.Author.ID(),
		Handle:   g.Author.Handle(),
		Files:    []string{},
	}

	base := filepath.Join(opts.OutputDir, g.Author.ID())

	switch opts.Format {
	case "csv":
		csvRes, err := formatter.WriteCSVExport(g, base, opts.Now)
		if err != nil {
			result.Error = fmt.Sprintf("CSV export failed: %v", err)
			return result
		}
		result.Files = []string{csvRes.ItemsFile, csvRes.MetadataFile}

	case "markdown":
		mdRes, err := formatter.WriteMarkdownExport(g, base, opts.DownloadAvatars, opts.Now)
		if err != nil {
			result.Error = fmt.Sprintf("markdown export failed: %v", err)
			return result
		}
		result.Files = mdRes.Files

	case "txt":
		path, err := formatter.WriteTextExport(g, base+"_items.txt", opts.Now)
		if err != nil {
			result.Error = fmt.Sprintf("text export failed: %v", err)
			return result
		}
		result.Files = []string{path}

	default:
		path, err := formatter.WriteJSONExport(g, base+".json", opts.Now)
		if err != nil {
			result.Error = fmt.Sprintf("JSON export failed: %v", err)
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}
