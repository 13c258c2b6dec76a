package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/storyx/internal/formatter"
	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/playback"
	"github.com/desertthunder/storyx/internal/services"
	"github.com/desertthunder/storyx/internal/shared"
	"github.com/desertthunder/storyx/internal/tasks"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// feedSource picks the fixture file or the remote proxy.
func (r *Runner) feedSource(cmd *cli.Command) services.FeedSource {
	cfg := r.Config().Feed
	if cmd.Bool("remote") {
		return services.NewFeedClient(cfg.ProxyURL, r.httpClient, cfg.RequestsPerSecond)
	}

	path := cmd.String("file")
	if path == "" {
		path = cfg.FixturePath
	}
	return services.NewFileSource(path)
}

// printProgress writes updates until progress is closed. The returned channel closes once the last
// update is written. Per-item lines are suppressed except for skips and phase completion.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, show bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if !show {
				continue
			}
			switch update.Phase {
			case tasks.FetchFeed:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ImportAuthors, tasks.ImportItems:
				if _, skipped := update.Data.(tasks.SkippedItem); skipped || update.Step == update.Total {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.PruneItems:
				r.writePlain("🧹 %s\n", update.Message)
			case tasks.BuildGroups:
				r.writePlain("📚 %s\n", update.Message)
			case tasks.ExportGroups:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()
	return done
}

// FeedImport imports a snapshot into the database.
func (r *Runner) FeedImport(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	source := r.feedSource(cmd)
	asJSON := cmd.Bool("json")
	r.logger.Info("importing feed", "source", source.Name())

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := r.printProgress(progressCh, !asJSON)
	result, err := engine.Import(ctx, source, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Complete!")
	r.writePlain("Source: %s\n", result.Source)
	r.writePlain("Authors: %d new, %d existing\n", result.AuthorsCreated, result.AuthorsReused)
	r.writePlain("Stories: %d imported, %d skipped\n", result.ItemsImported, len(result.Skipped))
	if result.Unattributed > 0 {
		r.writePlain("Unattributed: %d (stored, but no session will play them)\n", result.Unattributed)
	}
	return nil
}

// FeedFetch downloads the proxy's snapshot and writes it as a fixture.
func (r *Runner) FeedFetch(ctx context.Context, cmd *cli.Command) error {
	cfg := r.Config().Feed
	client := services.NewFeedClient(cfg.ProxyURL, r.httpClient, cfg.RequestsPerSecond)

	r.logger.Info("fetching feed", "source", client.Name())
	fixture, err := client.Fetch(ctx)
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		return r.writeJSON(fixture, true)
	}

	data, err := shared.MarshalJSON(fixture, true)
	if err != nil {
		return fmt.Errorf("failed to marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write fixture: %w", err)
	}

	r.writePlain("✓ Saved %d authors and %d stories to %s\n", len(fixture.Authors), len(fixture.Items), path)
	return nil
}

// FeedList lists stored stories.
func (r *Runner) FeedList(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	now := r.now()
	snap, err := engine.Snapshot(now, !cmd.Bool("all"))
	if err != nil {
		return err
	}

	handles := make(map[string]string, len(snap.Authors))
	for _, a := range snap.Authors {
		handles[a.ID()] = "@" + a.Handle()
	}

	items := snap.Items
	if author := cmd.String("author"); author != "" {
		filtered := items[:0:0]
		for _, item := range items {
			if item.AuthorID() == author {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	if cmd.Bool("json") {
		records := make([]formatter.ItemRecord, 0, len(items))
		for _, item := range items {
			records = append(records, formatter.ToItemRecord(item, now))
		}
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	if len(items) == 0 {
		return r.writePlain("No stories stored.\n")
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		author, ok := handles[item.AuthorID()]
		if !ok {
			author = "? " + item.AuthorID()
		}
		rows = append(rows, []string{
			item.ID(),
			author,
			string(item.Kind()),
			durationLabel(item),
			humanize.RelTime(item.CreatedAt(), now, "ago", "from now"),
			formatter.RelativeExpiry(item, now),
		})
	}

	r.writePlain("%s\n", renderTable(
		[]string{"ID", "Author", "Kind", "Duration", "Posted", "Expires"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	return r.writePlain("%d stories\n", len(items))
}

// FeedGroups shows the groups a session would play right now.
func (r *Runner) FeedGroups(ctx context.Context, cmd *cli.Command) error {
	groups, report, err := r.loadGroups(nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Groups []formatter.GroupRecord `json:"groups"`
			Report playback.BuildReport    `json:"report"`
		}{formatter.ToRecords(groups, r.now()), report}, cmd.Bool("pretty"))
	}

	if len(groups) == 0 {
		r.writePlain("Nothing to play.\n")
	} else {
		rows := make([][]string, 0, len(groups))
		for i, g := range groups {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				g.Author.DisplayName(),
				"@" + g.Author.Handle(),
				strconv.Itoa(len(g.Items)),
				humanize.RelTime(g.Items[0].CreatedAt(), r.now(), "ago", "from now"),
			})
		}
		r.writePlain("%s\n", renderTable(
			[]string{"#", "Author", "Handle", "Stories", "Oldest"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
		))
	}

	if len(report.Dropped) > 0 {
		r.writePlain("Dropped %d stories: %d expired, %d unknown author, %d missing author\n",
			len(report.Dropped),
			report.DroppedCount(playback.DropExpired),
			report.DroppedCount(playback.DropUnknownAuthor),
			report.DroppedCount(playback.DropMissingAuthor),
		)
	}
	return nil
}

// FeedPrune deletes expired stories.
func (r *Runner) FeedPrune(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	removed, err := engine.Prune(ctx, r.now(), nil)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d expired stories\n", removed)
}

// FeedExport exports the playable groups.
func (r *Runner) FeedExport(ctx context.Context, cmd *cli.Command) error {
	groups, _, err := r.loadGroups(nil)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: nothing to export", shared.ErrEmptyFeed)
	}

	format := cmd.String("format")
	if !slices.Contains(formatter.Formats, format) {
		return fmt.Errorf("%w: --format must be one of %s", shared.ErrInvalidFlag, strings.Join(formatter.Formats, ", "))
	}

	if cmd.Bool("stdout") {
		data, err := formatter.Export(format, groups, r.now())
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := r.printProgress(progressCh, true)
	result, err := tasks.BulkExport(ctx, groups, tasks.BulkExportOpts{
		Format:          format,
		OutputDir:       cmd.String("output-dir"),
		NumWorkers:      int(cmd.Int("workers")),
		DownloadAvatars: cmd.Bool("avatars"),
		Now:             r.now(),
	}, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d authors\n", result.SuccessfulExports, result.TotalGroups)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}

// loadGroups builds the groups a session plays from the stored feed.
func (r *Runner) loadGroups(progress chan<- tasks.ProgressUpdate) ([]models.AuthorGroup, playback.BuildReport, error) {
	engine, err := r.Engine()
	if err != nil {
		return nil, playback.BuildReport{}, err
	}
	return tasks.LoadGroups(engine, r.now(), r.Config().Playback.DropExpired, progress)
}

func durationLabel(item models.MediaItem) string {
	if item.Duration() <= 0 {
		return "-"
	}
	return shared.FormatDuration(item.Duration())
}
