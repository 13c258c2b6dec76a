// package formatter provides functions to export grouped stories to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/storyx/internal/models"
	"github.com/desertthunder/storyx/internal/shared"
	"github.com/dustin/go-humanize"
)

// Formats lists the export formats understood by the writers in this package.
var Formats = []string{"json", "csv", "markdown", "txt"}

// AuthorRecord is the exported view of an author.
type AuthorRecord struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Items       int    `json:"items"`
}

// ItemRecord is the exported view of a story.
type ItemRecord struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	Kind       string    `json:"kind"`
	URL        string    `json:"url"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
	Expires    string    `json:"expires"`
}

// GroupRecord is the exported view of an author group.
type GroupRecord struct {
	Author AuthorRecord `json:"author"`
	Items  []ItemRecord `json:"items"`
}

// ToRecords converts groups into export records. Relative expiry strings are computed against now.
func ToRecords(groups []models.AuthorGroup, now time.Time) []GroupRecord {
	records := make([]GroupRecord, 0, len(groups))
	for _, g := range groups {
		rec := GroupRecord{Author: authorRecord(g), Items: make([]ItemRecord, 0, len(g.Items))}
		for _, item := range g.Items {
			rec.Items = append(rec.Items, ToItemRecord(item, now))
		}
		records = append(records, rec)
	}
	return records
}

// ToItemRecord converts a single story into its export record.
func ToItemRecord(item models.MediaItem, now time.Time) ItemRecord {
	return ItemRecord{
		ID:         item.ID(),
		AuthorID:   item.AuthorID(),
		Kind:       string(item.Kind()),
		URL:        item.URL(),
		DurationMS: item.Duration().Milliseconds(),
		CreatedAt:  item.CreatedAt(),
		ExpiresAt:  item.ExpiresAt(),
		Expires:    RelativeExpiry(item, now),
	}
}

func authorRecord(g models.AuthorGroup) AuthorRecord {
	return AuthorRecord{
		ID:          g.Author.ID(),
		Handle:      g.Author.Handle(),
		DisplayName: g.Author.DisplayName(),
		AvatarURL:   g.Author.AvatarURL(),
		Items:       len(g.Items),
	}
}

// RelativeExpiry describes when item expires relative to now (e.g. "3 hours from now").
func RelativeExpiry(item models.MediaItem, now time.Time) string {
	if item.ExpiresAt().IsZero() {
		return "never"
	}
	if item.Expired(now) {
		return "expired " + humanize.RelTime(item.ExpiresAt(), now, "ago", "from now")
	}
	return humanize.RelTime(item.ExpiresAt(), now, "ago", "from now")
}

// itemDuration renders the item's own duration, or "default" for images without one.
func itemDuration(item models.MediaItem) string {
	if item.Duration() <= 0 {
		return "default"
	}
	return shared.FormatDuration(item.Duration())
}

// ExportToCSV converts groups to CSV with one row per story:
// Author, Handle, Position, ID, Kind, Duration (ms), URL, Created, Expires
func ExportToCSV(groups []models.AuthorGroup, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Author", "Handle", "Position", "ID", "Kind", "DurationMS", "URL", "Created", "Expires"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, g := range groups {
		for i, item := range g.Items {
			record := []string{
				g.Author.ID(),
				g.Author.Handle(),
				strconv.Itoa(i + 1),
				item.ID(),
				string(item.Kind()),
				strconv.FormatInt(item.Duration().Milliseconds(), 10),
				item.URL(),
				item.CreatedAt().Format(time.RFC3339),
				RelativeExpiry(item, now),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts groups to Markdown, one section per author with an optional avatar image.
// avatarFilename is used for every section when set; otherwise the author's avatar URL is linked.
func ExportToMarkdown(groups []models.AuthorGroup, avatarFilename string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Stories\n\n")
	fmt.Fprintf(&buf, "**Authors**: %d\n\n", len(groups))

	for _, g := range groups {
		fmt.Fprintf(&buf, "## %s (@%s)\n\n", g.Author.DisplayName(), g.Author.Handle())

		switch {
		case avatarFilename != "":
			fmt.Fprintf(&buf, "![Avatar](%s)\n\n", avatarFilename)
		case g.Author.AvatarURL() != "":
			fmt.Fprintf(&buf, "![Avatar](%s)\n\n", g.Author.AvatarURL())
		}

		for i, item := range g.Items {
			fmt.Fprintf(&buf, "%d. [%s] %s (%s, expires %s)\n", i+1, item.Kind(), item.URL(), itemDuration(item), RelativeExpiry(item, now))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts groups to plain text
func ExportToText(groups []models.AuthorGroup, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	for _, g := range groups {
		fmt.Fprintf(&buf, "Author: %s (@%s)\n", g.Author.DisplayName(), g.Author.Handle())
		fmt.Fprintf(&buf, "Stories: %d\n", len(g.Items))
		for i, item := range g.Items {
			fmt.Fprintf(&buf, "%d. %s %s (expires %s)\n", i+1, item.Kind(), item.ID(), RelativeExpiry(item, now))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts groups to indented JSON records.
func ExportToJSON(groups []models.AuthorGroup, now time.Time) ([]byte, error) {
	return shared.MarshalJSON(ToRecords(groups, now), true)
}

// Export renders groups in the named format. Unknown formats fall back to JSON.
func Export(format string, groups []models.AuthorGroup, now time.Time) ([]byte, error) {
	switch format {
	case "csv":
		return ExportToCSV(groups, now)
	case "markdown", "md":
		return ExportToMarkdown(groups, "", now)
	case "txt", "text":
		return ExportToText(groups, now)
	default:
		return ExportToJSON(groups, now)
	}
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of the group's author (without stories)
func ToMetadataJSON(group models.AuthorGroup) ([]byte, error) {
	return shared.MarshalJSON(authorRecord(group), true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteCSVExport exports one author group to CSV with an accompanying metadata JSON file.
//
// Defaults to the author ID as the base filename & creates {base}_items.csv and {base}_metadata.json
func WriteCSVExport(group models.AuthorGroup, baseFilepath string, now time.Time) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = group.Author.ID()
	}

	csvData, err := ExportToCSV([]models.AuthorGroup{group}, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(group)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:    itemsFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Avatar    string
}

// WriteMarkdownExport exports one author group to Markdown in a dedicated directory.
//
// Directory name defaults to the author ID. When download is true the author's avatar is fetched
// into {dir}/avatar.jpg; a failed download falls back to linking the remote URL.
// Creates a directory structure: {dir}/README.md and optionally {dir}/avatar.jpg
func WriteMarkdownExport(group models.AuthorGroup, outputDir string, download bool, now time.Time) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = group.Author.ID()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var avatarFilename string
	if download && group.Author.AvatarURL() != "" {
		imageData, err := DownloadImage(group.Author.AvatarURL())
		if err == nil {
			avatarFilename = "avatar.jpg"
			avatarPath := filepath.Join(outputDir, avatarFilename)
			if err := os.WriteFile(avatarPath, imageData, 0644); err != nil {
				avatarFilename = ""
			} else {
				result.Avatar = avatarPath
				result.Files = append(result.Files, avatarPath)
			}
		}
	}

	mdData, err := ExportToMarkdown([]models.AuthorGroup{group}, avatarFilename, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports one author group to plain text.
//
// Defaults to {author.ID}_items.txt as the filename.
func WriteTextExport(group models.AuthorGroup, path string, now time.Time) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_items.txt", group.Author.ID())
	}

	textData, err := ExportToText([]models.AuthorGroup{group}, now)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport exports one author group to {path} as JSON.
func WriteJSONExport(group models.AuthorGroup, path string, now time.Time) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.json", group.Author.ID())
	}

	data, err := shared.MarshalJSON(ToRecords([]models.AuthorGroup{group}, now)[0], true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}

	return path, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
