// package formatter renders sync run reports and genre profiles to various formats (text, CSV, Markdown)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/desertthunder/genresort/internal/models"
	"github.com/desertthunder/genresort/internal/tasks"
)

// RunReportToText renders a human-readable summary of a sync run.
func RunReportToText(result *tasks.SyncRunResult) []byte {
	var buf bytes.Buffer

	if result.FirstRun {
		buf.WriteString("First run: watermark initialized, no tracks processed.\n")
		buf.WriteString(fmt.Sprintf("Watermark: %s\n", result.Watermark.Format("2006-01-02 15:04:05 MST")))
		return buf.Bytes()
	}

	buf.WriteString(fmt.Sprintf("New liked tracks: %d\n", result.Candidates))
	if len(result.Rebuilt) > 0 {
		buf.WriteString(fmt.Sprintf("Profiles rebuilt: %d\n", len(result.Rebuilt)))
	}
	buf.WriteString("\n")

	for _, dest := range result.Destinations {
		buf.WriteString(fmt.Sprintf("Playlist %s: %d routed", dest.PlaylistID, len(dest.Decisions)))
		if !result.DryRun {
			buf.WriteString(fmt.Sprintf(", %d added, %d skipped", dest.Added, dest.Skipped))
		}
		buf.WriteString("\n")
		for _, d := range dest.Decisions {
			buf.WriteString(fmt.Sprintf("  - %s (score %d)\n", d.TrackName, d.Score))
		}
	}

	buf.WriteString(fmt.Sprintf("\nWatermark: %s\n", result.Watermark.Format("2006-01-02 15:04:05 MST")))
	return buf.Bytes()
}

// RunReportToCSV converts a run's routing decisions to CSV with columns:
// TrackID, TrackName, PlaylistID, Score
func RunReportToCSV(result *tasks.SyncRunResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"TrackID", "TrackName", "PlaylistID", "Score"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, dest := range result.Destinations {
		for _, d := range dest.Decisions {
			record := []string{d.TrackID, d.TrackName, d.PlaylistID, strconv.Itoa(d.Score)}
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

// WriteRunReport writes the CSV routing report to the given path.
func WriteRunReport(result *tasks.SyncRunResult, path string) error {
	data, err := RunReportToCSV(result)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// genreWeight pairs a genre tag with its profile weight for sorting.
type genreWeight struct {
	genre  string
	weight int
}

// ProfileToText renders a cached genre profile as a ranked genre list.
// Genres are sorted by descending weight, then alphabetically; topN limits
// the output (0 means all).
func ProfileToText(entry *models.CachedProfile, topN int) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", entry.PlaylistID))
	buf.WriteString(fmt.Sprintf("Snapshot: %s\n", entry.SnapshotID))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n", entry.TrackCount))
	buf.WriteString(fmt.Sprintf("Built: %s\n\n", entry.BuiltAt.Format("2006-01-02 15:04:05 MST")))

	if len(entry.Profile) == 0 {
		buf.WriteString("No classified artists.\n")
		return buf.Bytes()
	}

	ranked := make([]genreWeight, 0, len(entry.Profile))
	for g, w := range entry.Profile {
		ranked = append(ranked, genreWeight{g, w})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].genre < ranked[j].genre
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	for i, gw := range ranked {
		buf.WriteString(fmt.Sprintf("%2d. %s (%d)\n", i+1, gw.genre, gw.weight))
	}

	return buf.Bytes()
}
