package formatter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/genresort/internal/models"
	"github.com/desertthunder/genresort/internal/tasks"
)

func sampleResult() *tasks.SyncRunResult {
	return &tasks.SyncRunResult{
		Candidates: 3,
		Rebuilt:    []string{"rock-playlist"},
		Destinations: []tasks.DestinationResult{
			{
				PlaylistID: "rock-playlist",
				Decisions: []models.RoutingDecision{
					{TrackID: "t1", TrackName: "Anthem", PlaylistID: "rock-playlist", Score: 14},
					{TrackID: "t2", TrackName: "Riff", PlaylistID: "rock-playlist", Score: 9},
				},
				Added:   1,
				Skipped: 1,
			},
			{
				PlaylistID: "jazz-playlist",
				Decisions: []models.RoutingDecision{
					{TrackID: "t3", TrackName: "Blue Note", PlaylistID: "jazz-playlist", Score: 7},
				},
				Added: 1,
			},
		},
		Watermark: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRunReportToText(t *testing.T) {
	t.Run("incremental run", func(t *testing.T) {
		text := string(RunReportToText(sampleResult()))

		for _, want := range []string{
			"New liked tracks: 3",
			"Profiles rebuilt: 1",
			"Playlist rock-playlist: 2 routed, 1 added, 1 skipped",
			"Anthem (score 14)",
			"Blue Note (score 7)",
			"Watermark: 2025-06-01 12:00:00 UTC",
		} {
			if !strings.Contains(text, want) {
				t.Errorf("report missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("first run", func(t *testing.T) {
		result := &tasks.SyncRunResult{
			FirstRun:  true,
			Watermark: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}
		text := string(RunReportToText(result))

		if !strings.Contains(text, "First run") {
			t.Errorf("expected first-run notice:\n%s", text)
		}
		if strings.Contains(text, "routed") {
			t.Errorf("first-run report should not list destinations:\n%s", text)
		}
	})

	t.Run("dry run omits write counts", func(t *testing.T) {
		result := sampleResult()
		result.DryRun = true
		text := string(RunReportToText(result))

		if strings.Contains(text, "added") {
			t.Errorf("dry-run report should not show added counts:\n%s", text)
		}
		if !strings.Contains(text, "2 routed") {
			t.Errorf("dry-run report should still show routing:\n%s", text)
		}
	})
}

func TestRunReportToCSV(t *testing.T) {
	data, err := RunReportToCSV(sampleResult())
	if err != nil {
		t.Fatalf("failed to render CSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("generated CSV does not parse: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
	if records[0][0] != "TrackID" || records[0][3] != "Score" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][0] != "t1" || records[1][2] != "rock-playlist" || records[1][3] != "14" {
		t.Errorf("unexpected first row: %v", records[1])
	}
}

func TestWriteRunReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	if err := WriteRunReport(sampleResult(), path); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(string(data), "Blue Note") {
		t.Errorf("report missing decision rows:\n%s", data)
	}
}

func TestProfileToText(t *testing.T) {
	entry := &models.CachedProfile{
		PlaylistID: "rock-playlist",
		SnapshotID: "snap-1",
		TrackCount: 40,
		BuiltAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Profile: models.GenreProfile{
			"rock":       12,
			"indie rock": 5,
			"shoegaze":   5,
			"jazz":       1,
		},
	}

	t.Run("ranks by weight then name", func(t *testing.T) {
		text := string(ProfileToText(entry, 0))

		rockIdx := strings.Index(text, "rock (12)")
		indieIdx := strings.Index(text, "indie rock (5)")
		shoeIdx := strings.Index(text, "shoegaze (5)")
		jazzIdx := strings.Index(text, "jazz (1)")

		if rockIdx < 0 || indieIdx < 0 || shoeIdx < 0 || jazzIdx < 0 {
			t.Fatalf("report missing genres:\n%s", text)
		}
		if !(rockIdx < indieIdx && indieIdx < shoeIdx && shoeIdx < jazzIdx) {
			t.Errorf("genres out of order:\n%s", text)
		}
	})

	t.Run("topN truncates", func(t *testing.T) {
		text := string(ProfileToText(entry, 2))

		if strings.Contains(text, "jazz") {
			t.Errorf("expected jazz to be cut by topN:\n%s", text)
		}
		if !strings.Contains(text, "rock (12)") {
			t.Errorf("expected heaviest genre to survive topN:\n%s", text)
		}
	})

	t.Run("empty profile", func(t *testing.T) {
		empty := &models.CachedProfile{
			PlaylistID: "p1",
			SnapshotID: "snap-1",
			Profile:    models.GenreProfile{},
		}
		if !strings.Contains(string(ProfileToText(empty, 0)), "No classified artists") {
			t.Error("expected empty-profile notice")
		}
	})
}
