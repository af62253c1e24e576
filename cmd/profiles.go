package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/genresort/internal/formatter"
	"github.com/desertthunder/genresort/internal/shared"
	"github.com/desertthunder/genresort/internal/state"
	"github.com/desertthunder/genresort/internal/tasks"
)

// ProfilesShow prints the genre profile for a playlist, building it through
// the snapshot cache if the playlist has changed since the last build.
func (r *Runner) ProfilesShow(ctx context.Context, playlistID string, topN int, asJSON bool) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist ID is required", shared.ErrMissingArgument)
	}

	engine, db, err := r.authenticatedEngine(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	entry, cached, err := engine.BuildProfile(ctx, playlistID)
	if err != nil {
		return err
	}

	if cached {
		r.logger.Debugf("profile for %s served from cache (snapshot %s)", playlistID, entry.SnapshotID)
	}

	if asJSON {
		return r.writeJSON(entry, true)
	}

	if _, err := r.output.Write(formatter.ProfileToText(entry, topN)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ProfilesRebuild forces a fresh profile build, bypassing the snapshot cache.
// With no argument every configured target is rebuilt.
func (r *Runner) ProfilesRebuild(ctx context.Context, playlistID string) error {
	engine, db, err := r.authenticatedEngine(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	targets := r.config.Sync.Targets
	if playlistID != "" {
		targets = []string{playlistID}
	}
	if len(targets) == 0 {
		return fmt.Errorf("%w: no playlist given and sync.targets is empty", shared.ErrNoTargets)
	}

	for _, target := range targets {
		entry, err := engine.RebuildProfile(ctx, target)
		if err != nil {
			return fmt.Errorf("failed to rebuild profile for %s: %w", target, err)
		}
		if err := r.writePlain("%s: %d tracks, %d genres (snapshot %s)\n",
			target, entry.TrackCount, len(entry.Profile), entry.SnapshotID); err != nil {
			return err
		}
	}

	return nil
}

// statusReport is the JSON shape of the status command output.
type statusReport struct {
	Watermark *time.Time           `json:"watermark"`
	Targets   []statusTargetReport `json:"targets"`
}

type statusTargetReport struct {
	PlaylistID     string     `json:"playlist_id"`
	LastRebuild    *time.Time `json:"last_rebuild,omitempty"`
	CachedProfiles int        `json:"cached_profiles"`
}

// Status reports the sync watermark and per-target rebuild bookkeeping.
func (r *Runner) Status(ctx context.Context, asJSON bool) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := state.NewStateRepository(db)
	cache := state.NewProfileCacheRepository(db)

	syncState, err := store.Read()
	if err != nil {
		return err
	}

	report := statusReport{Watermark: syncState.Watermark}
	for _, target := range r.config.Sync.Targets {
		entry := statusTargetReport{PlaylistID: target}
		if last, ok := syncState.Rebuilds[target]; ok {
			t := last
			entry.LastRebuild = &t
		}
		count, err := cache.Count(target)
		if err != nil {
			return err
		}
		entry.CachedProfiles = count
		report.Targets = append(report.Targets, entry)
	}

	if asJSON {
		return r.writeJSON(report, true)
	}

	if report.Watermark == nil {
		if err := r.writePlain("Watermark: not set (first sync pending)\n"); err != nil {
			return err
		}
	} else {
		if err := r.writePlain("Watermark: %s\n", report.Watermark.Format(time.RFC3339)); err != nil {
			return err
		}
	}

	for _, entry := range report.Targets {
		rebuilt := "never"
		if entry.LastRebuild != nil {
			rebuilt = entry.LastRebuild.Format(time.RFC3339)
		}
		if err := r.writePlain("  %s  last rebuild: %s  cached profiles: %d\n",
			entry.PlaylistID, rebuilt, entry.CachedProfiles); err != nil {
			return err
		}
	}

	return nil
}

// authenticatedEngine opens the database and returns an engine backed by an
// authenticated catalog client. The caller closes the database.
func (r *Runner) authenticatedEngine(ctx context.Context) (*tasks.SortEngine, *sql.DB, error) {
	if r.catalog == nil {
		return nil, nil, fmt.Errorf("%w: catalog client not configured", shared.ErrServiceUnavailable)
	}
	if err := r.catalog.Authenticate(ctx); err != nil {
		return nil, nil, err
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}

	return r.newEngine(db), db, nil
}
