package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/genresort/internal/catalog"
	"github.com/desertthunder/genresort/internal/models"
)

// BuildProfile computes the weighted genre distribution for a playlist.
//
// The profile is keyed by the playlist's content version: if a cache entry
// exists for the current snapshot the entry is returned verbatim without
// re-fetching membership. On a miss the playlist's tracks are enumerated,
// the distinct artists collected, and each artist's genre tags counted once.
// The second return value reports whether the profile was recomputed.
func (e *SortEngine) BuildProfile(ctx context.Context, playlistID string) (*models.CachedProfile, bool, error) {
	return e.buildProfile(ctx, playlistID, false)
}

// RebuildProfile recomputes a playlist's profile even when the current
// snapshot is already cached. Used by the `profiles rebuild` command.
func (e *SortEngine) RebuildProfile(ctx context.Context, playlistID string) (*models.CachedProfile, error) {
	entry, _, err := e.buildProfile(ctx, playlistID, true)
	return entry, err
}

func (e *SortEngine) buildProfile(ctx context.Context, playlistID string, force bool) (*models.CachedProfile, bool, error) {
	version, err := e.catalog.PlaylistVersion(ctx, playlistID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch playlist version: %w", err)
	}

	if !force {
		cached, err := e.cache.Get(playlistID, version.SnapshotID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read profile cache: %w", err)
		}
		if cached != nil {
			return cached, false, nil
		}
	}

	tracks, err := e.catalog.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch playlist tracks: %w", err)
	}

	artistIDs := dedupeArtists(tracks)
	profile := make(models.GenreProfile)

	for start := 0; start < len(artistIDs); start += catalog.MaxArtistBatch {
		end := min(start+catalog.MaxArtistBatch, len(artistIDs))

		artists, err := e.catalog.Artists(ctx, artistIDs[start:end])
		if err != nil {
			return nil, false, fmt.Errorf("failed to fetch artists: %w", err)
		}

		for _, id := range artistIDs[start:end] {
			artist, ok := artists[id]
			if !ok {
				continue
			}
			profile.Add(artist.Genres)
		}
	}

	entry := &models.CachedProfile{
		PlaylistID: playlistID,
		SnapshotID: version.SnapshotID,
		TrackCount: version.TrackCount,
		BuiltAt:    e.now().UTC(),
		Profile:    profile,
	}

	if err := e.cache.Put(entry); err != nil {
		return nil, false, fmt.Errorf("failed to cache profile: %w", err)
	}

	return entry, true, nil
}

// dedupeArtists collects the unique artist IDs referenced by a track list,
// preserving first-seen order. An artist on many tracks is counted once, so
// genre weights reflect distinct artists rather than track counts.
func dedupeArtists(tracks []models.Track) []string {
	seen := make(map[string]bool)
	var ids []string

	for _, track := range tracks {
		for _, id := range track.ArtistIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return ids
}
