package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/genresort/internal/catalog"
	"github.com/desertthunder/genresort/internal/models"
	"github.com/desertthunder/genresort/internal/shared"
)

// Run executes one incremental sync pass.
//
// The pass loads the watermark, obtains a profile for every target playlist,
// streams liked tracks newest-first until it reaches the watermark, routes
// each new like to its best-scoring playlist, appends the routed tracks, and
// finally persists the advanced watermark. State is written exactly once at
// the end, so any failure along the way leaves the previous watermark in
// place and the next run retries the same likes. Playlist insertions are
// guarded by a membership check, which keeps retried runs from duplicating
// tracks.
//
// On the first-ever run (no persisted watermark) the watermark is set to the
// current time and nothing is processed, so an existing library is never
// bulk-imported.
//
// When dryRun is set, routing happens normally but playlist writes and state
// persistence are skipped.
func (e *SortEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, dryRun bool) (*SyncRunResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if len(e.targets) == 0 {
		return nil, shared.ErrNoTargets
	}

	result := &SyncRunResult{DryRun: dryRun}

	// Init
	e.sendProgress(progress, loadStateUpdate())
	state, err := e.store.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	// FirstRun: establish the starting point and stop.
	if state.Watermark == nil {
		now := e.now().UTC()
		state.AdvanceWatermark(now)
		result.FirstRun = true
		result.Watermark = now

		if !dryRun {
			e.sendProgress(progress, persistStateUpdate())
			if err := e.store.Write(state); err != nil {
				return nil, fmt.Errorf("failed to persist initial watermark: %w", err)
			}
		}
		return result, nil
	}

	watermark := *state.Watermark
	result.Watermark = watermark

	// Rebuilding
	profiles, err := e.collectProfiles(ctx, progress, state, result)
	if err != nil {
		return nil, err
	}

	// Streaming
	candidates, newestSeen, err := e.streamNewLikes(ctx, watermark)
	if err != nil {
		return nil, fmt.Errorf("failed to stream liked tracks: %w", err)
	}
	result.Candidates = len(candidates)
	e.sendProgress(progress, streamLikesUpdate(len(candidates)))

	// Routing
	routed, err := e.routeCandidates(ctx, progress, candidates, profiles)
	if err != nil {
		return nil, err
	}

	// Writing
	step := 0
	for _, target := range e.targets {
		decisions := routed[target]
		if len(decisions) == 0 {
			continue
		}
		step++

		dest := DestinationResult{PlaylistID: target, Decisions: decisions}

		if !dryRun {
			e.sendProgress(progress, writeTracksUpdate(step, len(routed), target, len(decisions)))

			trackIDs := make([]string, 0, len(decisions))
			for _, d := range decisions {
				trackIDs = append(trackIDs, d.TrackID)
			}

			added, err := e.catalog.AddTracksIfMissing(ctx, target, trackIDs)
			if err != nil {
				return nil, fmt.Errorf("failed to add tracks to %s: %w", target, err)
			}
			dest.Added = added.Added
			dest.Skipped = added.Skipped
		}

		result.Destinations = append(result.Destinations, dest)
	}

	// Persisted
	if !newestSeen.IsZero() {
		state.AdvanceWatermark(newestSeen)
		result.Watermark = *state.Watermark
	}

	if !dryRun {
		e.sendProgress(progress, persistStateUpdate())
		if err := e.store.Write(state); err != nil {
			return nil, fmt.Errorf("failed to persist sync state: %w", err)
		}
	}

	return result, nil
}

// collectProfiles obtains a genre profile for every target playlist.
//
// Profiles always come from the builder, whose snapshot-keyed cache makes the
// call cheap when membership is unchanged. The rebuild interval only controls
// the rebuild timestamp bookkeeping: a playlist past its interval (or never
// rebuilt) gets its timestamp refreshed this run.
func (e *SortEngine) collectProfiles(ctx context.Context, progress chan<- ProgressUpdate, state *models.SyncState, result *SyncRunResult) (map[string]models.GenreProfile, error) {
	profiles := make(map[string]models.GenreProfile, len(e.targets))
	now := e.now().UTC()

	for i, target := range e.targets {
		last, seen := state.Rebuilds[target]
		due := !seen || now.Sub(last) >= e.rebuildInterval

		entry, rebuilt, err := e.BuildProfile(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to build profile for %s: %w", target, err)
		}

		e.sendProgress(progress, buildProfileUpdate(i+1, len(e.targets), target, !rebuilt))
		profiles[target] = entry.Profile

		if due {
			state.Rebuilds[target] = now
			result.Rebuilt = append(result.Rebuilt, target)
		}
	}

	return profiles, nil
}

// streamNewLikes walks liked tracks newest-first and returns those liked
// strictly after the watermark, plus the newest liked-at time observed.
//
// The early stop relies on the catalog returning likes in descending
// liked-at order.
func (e *SortEngine) streamNewLikes(ctx context.Context, watermark time.Time) ([]models.LikedTrack, time.Time, error) {
	var candidates []models.LikedTrack
	var newestSeen time.Time

	err := e.catalog.IterateLikedTracks(ctx, func(track models.LikedTrack) (bool, error) {
		if track.LikedAt.After(newestSeen) {
			newestSeen = track.LikedAt
		}
		if !track.LikedAt.After(watermark) {
			return false, nil
		}
		candidates = append(candidates, track)
		return true, nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}

	return candidates, newestSeen, nil
}

// routeCandidates picks a destination for each candidate track, grouping
// decisions by destination playlist.
//
// All candidates are scored against the same profiles built at the start of
// the run; profiles are not refreshed per track.
func (e *SortEngine) routeCandidates(ctx context.Context, progress chan<- ProgressUpdate, candidates []models.LikedTrack, profiles map[string]models.GenreProfile) (map[string][]models.RoutingDecision, error) {
	routed := make(map[string][]models.RoutingDecision)
	if len(candidates) == 0 {
		return routed, nil
	}

	genres, err := e.fetchArtistGenres(ctx, candidates)
	if err != nil {
		return nil, err
	}

	for i, track := range candidates {
		trackGenres := genreSet(track, genres)

		dest, score, ok := PickBestPlaylist(trackGenres, e.targets, profiles)
		if !ok {
			// No profiles at all: fall back to the first configured target
			// so every routed track lands somewhere.
			dest = e.targets[0]
			score = 0
		}

		decision := models.RoutingDecision{
			TrackID:    track.ID,
			TrackName:  track.Name,
			PlaylistID: dest,
			Score:      score,
		}
		routed[dest] = append(routed[dest], decision)
		e.sendProgress(progress, routeTrackUpdate(i+1, len(candidates), decision))
	}

	return routed, nil
}

// fetchArtistGenres batch-fetches genre tags for every artist referenced by
// the candidate tracks.
func (e *SortEngine) fetchArtistGenres(ctx context.Context, candidates []models.LikedTrack) (map[string]models.Artist, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, track := range candidates {
		for _, id := range track.ArtistIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}

	artists := make(map[string]models.Artist, len(ids))
	for start := 0; start < len(ids); start += catalog.MaxArtistBatch {
		end := min(start+catalog.MaxArtistBatch, len(ids))

		batch, err := e.catalog.Artists(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch artists: %w", err)
		}
		for id, artist := range batch {
			artists[id] = artist
		}
	}

	return artists, nil
}

// genreSet builds the union of a track's artists' genre tags, sorted for
// stable iteration.
func genreSet(track models.LikedTrack, artists map[string]models.Artist) []string {
	seen := make(map[string]bool)
	var genres []string

	for _, id := range track.ArtistIDs {
		artist, ok := artists[id]
		if !ok {
			continue
		}
		for _, g := range artist.Genres {
			if seen[g] {
				continue
			}
			seen[g] = true
			genres = append(genres, g)
		}
	}

	sort.Strings(genres)
	return genres
}
