package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/genresort/internal/models"
	"github.com/desertthunder/genresort/internal/shared"
	mock "github.com/desertthunder/genresort/internal/testing"
)

// syncFixture builds a catalog with two genre playlists and a library of
// liked tracks, newest first.
func syncFixture(liked []models.LikedTrack) *mock.MockCatalog {
	return &mock.MockCatalog{
		Liked: liked,
		Versions: map[string]models.PlaylistVersion{
			"rock-playlist": {PlaylistID: "rock-playlist", SnapshotID: "rock-snap-1", TrackCount: 2},
			"jazz-playlist": {PlaylistID: "jazz-playlist", SnapshotID: "jazz-snap-1", TrackCount: 1},
		},
		Playlists: map[string][]models.Track{
			"rock-playlist": {
				{ID: "r1", ArtistIDs: []string{"rock-artist-1"}},
				{ID: "r2", ArtistIDs: []string{"rock-artist-2"}},
			},
			"jazz-playlist": {
				{ID: "j1", ArtistIDs: []string{"jazz-artist-1"}},
			},
		},
		ArtistGenres: map[string]models.Artist{
			"rock-artist-1": {ID: "rock-artist-1", Genres: []string{"rock"}},
			"rock-artist-2": {ID: "rock-artist-2", Genres: []string{"rock", "indie rock"}},
			"jazz-artist-1": {ID: "jazz-artist-1", Genres: []string{"jazz"}},
			"liked-rocker":  {ID: "liked-rocker", Genres: []string{"rock"}},
			"liked-jazzer":  {ID: "liked-jazzer", Genres: []string{"jazz"}},
		},
	}
}

func newTestEngine(cat *mock.MockCatalog, store *mock.InMemoryStateStore, now time.Time) *SortEngine {
	return NewSortEngine(cat, store, &mock.InMemoryProfileCache{}, EngineOpts{
		Targets: []string{"rock-playlist", "jazz-playlist"},
		Now:     func() time.Time { return now },
	})
}

func TestRun_FirstRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cat := syncFixture([]models.LikedTrack{
		{ID: "old", Name: "Old Like", ArtistIDs: []string{"liked-rocker"}, LikedAt: now.Add(-time.Hour)},
	})
	store := &mock.InMemoryStateStore{}
	engine := newTestEngine(cat, store, now)

	result, err := engine.Run(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !result.FirstRun {
		t.Error("result.FirstRun = false, want true")
	}
	if result.Candidates != 0 {
		t.Errorf("result.Candidates = %d, want 0 (existing library must not be imported)", result.Candidates)
	}
	if !result.Watermark.Equal(now) {
		t.Errorf("result.Watermark = %v, want %v", result.Watermark, now)
	}
	if store.Writes != 1 {
		t.Errorf("store.Writes = %d, want 1", store.Writes)
	}
	if store.State.Watermark == nil || !store.State.Watermark.Equal(now) {
		t.Errorf("persisted watermark = %v, want %v", store.State.Watermark, now)
	}
	if len(cat.AddCalls) != 0 {
		t.Errorf("playlists were written on first run: %v", cat.AddCalls)
	}
}

func TestRun_FirstRunDryRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &mock.InMemoryStateStore{}
	engine := newTestEngine(syncFixture(nil), store, now)

	result, err := engine.Run(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.FirstRun || !result.DryRun {
		t.Errorf("result = %+v, want FirstRun and DryRun", result)
	}
	if store.Writes != 0 {
		t.Errorf("store.Writes = %d, want 0 on dry run", store.Writes)
	}
}

func TestRun_RoutesNewLikes(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-24 * time.Hour)

	cat := syncFixture([]models.LikedTrack{
		{ID: "new-jazz", Name: "New Jazz", ArtistIDs: []string{"liked-jazzer"}, LikedAt: now.Add(-time.Hour)},
		{ID: "new-rock", Name: "New Rock", ArtistIDs: []string{"liked-rocker"}, LikedAt: now.Add(-2 * time.Hour)},
		{ID: "old-rock", Name: "Old Rock", ArtistIDs: []string{"liked-rocker"}, LikedAt: watermark.Add(-time.Hour)},
	})
	store := &mock.InMemoryStateStore{State: &models.SyncState{Watermark: &watermark}}
	engine := newTestEngine(cat, store, now)

	result, err := engine.Run(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.FirstRun {
		t.Error("result.FirstRun = true, want false")
	}
	if result.Candidates != 2 {
		t.Errorf("result.Candidates = %d, want 2", result.Candidates)
	}

	wantAdds := map[string]string{
		"rock-playlist": "new-rock",
		"jazz-playlist": "new-jazz",
	}
	for playlist, trackID := range wantAdds {
		ids := cat.AddCalls[playlist]
		if len(ids) != 1 || ids[0] != trackID {
			t.Errorf("AddCalls[%q] = %v, want [%q]", playlist, ids, trackID)
		}
	}

	// Watermark advances to the newest like seen.
	wantWatermark := now.Add(-time.Hour)
	if !result.Watermark.Equal(wantWatermark) {
		t.Errorf("result.Watermark = %v, want %v", result.Watermark, wantWatermark)
	}
	if store.State.Watermark == nil || !store.State.Watermark.Equal(wantWatermark) {
		t.Errorf("persisted watermark = %v, want %v", store.State.Watermark, wantWatermark)
	}
}

func TestRun_WatermarkCutoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-time.Hour)

	// A like stamped exactly at the watermark is already processed.
	cat := syncFixture([]models.LikedTrack{
		{ID: "at-watermark", Name: "Boundary", ArtistIDs: []string{"liked-rocker"}, LikedAt: watermark},
	})
	store := &mock.InMemoryStateStore{State: &models.SyncState{Watermark: &watermark}}
	engine := newTestEngine(cat, store, now)

	result, err := engine.Run(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Candidates != 0 {
		t.Errorf("result.Candidates = %d, want 0", result.Candidates)
	}
	if !result.Watermark.Equal(watermark) {
		t.Errorf("result.Watermark = %v, want unchanged %v", result.Watermark, watermark)
	}
}

func TestRun_RebuildInterval(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-time.Hour)

	tests := []struct {
		name        string
		lastRebuild time.Time
		wantRebuilt bool
	}{
		{"rebuilt an hour ago is fresh", now.Add(-time.Hour), false},
		{"rebuilt 23h ago is fresh", now.Add(-23 * time.Hour), false},
		{"rebuilt 25h ago is due", now.Add(-25 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := models.NewSyncState()
			state.Watermark = &watermark
			state.Rebuilds["rock-playlist"] = tt.lastRebuild
			state.Rebuilds["jazz-playlist"] = tt.lastRebuild
			store := &mock.InMemoryStateStore{State: state}
			engine := newTestEngine(syncFixture(nil), store, now)

			result, err := engine.Run(context.Background(), nil, false)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if got := len(result.Rebuilt) > 0; got != tt.wantRebuilt {
				t.Errorf("rebuilt = %v (%v), want %v", got, result.Rebuilt, tt.wantRebuilt)
			}
			if tt.wantRebuilt {
				if got := store.State.Rebuilds["rock-playlist"]; !got.Equal(now) {
					t.Errorf("persisted rebuild time = %v, want %v", got, now)
				}
			} else {
				if got := store.State.Rebuilds["rock-playlist"]; !got.Equal(tt.lastRebuild) {
					t.Errorf("persisted rebuild time = %v, want unchanged %v", got, tt.lastRebuild)
				}
			}
		})
	}
}

func TestRun_NeverRebuiltIsDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-time.Hour)
	store := &mock.InMemoryStateStore{State: &models.SyncState{Watermark: &watermark}}
	engine := newTestEngine(syncFixture(nil), store, now)

	result, err := engine.Run(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Rebuilt) != 2 {
		t.Errorf("result.Rebuilt = %v, want both targets", result.Rebuilt)
	}
}

func TestRun_DryRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-24 * time.Hour)

	cat := syncFixture([]models.LikedTrack{
		{ID: "new-rock", Name: "New Rock", ArtistIDs: []string{"liked-rocker"}, LikedAt: now.Add(-time.Hour)},
	})
	store := &mock.InMemoryStateStore{State: &models.SyncState{Watermark: &watermark}}
	engine := newTestEngine(cat, store, now)

	result, err := engine.Run(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Candidates != 1 {
		t.Errorf("result.Candidates = %d, want 1", result.Candidates)
	}
	if len(result.Destinations) != 1 || result.Destinations[0].PlaylistID != "rock-playlist" {
		t.Errorf("result.Destinations = %+v, want one rock-playlist entry", result.Destinations)
	}
	if len(cat.AddCalls) != 0 {
		t.Errorf("playlists were written on dry run: %v", cat.AddCalls)
	}
	if store.Writes != 0 {
		t.Errorf("store.Writes = %d, want 0 on dry run", store.Writes)
	}
}

func TestRun_StreamErrorLeavesStateUntouched(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-time.Hour)

	cat := syncFixture(nil)
	cat.LikedErr = errors.New("network down")
	store := &mock.InMemoryStateStore{State: &models.SyncState{Watermark: &watermark}}
	engine := newTestEngine(cat, store, now)

	if _, err := engine.Run(context.Background(), nil, false); err == nil {
		t.Fatal("Run() error = nil, want stream failure")
	}
	if store.Writes != 0 {
		t.Errorf("store.Writes = %d, want 0 after failed run", store.Writes)
	}
}

func TestRun_AddErrorLeavesStateUntouched(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-24 * time.Hour)

	cat := syncFixture([]models.LikedTrack{
		{ID: "new-rock", Name: "New Rock", ArtistIDs: []string{"liked-rocker"}, LikedAt: now.Add(-time.Hour)},
	})
	cat.AddErr = errors.New("server error")
	store := &mock.InMemoryStateStore{State: &models.SyncState{Watermark: &watermark}}
	engine := newTestEngine(cat, store, now)

	if _, err := engine.Run(context.Background(), nil, false); err == nil {
		t.Fatal("Run() error = nil, want add failure")
	}
	if store.Writes != 0 {
		t.Errorf("store.Writes = %d, want 0 after failed run", store.Writes)
	}
	if store.State.Watermark == nil || !store.State.Watermark.Equal(watermark) {
		t.Errorf("persisted watermark = %v, want unchanged %v", store.State.Watermark, watermark)
	}
}

func TestRun_NoTargets(t *testing.T) {
	engine := NewSortEngine(syncFixture(nil), &mock.InMemoryStateStore{}, &mock.InMemoryProfileCache{}, EngineOpts{})

	if _, err := engine.Run(context.Background(), nil, false); !errors.Is(err, shared.ErrNoTargets) {
		t.Errorf("Run() error = %v, want %v", err, shared.ErrNoTargets)
	}
}

func TestRun_NilCatalog(t *testing.T) {
	engine := NewSortEngine(nil, &mock.InMemoryStateStore{}, &mock.InMemoryProfileCache{}, EngineOpts{
		Targets: []string{"p1"},
	})

	if _, err := engine.Run(context.Background(), nil, false); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("Run() error = %v, want %v", err, shared.ErrServiceUnavailable)
	}
}

func TestRun_ProgressUpdates(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-24 * time.Hour)

	cat := syncFixture([]models.LikedTrack{
		{ID: "new-rock", Name: "New Rock", ArtistIDs: []string{"liked-rocker"}, LikedAt: now.Add(-time.Hour)},
	})
	store := &mock.InMemoryStateStore{State: &models.SyncState{Watermark: &watermark}}
	engine := newTestEngine(cat, store, now)

	progress := make(chan ProgressUpdate, 100)
	if _, err := engine.Run(context.Background(), progress, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	close(progress)

	phases := make(map[Phase]bool)
	for update := range progress {
		phases[update.Phase] = true
	}

	for _, want := range []Phase{LoadState, BuildProfiles, StreamLikes, RouteTracks, WriteTracks, PersistState} {
		if !phases[want] {
			t.Errorf("no progress update for phase %s", want)
		}
	}
}

func TestRun_FullProgressChannelDoesNotBlock(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	watermark := now.Add(-24 * time.Hour)
	store := &mock.InMemoryStateStore{State: &models.SyncState{Watermark: &watermark}}
	engine := newTestEngine(syncFixture(nil), store, now)

	// Unbuffered channel with no reader: every send must fall through.
	progress := make(chan ProgressUpdate)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := engine.Run(context.Background(), progress, false); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() blocked on a full progress channel")
	}
}
