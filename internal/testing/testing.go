// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/desertthunder/genresort/internal/models"
)

// MockCatalog is a configurable test double for [catalog.Catalog].
//
// Zero value behaves as an empty, authenticated catalog. Call fields can be
// set to inject data or failures per operation.
type MockCatalog struct {
	Liked         []models.LikedTrack
	Playlists     map[string][]models.Track
	ArtistGenres  map[string]models.Artist
	Versions      map[string]models.PlaylistVersion
	AddResults    map[string]models.AddResult
	AuthErr       error
	LikedErr      error
	TracksErr     error
	ArtistsErr    error
	VersionErr    error
	AddErr        error
	TrackCalls    map[string]int // PlaylistTracks invocations per playlist
	ArtistCalls   int            // Artists batch invocations
	AddCalls      map[string][]string
	mu            sync.Mutex
}

func (m *MockCatalog) Authenticate(ctx context.Context) error { return m.AuthErr }

func (m *MockCatalog) Name() string { return "mock" }

func (m *MockCatalog) IterateLikedTracks(ctx context.Context, fn func(models.LikedTrack) (bool, error)) error {
	if m.LikedErr != nil {
		return m.LikedErr
	}
	for _, t := range m.Liked {
		cont, err := fn(t)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if m.TracksErr != nil {
		return nil, m.TracksErr
	}
	m.mu.Lock()
	if m.TrackCalls == nil {
		m.TrackCalls = make(map[string]int)
	}
	m.TrackCalls[playlistID]++
	m.mu.Unlock()
	return m.Playlists[playlistID], nil
}

func (m *MockCatalog) Artists(ctx context.Context, ids []string) (map[string]models.Artist, error) {
	if m.ArtistsErr != nil {
		return nil, m.ArtistsErr
	}
	m.mu.Lock()
	m.ArtistCalls++
	m.mu.Unlock()
	result := make(map[string]models.Artist)
	for _, id := range ids {
		if a, ok := m.ArtistGenres[id]; ok {
			result[id] = a
		}
	}
	return result, nil
}

func (m *MockCatalog) PlaylistVersion(ctx context.Context, playlistID string) (*models.PlaylistVersion, error) {
	if m.VersionErr != nil {
		return nil, m.VersionErr
	}
	if v, ok := m.Versions[playlistID]; ok {
		return &v, nil
	}
	return &models.PlaylistVersion{PlaylistID: playlistID, SnapshotID: "snap-default"}, nil
}

func (m *MockCatalog) AddTracksIfMissing(ctx context.Context, playlistID string, trackIDs []string) (*models.AddResult, error) {
	if m.AddErr != nil {
		return nil, m.AddErr
	}
	m.mu.Lock()
	if m.AddCalls == nil {
		m.AddCalls = make(map[string][]string)
	}
	m.AddCalls[playlistID] = append(m.AddCalls[playlistID], trackIDs...)
	m.mu.Unlock()
	if r, ok := m.AddResults[playlistID]; ok {
		return &r, nil
	}
	return &models.AddResult{Added: len(trackIDs)}, nil
}

// InMemoryStateStore is a map-backed [tasks.StateStore].
type InMemoryStateStore struct {
	State    *models.SyncState
	ReadErr  error
	WriteErr error
	Writes   int
}

func (s *InMemoryStateStore) Read() (*models.SyncState, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	if s.State == nil {
		return models.NewSyncState(), nil
	}
	// Copy so engine mutations only land on Write.
	copied := models.NewSyncState()
	if s.State.Watermark != nil {
		t := *s.State.Watermark
		copied.Watermark = &t
	}
	for k, v := range s.State.Rebuilds {
		copied.Rebuilds[k] = v
	}
	return copied, nil
}

func (s *InMemoryStateStore) Write(state *models.SyncState) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.Writes++
	s.State = state
	return nil
}

// InMemoryProfileCache is a map-backed [tasks.ProfileCache].
type InMemoryProfileCache struct {
	Entries map[string]*models.CachedProfile
	GetErr  error
	PutErr  error
}

func cacheKey(playlistID, snapshotID string) string {
	return playlistID + "\x00" + snapshotID
}

func (c *InMemoryProfileCache) Get(playlistID, snapshotID string) (*models.CachedProfile, error) {
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	return c.Entries[cacheKey(playlistID, snapshotID)], nil
}

func (c *InMemoryProfileCache) Put(entry *models.CachedProfile) error {
	if c.PutErr != nil {
		return c.PutErr
	}
	if c.Entries == nil {
		c.Entries = make(map[string]*models.CachedProfile)
	}
	c.Entries[cacheKey(entry.PlaylistID, entry.SnapshotID)] = entry
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

var _ io.Writer = (*FWriter)(nil)
