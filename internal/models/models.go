package models

import (
	"fmt"
	"time"
)

// LikedTrack represents a track in the user's liked-songs library.
type LikedTrack struct {
	ID        string
	Name      string
	ArtistIDs []string
	LikedAt   time.Time
}

// Track represents a track within a playlist.
type Track struct {
	ID        string
	Name      string
	ArtistIDs []string
}

// Artist represents a catalog artist with its genre tags.
type Artist struct {
	ID     string
	Name   string
	Genres []string
}

// PlaylistVersion identifies a playlist's current membership state.
// The SnapshotID changes whenever tracks are added or removed.
type PlaylistVersion struct {
	PlaylistID string
	SnapshotID string
	TrackCount int
}

// AddResult reports the outcome of an idempotent playlist insertion.
type AddResult struct {
	Added   int
	Skipped int
}

// GenreProfile maps genre tags to integer weights. The weight of a genre is
// the number of distinct artists in the playlist carrying that tag.
type GenreProfile map[string]int

// Add increments the weight for each of the given genre tags.
func (p GenreProfile) Add(genres []string) {
	for _, g := range genres {
		p[g]++
	}
}

// Validate checks the profile invariant: no negative weights.
func (p GenreProfile) Validate() error {
	for g, w := range p {
		if w < 0 {
			return fmt.Errorf("genre %q has negative weight %d", g, w)
		}
	}
	return nil
}

// CachedProfile is a computed genre profile stored under a playlist's
// content version. Entries for superseded snapshots may coexist; only the
// entry matching the playlist's current snapshot is ever read.
type CachedProfile struct {
	PlaylistID string
	SnapshotID string
	TrackCount int
	BuiltAt    time.Time
	Profile    GenreProfile
}

// Validate checks the cache entry's identity fields and profile.
func (c *CachedProfile) Validate() error {
	if c.PlaylistID == "" {
		return fmt.Errorf("cached profile missing playlist ID")
	}
	if c.SnapshotID == "" {
		return fmt.Errorf("cached profile missing snapshot ID")
	}
	return c.Profile.Validate()
}

// SyncState holds the processing watermark and per-playlist rebuild
// timestamps. A nil Watermark means no run has completed yet.
type SyncState struct {
	Watermark *time.Time
	Rebuilds  map[string]time.Time
}

// NewSyncState returns an empty state with an initialized rebuild map.
func NewSyncState() *SyncState {
	return &SyncState{Rebuilds: make(map[string]time.Time)}
}

// AdvanceWatermark moves the watermark forward to ts. Moves backward are
// ignored so the watermark stays monotone across runs.
func (s *SyncState) AdvanceWatermark(ts time.Time) {
	if s.Watermark == nil || ts.After(*s.Watermark) {
		t := ts
		s.Watermark = &t
	}
}

// RoutingDecision records where a liked track was routed and with what score.
type RoutingDecision struct {
	TrackID    string
	TrackName  string
	PlaylistID string
	Score      int
}
