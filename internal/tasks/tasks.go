// package tasks implements the genre-profile engine that routes newly-liked
// tracks into genre-matched playlists.
//
// The core abstraction is [SortEngine], which builds weighted genre profiles
// for each target playlist, scores new likes against them, and drives the
// incremental sync pass. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"time"

	"github.com/desertthunder/genresort/internal/catalog"
	"github.com/desertthunder/genresort/internal/models"
)

// StateStore persists sync state between runs.
// This abstraction allows for easier testing with in-memory fakes.
type StateStore interface {
	// Read loads the persisted state, returning an empty state when none exists.
	Read() (*models.SyncState, error)

	// Write replaces the persisted state atomically.
	Write(*models.SyncState) error
}

// ProfileCache stores computed genre profiles keyed by content version.
type ProfileCache interface {
	// Get returns the entry for (playlistID, snapshotID), or nil on a miss.
	Get(playlistID, snapshotID string) (*models.CachedProfile, error)

	// Put inserts or overwrites an entry.
	Put(*models.CachedProfile) error
}

// DestinationResult aggregates the routing outcome for one target playlist.
type DestinationResult struct {
	PlaylistID string                   // Target playlist
	Decisions  []models.RoutingDecision // Tracks routed here this run
	Added      int                      // Tracks actually appended
	Skipped    int                      // Tracks already present
}

// SyncRunResult contains all data from one incremental sync pass.
type SyncRunResult struct {
	FirstRun     bool                // True when this run only initialized the watermark
	DryRun       bool                // True when writes and state persistence were skipped
	Candidates   int                 // Liked tracks newer than the watermark
	Rebuilt      []string            // Playlists whose rebuild timestamp was refreshed
	Destinations []DestinationResult // Per-target outcomes, in configured order
	Watermark    time.Time           // Watermark after the run
}

// TotalAdded sums appended tracks across destinations.
func (r *SyncRunResult) TotalAdded() int {
	total := 0
	for _, d := range r.Destinations {
		total += d.Added
	}
	return total
}

// TotalSkipped sums duplicate-skipped tracks across destinations.
func (r *SyncRunResult) TotalSkipped() int {
	total := 0
	for _, d := range r.Destinations {
		total += d.Skipped
	}
	return total
}

// SortEngine routes liked tracks into target playlists by genre affinity.
//
// Engine semantics worth noting: profiles are built once at the start of a
// run, so every track in the same run is scored against the same profiles
// even when likes arrive seconds apart. The engine is strictly sequential;
// running two instances against the same state file is unsupported.
type SortEngine struct {
	catalog         catalog.Catalog
	store           StateStore
	cache           ProfileCache
	targets         []string
	rebuildInterval time.Duration
	now             func() time.Time
}

// EngineOpts contains configuration options for creating a SortEngine.
type EngineOpts struct {
	Targets         []string         // Candidate playlists, in tie-break priority order
	RebuildInterval time.Duration    // Profile rebuild budget (default 24h)
	Now             func() time.Time // Clock override for tests
}

// NewSortEngine creates a new SortEngine with the provided dependencies.
func NewSortEngine(cat catalog.Catalog, store StateStore, cache ProfileCache, opts EngineOpts) *SortEngine {
	if opts.RebuildInterval <= 0 {
		opts.RebuildInterval = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &SortEngine{
		catalog:         cat,
		store:           store,
		cache:           cache,
		targets:         opts.Targets,
		rebuildInterval: opts.RebuildInterval,
		now:             opts.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SortEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}
