package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/genresort/internal/models"
)

// ProfileCacheRepository persists computed genre profiles keyed by playlist
// content version.
type ProfileCacheRepository struct {
	db *sql.DB
}

// NewProfileCacheRepository creates a new ProfileCacheRepository with the given database connection
func NewProfileCacheRepository(db *sql.DB) *ProfileCacheRepository {
	return &ProfileCacheRepository{db: db}
}

// Get retrieves the cached profile for (playlistID, snapshotID).
// Returns (nil, nil) on a cache miss.
func (r *ProfileCacheRepository) Get(playlistID, snapshotID string) (*models.CachedProfile, error) {
	query := `
		SELECT playlist_id, snapshot_id, track_count, built_at, profile
		FROM profile_cache
		WHERE playlist_id = ? AND snapshot_id = ?
	`

	var entry models.CachedProfile
	var builtAt time.Time
	var profileJSON string

	err := r.db.QueryRow(query, playlistID, snapshotID).Scan(
		&entry.PlaylistID,
		&entry.SnapshotID,
		&entry.TrackCount,
		&builtAt,
		&profileJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached profile: %w", err)
	}

	entry.BuiltAt = builtAt.UTC()
	if err := json.Unmarshal([]byte(profileJSON), &entry.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}

	return &entry, nil
}

// Put inserts or overwrites a cache entry. Entries for other snapshots of
// the same playlist are left in place.
func (r *ProfileCacheRepository) Put(entry *models.CachedProfile) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	profileJSON, err := json.Marshal(entry.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	query := `
		INSERT INTO profile_cache (playlist_id, snapshot_id, track_count, built_at, profile)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(playlist_id, snapshot_id) DO UPDATE SET
			track_count = excluded.track_count,
			built_at = excluded.built_at,
			profile = excluded.profile
	`

	_, err = r.db.Exec(query,
		entry.PlaylistID,
		entry.SnapshotID,
		entry.TrackCount,
		entry.BuiltAt.UTC(),
		string(profileJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to write cached profile: %w", err)
	}

	return nil
}

// Count returns the number of cache entries for a playlist across all snapshots.
func (r *ProfileCacheRepository) Count(playlistID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM profile_cache WHERE playlist_id = ?", playlistID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}
