package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/genresort/internal/models"
)

// StateRepository persists the sync watermark and profile rebuild timestamps.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new StateRepository with the given database connection
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Read loads the persisted sync state. A missing row is not an error: the
// result is an empty state with a nil watermark, which the engine treats as
// a first run.
func (r *StateRepository) Read() (*models.SyncState, error) {
	state := models.NewSyncState()

	var watermark sql.NullTime
	err := r.db.QueryRow("SELECT watermark FROM sync_state WHERE id = 1").Scan(&watermark)
	switch {
	case err == sql.ErrNoRows:
		// first run, nothing persisted yet
	case err != nil:
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	case watermark.Valid:
		t := watermark.Time.UTC()
		state.Watermark = &t
	}

	rows, err := r.db.Query("SELECT playlist_id, rebuilt_at FROM profile_rebuilds")
	if err != nil {
		return nil, fmt.Errorf("failed to read rebuild timestamps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var playlistID string
		var rebuiltAt time.Time
		if err := rows.Scan(&playlistID, &rebuiltAt); err != nil {
			return nil, fmt.Errorf("failed to scan rebuild timestamp: %w", err)
		}
		state.Rebuilds[playlistID] = rebuiltAt.UTC()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rebuild timestamps: %w", err)
	}

	return state, nil
}

// Write replaces the persisted state in a single transaction.
func (r *StateRepository) Write(state *models.SyncState) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var watermark any
	if state.Watermark != nil {
		watermark = state.Watermark.UTC()
	}

	query := `
		INSERT INTO sync_state (id, watermark, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET watermark = excluded.watermark, updated_at = excluded.updated_at
	`
	if _, err := tx.Exec(query, watermark, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write watermark: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM profile_rebuilds"); err != nil {
		return fmt.Errorf("failed to clear rebuild timestamps: %w", err)
	}

	for playlistID, rebuiltAt := range state.Rebuilds {
		_, err := tx.Exec(
			"INSERT INTO profile_rebuilds (playlist_id, rebuilt_at) VALUES (?, ?)",
			playlistID, rebuiltAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to write rebuild timestamp for %s: %w", playlistID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}

	return nil
}
