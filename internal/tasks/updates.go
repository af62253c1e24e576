package tasks

import (
	"fmt"

	"github.com/desertthunder/genresort/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadState Phase = iota
	BuildProfiles
	StreamLikes
	RouteTracks
	WriteTracks
	PersistState
)

func (p Phase) String() string {
	switch p {
	case LoadState:
		return "load_state"
	case BuildProfiles:
		return "build_profiles"
	case StreamLikes:
		return "stream_likes"
	case RouteTracks:
		return "route_tracks"
	case WriteTracks:
		return "write_tracks"
	case PersistState:
		return "persist_state"
	default:
		return ""
	}
}

func loadStateUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadState,
		Step:    1,
		Total:   1,
		Message: "Loading sync state...",
	}
}

func buildProfileUpdate(step, total int, playlistID string, cached bool) ProgressUpdate {
	msg := fmt.Sprintf("Building genre profile for %s...", playlistID)
	if cached {
		msg = fmt.Sprintf("Using cached genre profile for %s", playlistID)
	}
	return ProgressUpdate{
		Phase:   BuildProfiles,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}

func streamLikesUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StreamLikes,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Found %d new liked tracks", count),
	}
}

func routeTrackUpdate(step, total int, decision models.RoutingDecision) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RouteTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Routed %q to %s (score %d)", decision.TrackName, decision.PlaylistID, decision.Score),
		Data:    decision,
	}
}

func writeTracksUpdate(step, total int, playlistID string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Adding %d tracks to %s...", count, playlistID),
	}
}

func persistStateUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistState,
		Step:    1,
		Total:   1,
		Message: "Persisting sync state...",
	}
}
