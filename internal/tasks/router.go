package tasks

import "github.com/desertthunder/genresort/internal/models"

// Score sums a profile's weights over the track's genre set. Genres absent
// from the profile contribute zero. Pure and deterministic.
func Score(trackGenres []string, profile models.GenreProfile) int {
	total := 0
	for _, g := range trackGenres {
		total += profile[g]
	}
	return total
}

// PickBestPlaylist scores trackGenres against every profile and returns the
// playlist with the strictly highest score.
//
// Ties go to the first playlist in the caller-supplied order, which makes
// routing deterministic as long as the target configuration is ordered. An
// empty genre set therefore lands in the first playlist (every score is
// zero and the first tie wins) rather than being an error. Returns ok=false
// only when none of the ordered targets has a profile.
func PickBestPlaylist(trackGenres []string, order []string, profiles map[string]models.GenreProfile) (playlistID string, score int, ok bool) {
	best := -1

	for _, id := range order {
		profile, exists := profiles[id]
		if !exists {
			continue
		}

		s := Score(trackGenres, profile)
		if s > best {
			best = s
			playlistID = id
			ok = true
		}
	}

	return playlistID, best, ok
}
