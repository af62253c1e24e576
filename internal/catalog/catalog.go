// package catalog defines the Catalog interface for music-service APIs
//
// Spotify is the only implementation.
package catalog

import (
	"context"

	"github.com/desertthunder/genresort/internal/models"
	"golang.org/x/oauth2"
)

// MaxArtistBatch is the largest artist batch the catalog accepts per request.
const MaxArtistBatch = 50

// Catalog defines read access to a music service's library, playlists and
// artist metadata, plus idempotent write access for routed tracks.
//
// Implementations convert raw API payloads into models types at this
// boundary and retry transient failures (rate limits, expired tokens)
// internally with bounded attempts.
type Catalog interface {
	// Authenticate binds stored OAuth tokens to the client.
	// Returns an error if no usable token is available.
	Authenticate(ctx context.Context) error

	// IterateLikedTracks walks the user's liked songs newest-first, calling
	// fn for each track. Iteration stops when fn returns false or an error,
	// or when the library is exhausted.
	IterateLikedTracks(ctx context.Context, fn func(models.LikedTrack) (bool, error)) error

	// PlaylistTracks retrieves a playlist's full membership, paginating as needed.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// Artists retrieves genre metadata for up to [MaxArtistBatch] artists.
	Artists(ctx context.Context, ids []string) (map[string]models.Artist, error)

	// PlaylistVersion retrieves a playlist's current content version and track count.
	PlaylistVersion(ctx context.Context, playlistID string) (*models.PlaylistVersion, error)

	// AddTracksIfMissing appends tracks to a playlist, skipping any already present.
	AddTracksIfMissing(ctx context.Context, playlistID string, trackIDs []string) (*models.AddResult, error)

	// Name returns the service name (e.g. "Spotify")
	Name() string
}

// Authorizer is implemented by catalogs that use a server-side OAuth2
// authorization-code flow. The CLI uses it to drive the browser dance.
type Authorizer interface {
	// AuthURL returns the user-facing authorization URL for the given state token.
	AuthURL(state string) string

	// OAuthConfig exposes the underlying [oauth2.Config] for the callback exchange.
	OAuthConfig() *oauth2.Config
}
