// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/desertthunder/genresort/internal/models"
	"github.com/desertthunder/genresort/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	pageLimit     = 50
	addTrackChunk = 100
	maxAttempts   = 5
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyArtist represents a Spotify artist with genre tags.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

type artistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track. Artist objects on track payloads
// are simplified references without genre tags.
type SpotifyTrack struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Artists []artistRef `json:"artists"`
	URI     string      `json:"uri"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// SpotifyPlaylistItem represents a track within a playlist context.
type SpotifyPlaylistItem struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistItems represents a page of playlist tracks.
type SpotifyPaginatedPlaylistItems struct {
	Items  []SpotifyPlaylistItem `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Next   *string               `json:"next"`
}

type playlistTrackTotal struct {
	Total int `json:"total"`
}

// SpotifyPlaylistMeta is the snapshot view of a playlist, fetched with a
// fields filter so membership pages are not transferred.
type SpotifyPlaylistMeta struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	SnapshotID string             `json:"snapshot_id"`
	Tracks     playlistTrackTotal `json:"tracks"`
}

// SpotifyCatalog implements the [Catalog] interface for Spotify API interactions.
// Uses [oauth2] for authentication with automatic token refresh, a
// [rate.Limiter] for client-side throttling, and bounded exponential backoff
// for 429 and 5xx responses.
type SpotifyCatalog struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewSpotifyCatalog creates a new Spotify catalog client from credentials.
func NewSpotifyCatalog(creds shared.SpotifyConfig, rps float64) (*SpotifyCatalog, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}
	if rps <= 0 {
		rps = 5.0
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-library-read",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyCatalog{
		config:     config,
		token:      creds.Token(),
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		baseURL:    spotifyBaseURL,
	}, nil
}

// Authenticate binds the stored token to an [oauth2] HTTP client.
// The client transparently refreshes the access token when it expires.
func (s *SpotifyCatalog) Authenticate(ctx context.Context) error {
	if s.token == nil {
		return fmt.Errorf("%w: run 'genresort auth' first", shared.ErrNotAuthenticated)
	}
	s.httpClient = s.config.Client(ctx, s.token)
	return nil
}

// SetToken replaces the client's token, e.g. after a fresh OAuth exchange.
func (s *SpotifyCatalog) SetToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
}

func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyCatalog) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the OAuth2 config for the callback server.
func (s *SpotifyCatalog) OAuthConfig() *oauth2.Config {
	return s.config
}

// retryAfter parses a 429 response's Retry-After header, falling back to
// the supplied duration.
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// refreshToken forces a refresh grant against the token endpoint.
//
// The oauth2 client only refreshes when the local expiry has passed, so a
// server-side 401 (revocation, clock skew) needs an explicit refresh. The
// token source is seeded with only the refresh token, which makes the
// grant unconditional.
func (s *SpotifyCatalog) refreshToken(ctx context.Context) error {
	if s.token == nil || s.token.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token stored", shared.ErrTokenExpired)
	}

	source := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: s.token.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = s.token.RefreshToken
	}

	s.SetToken(ctx, token)
	return nil
}

// doRequest performs an authenticated request to the Spotify API.
//
// 429 responses sleep for Retry-After and 5xx responses sleep on an
// exponential schedule; both are retried up to maxAttempts before the
// error surfaces to the caller. A 401 forces one token refresh and a
// single retry before the expiry surfaces.
func (s *SpotifyCatalog) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := s.baseURL + endpoint

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = 30 * time.Second

	refreshed := false
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			sleep := retryAfter(resp, backoffCfg.NextBackOff())
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: status 429", shared.ErrRateLimited)
			if err := sleepCtx(ctx, sleep); err != nil {
				return err
			}
			continue

		case resp.StatusCode >= 500:
			sleep := backoffCfg.NextBackOff()
			if sleep == backoff.Stop {
				sleep = backoffCfg.MaxInterval
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
			if err := sleepCtx(ctx, sleep); err != nil {
				return err
			}
			continue

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			if refreshed {
				return fmt.Errorf("%w: status 401", shared.ErrTokenExpired)
			}
			if err := s.refreshToken(ctx); err != nil {
				return err
			}
			refreshed = true
			continue

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, endpoint)

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			resp.Body.Close()
			return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				resp.Body.Close()
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		resp.Body.Close()
		return nil
	}

	return fmt.Errorf("retries exhausted: %w", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyCatalog) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SavedTracksPage retrieves one page of the user's saved tracks, newest-first.
func (s *SpotifyCatalog) SavedTracksPage(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// PlaylistItemsPage retrieves one page of a playlist's tracks.
func (s *SpotifyCatalog) PlaylistItemsPage(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistItems, error) {
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

	var response SpotifyPaginatedPlaylistItems
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// SeveralArtists retrieves multiple artists by their IDs (up to 50).
func (s *SpotifyCatalog) SeveralArtists(ctx context.Context, artistIDs []string) ([]SpotifyArtist, error) {
	if len(artistIDs) == 0 {
		return nil, fmt.Errorf("%w: no artist IDs provided", shared.ErrInvalidArgument)
	}
	if len(artistIDs) > MaxArtistBatch {
		return nil, fmt.Errorf("%w: maximum %d artist IDs allowed", shared.ErrInvalidArgument, MaxArtistBatch)
	}

	ids := strings.Join(artistIDs, ",")
	endpoint := fmt.Sprintf("/artists?ids=%s", url.QueryEscape(ids))

	var response struct {
		Artists []SpotifyArtist `json:"artists"`
	}

	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return response.Artists, nil
}

// PlaylistMeta retrieves a playlist's snapshot ID and track count without
// transferring its membership.
func (s *SpotifyCatalog) PlaylistMeta(ctx context.Context, playlistID string) (*SpotifyPlaylistMeta, error) {
	endpoint := fmt.Sprintf("/playlists/%s?fields=%s", playlistID, url.QueryEscape("id,name,snapshot_id,tracks.total"))

	var meta SpotifyPlaylistMeta
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// Catalog interface implementation

// IterateLikedTracks walks the saved-tracks library newest-first.
//
// Spotify returns saved tracks ordered by added_at descending, which the
// sync engine relies on for its watermark cut-off.
func (s *SpotifyCatalog) IterateLikedTracks(ctx context.Context, fn func(models.LikedTrack) (bool, error)) error {
	offset := 0

	for {
		page, err := s.SavedTracksPage(ctx, pageLimit, offset)
		if err != nil {
			return err
		}

		for _, item := range page.Items {
			likedAt, err := time.Parse(time.RFC3339, item.AddedAt)
			if err != nil {
				return fmt.Errorf("invalid added_at %q: %w", item.AddedAt, err)
			}

			track := models.LikedTrack{
				ID:      item.Track.ID,
				Name:    item.Track.Name,
				LikedAt: likedAt,
			}
			for _, a := range item.Track.Artists {
				track.ArtistIDs = append(track.ArtistIDs, a.ID)
			}

			cont, err := fn(track)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}

		if page.Next == nil {
			return nil
		}
		offset += pageLimit
	}
}

// PlaylistTracks retrieves a playlist's full membership.
func (s *SpotifyCatalog) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0

	for {
		page, err := s.PlaylistItemsPage(ctx, playlistID, pageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			// Local files and removed tracks come back with an empty ID.
			if item.Track.ID == "" {
				continue
			}
			track := models.Track{
				ID:   item.Track.ID,
				Name: item.Track.Name,
			}
			for _, a := range item.Track.Artists {
				track.ArtistIDs = append(track.ArtistIDs, a.ID)
			}
			tracks = append(tracks, track)
		}

		if page.Next == nil {
			return tracks, nil
		}
		offset += pageLimit
	}
}

// Artists retrieves genre metadata for a batch of artists.
func (s *SpotifyCatalog) Artists(ctx context.Context, ids []string) (map[string]models.Artist, error) {
	artists, err := s.SeveralArtists(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make(map[string]models.Artist, len(artists))
	for _, a := range artists {
		if a.ID == "" {
			continue
		}
		result[a.ID] = models.Artist{
			ID:     a.ID,
			Name:   a.Name,
			Genres: a.Genres,
		}
	}

	return result, nil
}

// PlaylistVersion retrieves a playlist's current content version.
func (s *SpotifyCatalog) PlaylistVersion(ctx context.Context, playlistID string) (*models.PlaylistVersion, error) {
	meta, err := s.PlaylistMeta(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistVersion{
		PlaylistID: playlistID,
		SnapshotID: meta.SnapshotID,
		TrackCount: meta.Tracks.Total,
	}, nil
}

// AddTracksIfMissing appends tracks to a playlist, skipping IDs already
// present. The membership check makes repeated runs idempotent.
func (s *SpotifyCatalog) AddTracksIfMissing(ctx context.Context, playlistID string, trackIDs []string) (*models.AddResult, error) {
	existing, err := s.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(existing))
	for _, t := range existing {
		present[t.ID] = true
	}

	var missing []string
	result := &models.AddResult{}
	for _, id := range trackIDs {
		if present[id] {
			result.Skipped++
			continue
		}
		missing = append(missing, id)
	}

	for start := 0; start < len(missing); start += addTrackChunk {
		end := min(start+addTrackChunk, len(missing))

		uris := make([]string, 0, end-start)
		for _, id := range missing[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}

		body := map[string]any{"uris": uris}
		endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return result, err
		}
		result.Added += end - start
	}

	return result, nil
}
