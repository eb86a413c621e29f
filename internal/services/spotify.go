// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"cleanwave/internal/models"
	"cleanwave/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// maxItemsPerAdd is the Web API ceiling for POST /playlists/{id}/tracks.
	maxItemsPerAdd = 100
	// pageLimit is the page size used when listing playlist items.
	pageLimit = 100

	defaultRateLimit  = 5.0
	defaultMaxRetries = 3
	maxRetryAfter     = 30 * time.Second
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   followers `json:"followers"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	URI         string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// Owner identifies a playlist's owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       Owner             `json:"owner"`
	Public      bool              `json:"public"`
	Tracks      playlistTracksRef `json:"tracks"`
	URI         string            `json:"uri"`
}

// SpotifyPlaylistItem represents a track within a playlist context.
type SpotifyPlaylistItem struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedItems represents a paginated response of playlist items.
type SpotifyPaginatedItems struct {
	Items    []SpotifyPlaylistItem `json:"items"`
	Total    int                   `json:"total"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
	Next     *string               `json:"next"`
	Previous *string               `json:"previous"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifyPlaylist `json:"items"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type apiErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService implements [Service] for Spotify Web API interactions.
// Uses [oauth2] for authentication and gates every request through a
// [rate.Limiter] with bounded retries on 429/5xx responses.
type SpotifyService struct {
	config      *oauth2.Config
	token       *oauth2.Token
	httpClient  *http.Client
	credentials map[string]string
	limiter     *rate.Limiter
	maxRetries  int
	baseURL     string
	userID      string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		credentials: credentials,
		limiter:     rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
		maxRetries:  defaultMaxRetries,
		baseURL:     spotifyBaseURL,
	}, nil
}

// SetRateLimit adjusts the requests-per-second ceiling for API calls.
func (s *SpotifyService) SetRateLimit(rps float64) {
	if rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// SetMaxRetries adjusts the bounded retry count for 429/5xx responses.
func (s *SpotifyService) SetMaxRetries(n int) {
	if n >= 0 {
		s.maxRetries = n
	}
}

// SetBaseURL overrides the API base URL. Used by tests against httptest servers.
func (s *SpotifyService) SetBaseURL(u string) {
	s.baseURL = u
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		return s.OAuthenticate(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// OAuthenticate authenticates with a previously issued token.
//
// The oauth2 client transparently refreshes expired tokens when a refresh
// token is present.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", shared.ErrInvalidCredentials)
	}
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
	s.userID = ""
	return nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 config for the callback handler.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// Every request waits on the rate limiter first. 429 responses honor the
// Retry-After header and 5xx responses back off briefly; both are retried at
// most maxRetries times before the request fails with [shared.ErrRateLimited]
// or [shared.ErrAPIRequest].
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	apiURL := s.baseURL + endpoint

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		var reader *bytes.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		var req *http.Request
		var err error
		if reader != nil {
			req, err = http.NewRequestWithContext(ctx, method, apiURL, reader)
		} else {
			req, err = http.NewRequestWithContext(ctx, method, apiURL, nil)
		}
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		retry, err := s.handleResponse(resp, result)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay(resp)):
		}
	}

	return lastErr
}

// handleResponse decodes a response or classifies its failure.
// The bool return indicates whether the request may be retried.
func (s *SpotifyService) handleResponse(resp *http.Response, result any) (bool, error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return false, fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return false, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return false, fmt.Errorf("%w: %s", shared.ErrTokenExpired, apiErrorMessage(resp))

	case resp.StatusCode == http.StatusForbidden:
		return false, fmt.Errorf("%w: %s", shared.ErrAuthFailed, apiErrorMessage(resp))

	case resp.StatusCode == http.StatusNotFound:
		return false, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, apiErrorMessage(resp))

	case resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("%w: %s", shared.ErrRateLimited, apiErrorMessage(resp))

	case resp.StatusCode >= 500:
		return true, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)

	default:
		return false, fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, apiErrorMessage(resp))
	}
}

// retryDelay returns how long to wait before the next attempt, honoring
// Retry-After on 429 responses up to a ceiling.
func retryDelay(resp *http.Response) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
				d := time.Duration(secs) * time.Second
				if d > maxRetryAfter {
					d = maxRetryAfter
				}
				return d
			}
		}
	}
	return time.Second
}

// apiErrorMessage extracts the error message from a Spotify error body, best effort.
func apiErrorMessage(resp *http.Response) string {
	var body apiErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	s.userID = user.ID
	return &user, nil
}

// Playlist retrieves a playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

// PlaylistItems retrieves one page of a playlist's tracks.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedItems, error) {
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

	var page SpotifyPaginatedItems
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var page SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// CreatePlaylist creates an empty playlist for the given user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", userID)

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

// AddTracks appends track URIs to a playlist in chunks of at most 100 per
// request, the Web API's ceiling. A failed chunk aborts with
// [shared.ErrWriteFailed] wrapping the count of tracks already written.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	for added := 0; added < len(uris); added += maxItemsPerAdd {
		end := added + maxItemsPerAdd
		if end > len(uris) {
			end = len(uris)
		}

		endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
		body := map[string]any{"uris": uris[added:end]}

		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return fmt.Errorf("%w after %d of %d tracks: %v", shared.ErrWriteFailed, added, len(uris), err)
		}
	}

	return nil
}

// Service interface implementation

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var allPlaylists []models.Playlist
	limit := 50
	offset := 0

	for {
		page, err := s.UserPlaylists(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			allPlaylists = append(allPlaylists, toPlaylist(&sp))
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return allPlaylists, nil
}

// GetPlaylist retrieves a specific playlist by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	pl := toPlaylist(sp)
	return &pl, nil
}

// ExportPlaylist exports a playlist with all its tracks, following the
// paginated item listing until exhausted.
func (s *SpotifyService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	var tracks []models.Track
	offset := 0

	for {
		page, err := s.PlaylistItems(ctx, playlistID, pageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			// Local files and removed tracks come back without an ID.
			if item.Track.ID == "" {
				continue
			}
			tracks = append(tracks, toTrack(item.Track))
		}

		if page.Next == nil {
			break
		}
		offset += pageLimit
	}

	return &models.PlaylistExport{
		Playlist: toPlaylist(sp),
		Tracks:   tracks,
	}, nil
}

// ImportPlaylist creates a playlist and populates it with the export's tracks.
func (s *SpotifyService) ImportPlaylist(ctx context.Context, export *models.PlaylistExport) (*models.Playlist, error) {
	if export == nil || export.Playlist.Name == "" {
		return nil, fmt.Errorf("%w: export is missing a playlist name", shared.ErrInvalidInput)
	}

	if s.userID == "" {
		if _, err := s.UserProfile(ctx); err != nil {
			return nil, err
		}
	}

	created, err := s.CreatePlaylist(ctx, s.userID, export.Playlist.Name, export.Playlist.Description, export.Playlist.Public)
	if err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(export.Tracks))
	for _, t := range export.Tracks {
		uris = append(uris, trackURI(t))
	}

	if err := s.AddTracks(ctx, created.ID, uris); err != nil {
		return nil, err
	}

	pl := toPlaylist(created)
	pl.TrackCount = len(export.Tracks)
	return &pl, nil
}

// SearchTracks searches the catalog for tracks matching the query.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		tracks = append(tracks, toTrack(item))
	}

	return tracks, nil
}

// toPlaylist maps a Spotify playlist response onto the domain DTO.
func toPlaylist(sp *SpotifyPlaylist) models.Playlist {
	return models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
		OwnerID:     sp.Owner.ID,
	}
}

// toTrack maps a Spotify track response onto the domain DTO.
func toTrack(st SpotifyTrack) models.Track {
	track := models.Track{
		ID:         st.ID,
		Title:      st.Name,
		Album:      st.Album.Name,
		Duration:   st.DurationMS / 1000,
		Explicit:   st.Explicit,
		Popularity: st.Popularity,
		URI:        st.URI,
	}

	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}

	return track
}

// trackURI builds the URI form the add-items endpoint expects.
func trackURI(t models.Track) string {
	if t.URI != "" {
		return t.URI
	}
	return "spotify:track:" + t.ID
}
