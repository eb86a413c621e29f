// package services defines interface Service for interacting with music provider HTTP APIs
package services

import (
	"context"

	"golang.org/x/oauth2"

	"cleanwave/internal/models"
)

// Service defines the interface for a music service provider that can read,
// search, and write playlists.
type Service interface {
	// Authenticate performs OAuth or token authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user,
	// following pagination to exhaustion.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist exports a playlist with its full ordered track listing,
	// following pagination to exhaustion.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// ImportPlaylist creates a new playlist and populates it with the provided
	// tracks, batching writes to respect the service's per-request ceiling.
	ImportPlaylist(ctx context.Context, playlist *models.PlaylistExport) (*models.Playlist, error)

	// SearchTracks searches the service's catalog and returns candidate tracks
	// in the service's relevance order.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends Service with the OAuth2 authorization-code flow pieces
// needed by the CLI's callback server.
type OAuthService interface {
	Service

	// GetAuthURL returns the OAuth2 authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the underlying OAuth2 config for the callback handler.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate authenticates with a previously issued token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
