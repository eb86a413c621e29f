package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"cleanwave/internal/models"
	"cleanwave/internal/shared"
)

func newTestService(t *testing.T, handler http.Handler) (*SpotifyService, *httptest.Server) {
	t.Helper()

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	srv.SetBaseURL(ts.URL)
	srv.SetRateLimit(1000)
	srv.token = &oauth2.Token{AccessToken: "test_token", TokenType: "Bearer"}
	srv.httpClient = ts.Client()

	return srv, ts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://localhost:3000/callback",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "s"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "c"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "c",
				"client_secret": "s",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.config.RedirectURL != "http://localhost:3000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("GetAuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Unauthenticated Request", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "c",
			"client_secret": "s",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		_, err = srv.GetPlaylists(context.Background())
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSpotifyService_GetPlaylists(t *testing.T) {
	t.Run("follows pagination to exhaustion", func(t *testing.T) {
		var requests []string
		mux := http.NewServeMux()
		mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.URL.RawQuery)
			offset := r.URL.Query().Get("offset")

			if offset == "0" {
				next := "more"
				writeJSON(w, SpotifyPaginatedPlaylists{
					Items: []SpotifyPlaylist{
						{ID: "p1", Name: "First", Tracks: playlistTracksRef{Total: 3}},
					},
					Next: &next,
				})
				return
			}
			writeJSON(w, SpotifyPaginatedPlaylists{
				Items: []SpotifyPlaylist{
					{ID: "p2", Name: "Second", Owner: Owner{ID: "user1"}},
				},
			})
		})

		srv, _ := newTestService(t, mux)

		playlists, err := srv.GetPlaylists(context.Background())
		if err != nil {
			t.Fatalf("GetPlaylists() error = %v", err)
		}

		if len(requests) != 2 {
			t.Errorf("expected 2 page requests, got %d", len(requests))
		}
		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].ID != "p1" || playlists[1].ID != "p2" {
			t.Errorf("unexpected playlist order: %s, %s", playlists[0].ID, playlists[1].ID)
		}
		if playlists[0].TrackCount != 3 {
			t.Errorf("expected track count mapped, got %d", playlists[0].TrackCount)
		}
		if playlists[1].OwnerID != "user1" {
			t.Errorf("expected owner mapped, got %q", playlists[1].OwnerID)
		}
	})
}

func TestSpotifyService_ExportPlaylist(t *testing.T) {
	t.Run("collects all pages in order", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/playlists/p1", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, SpotifyPlaylist{
				ID: "p1", Name: "Mix", Description: "desc",
				Tracks: playlistTracksRef{Total: 3},
			})
		})
		mux.HandleFunc("/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
			offset := r.URL.Query().Get("offset")
			if offset == "0" {
				next := "more"
				writeJSON(w, SpotifyPaginatedItems{
					Items: []SpotifyPlaylistItem{
						{Track: SpotifyTrack{ID: "t1", Name: "One", Artists: []SpotifyArtist{{Name: "A"}}, DurationMS: 215000, Explicit: true}},
						{Track: SpotifyTrack{}}, // local file, no ID
					},
					Next: &next,
				})
				return
			}
			writeJSON(w, SpotifyPaginatedItems{
				Items: []SpotifyPlaylistItem{
					{Track: SpotifyTrack{ID: "t2", Name: "Two", Artists: []SpotifyArtist{{Name: "B"}}}},
				},
			})
		})

		srv, _ := newTestService(t, mux)

		export, err := srv.ExportPlaylist(context.Background(), "p1")
		if err != nil {
			t.Fatalf("ExportPlaylist() error = %v", err)
		}

		if export.Playlist.Name != "Mix" {
			t.Errorf("playlist name = %q", export.Playlist.Name)
		}
		if len(export.Tracks) != 2 {
			t.Fatalf("expected 2 tracks (ID-less item skipped), got %d", len(export.Tracks))
		}
		if export.Tracks[0].ID != "t1" || export.Tracks[1].ID != "t2" {
			t.Errorf("unexpected track order: %s, %s", export.Tracks[0].ID, export.Tracks[1].ID)
		}
		if export.Tracks[0].Duration != 215 {
			t.Errorf("duration not converted to seconds: %d", export.Tracks[0].Duration)
		}
		if !export.Tracks[0].Explicit {
			t.Error("explicit flag not mapped")
		}
		if export.Tracks[0].Artist != "A" {
			t.Errorf("primary artist not mapped: %q", export.Tracks[0].Artist)
		}
	})

	t.Run("missing playlist", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]any{"error": map[string]any{"status": 404, "message": "Not found."}})
		})

		srv, _ := newTestService(t, mux)

		_, err := srv.ExportPlaylist(context.Background(), "missing")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestSpotifyService_SearchTracks(t *testing.T) {
	t.Run("sends escaped query and limit", func(t *testing.T) {
		var gotQuery, gotType, gotLimit string
		mux := http.NewServeMux()
		mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("q")
			gotType = r.URL.Query().Get("type")
			gotLimit = r.URL.Query().Get("limit")

			var resp searchResponse
			resp.Tracks.Items = []SpotifyTrack{
				{ID: "c1", Name: "Song", Artists: []SpotifyArtist{{Name: "Artist"}}, Popularity: 70},
			}
			writeJSON(w, resp)
		})

		srv, _ := newTestService(t, mux)

		tracks, err := srv.SearchTracks(context.Background(), "Song & Title Artist clean", 50)
		if err != nil {
			t.Fatalf("SearchTracks() error = %v", err)
		}

		if gotQuery != "Song & Title Artist clean" {
			t.Errorf("query = %q", gotQuery)
		}
		if gotType != "track" {
			t.Errorf("type = %q, want track", gotType)
		}
		if gotLimit != "50" {
			t.Errorf("limit = %q, want 50", gotLimit)
		}
		if len(tracks) != 1 || tracks[0].Popularity != 70 {
			t.Errorf("unexpected tracks: %+v", tracks)
		}
	})

	t.Run("clamps out-of-range limit", func(t *testing.T) {
		var gotLimit string
		mux := http.NewServeMux()
		mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
			gotLimit = r.URL.Query().Get("limit")
			writeJSON(w, searchResponse{})
		})

		srv, _ := newTestService(t, mux)

		if _, err := srv.SearchTracks(context.Background(), "q", 500); err != nil {
			t.Fatalf("SearchTracks() error = %v", err)
		}
		if gotLimit != "50" {
			t.Errorf("limit = %q, want clamped 50", gotLimit)
		}
	})
}

func TestSpotifyService_RateLimiting(t *testing.T) {
	t.Run("retries 429 honoring Retry-After", func(t *testing.T) {
		attempts := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				writeJSON(w, map[string]any{"error": map[string]any{"status": 429, "message": "rate limited"}})
				return
			}
			writeJSON(w, SpotifyPaginatedPlaylists{
				Items: []SpotifyPlaylist{{ID: "p1", Name: "Mix"}},
			})
		})

		srv, _ := newTestService(t, mux)

		playlists, err := srv.GetPlaylists(context.Background())
		if err != nil {
			t.Fatalf("GetPlaylists() error = %v", err)
		}
		if attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts)
		}
		if len(playlists) != 1 {
			t.Errorf("expected playlist after retry, got %d", len(playlists))
		}
	})

	t.Run("gives up after bounded retries", func(t *testing.T) {
		attempts := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		srv, _ := newTestService(t, mux)
		srv.SetMaxRetries(2)

		_, err := srv.GetPlaylists(context.Background())
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts (initial + 2 retries), got %d", attempts)
		}
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		attempts := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			writeJSON(w, SpotifyPaginatedPlaylists{})
		})

		srv, _ := newTestService(t, mux)

		if _, err := srv.GetPlaylists(context.Background()); err != nil {
			t.Fatalf("GetPlaylists() error = %v", err)
		}
		if attempts != 2 {
			t.Errorf("expected retry on 502, got %d attempts", attempts)
		}
	})
}

func TestSpotifyService_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "401 maps to token expired", status: http.StatusUnauthorized, want: shared.ErrTokenExpired},
		{name: "403 maps to auth failed", status: http.StatusForbidden, want: shared.ErrAuthFailed},
		{name: "404 maps to playlist not found", status: http.StatusNotFound, want: shared.ErrPlaylistNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			srv, _ := newTestService(t, mux)

			_, err := srv.GetPlaylist(context.Background(), "p1")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSpotifyService_ImportPlaylist(t *testing.T) {
	t.Run("creates playlist and adds tracks in chunks", func(t *testing.T) {
		var chunks [][]string
		mux := http.NewServeMux()
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, SpotifyUser{ID: "user1"})
		})
		mux.HandleFunc("/users/user1/playlists", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Public      bool   `json:"public"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if body.Name != "Mix (Clean)" {
				t.Errorf("create name = %q", body.Name)
			}
			if body.Public {
				t.Error("expected private playlist")
			}
			writeJSON(w, SpotifyPlaylist{ID: "new1", Name: body.Name, Description: body.Description})
		})
		mux.HandleFunc("/playlists/new1/tracks", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			chunks = append(chunks, body.URIs)
			writeJSON(w, map[string]string{"snapshot_id": "snap"})
		})

		srv, _ := newTestService(t, mux)

		export := &models.PlaylistExport{
			Playlist: models.Playlist{Name: "Mix (Clean)"},
		}
		for i := 0; i < 150; i++ {
			export.Tracks = append(export.Tracks, models.Track{ID: fmt.Sprintf("t%d", i)})
		}

		created, err := srv.ImportPlaylist(context.Background(), export)
		if err != nil {
			t.Fatalf("ImportPlaylist() error = %v", err)
		}

		if created.ID != "new1" {
			t.Errorf("created ID = %q", created.ID)
		}
		if created.TrackCount != 150 {
			t.Errorf("created track count = %d", created.TrackCount)
		}
		if len(chunks) != 2 {
			t.Fatalf("expected 2 add chunks, got %d", len(chunks))
		}
		if len(chunks[0]) != 100 || len(chunks[1]) != 50 {
			t.Errorf("chunk sizes = %d, %d", len(chunks[0]), len(chunks[1]))
		}
		if chunks[0][0] != "spotify:track:t0" {
			t.Errorf("expected URI built from track ID, got %q", chunks[0][0])
		}
		if chunks[1][0] != "spotify:track:t100" {
			t.Errorf("chunks out of order, second starts with %q", chunks[1][0])
		}
	})

	t.Run("failed chunk reports written count", func(t *testing.T) {
		calls := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, SpotifyUser{ID: "user1"})
		})
		mux.HandleFunc("/users/user1/playlists", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, SpotifyPlaylist{ID: "new1", Name: "Mix"})
		})
		mux.HandleFunc("/playlists/new1/tracks", func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls > 1 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			writeJSON(w, map[string]string{"snapshot_id": "snap"})
		})

		srv, _ := newTestService(t, mux)

		export := &models.PlaylistExport{Playlist: models.Playlist{Name: "Mix"}}
		for i := 0; i < 150; i++ {
			export.Tracks = append(export.Tracks, models.Track{ID: fmt.Sprintf("t%d", i)})
		}

		_, err := srv.ImportPlaylist(context.Background(), export)
		if !errors.Is(err, shared.ErrWriteFailed) {
			t.Fatalf("expected ErrWriteFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "after 100 of 150 tracks") {
			t.Errorf("expected written count in error, got: %v", err)
		}
	})

	t.Run("rejects export without a name", func(t *testing.T) {
		srv, _ := newTestService(t, http.NewServeMux())

		_, err := srv.ImportPlaylist(context.Background(), &models.PlaylistExport{})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
