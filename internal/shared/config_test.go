package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "cleanwave.db" {
			t.Errorf("expected database path cleanwave.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Cleaner.RateLimit != 5.0 {
			t.Errorf("expected rate limit 5.0, got %f", config.Cleaner.RateLimit)
		}

		if config.Cleaner.DestSuffix != " (Clean)" {
			t.Errorf("expected dest suffix ' (Clean)', got %q", config.Cleaner.DestSuffix)
		}

		if config.Credentials.Spotify.RedirectURI != "http://localhost:3000/callback" {
			t.Errorf("expected default redirect URI, got %s", config.Credentials.Spotify.RedirectURI)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[cleaner]
rate_limit = 2.5
max_retries = 5
search_limit = 20
dest_suffix = " [clean]"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Cleaner.SearchLimit != 20 {
			t.Errorf("expected search limit 20, got %d", config.Cleaner.SearchLimit)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("SaveConfig Round Trip", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "saved_id"
		config.Credentials.Spotify.AccessToken = "saved_token"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		info, err := os.Stat(configPath)
		if err != nil {
			t.Fatalf("saved config should exist: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected owner-only permissions, got %o", perm)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}

		if loaded.Credentials.Spotify.ClientID != "saved_id" {
			t.Errorf("client_id not persisted, got %s", loaded.Credentials.Spotify.ClientID)
		}
		if loaded.Credentials.Spotify.AccessToken != "saved_token" {
			t.Errorf("access token not persisted, got %s", loaded.Credentials.Spotify.AccessToken)
		}
	})
}

func TestSpotifyConfig(t *testing.T) {
	t.Run("Map", func(t *testing.T) {
		sc := SpotifyConfig{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURI:  "http://localhost:3000/callback",
		}

		m := sc.Map()
		if m["client_id"] != "id" || m["client_secret"] != "secret" {
			t.Errorf("credential map incomplete: %v", m)
		}
		if m["redirect_uri"] != "http://localhost:3000/callback" {
			t.Errorf("redirect_uri missing from map: %v", m)
		}
	})

	t.Run("Token", func(t *testing.T) {
		sc := SpotifyConfig{}
		if sc.Token() != nil {
			t.Error("expected nil token when nothing is stored")
		}

		expiry := time.Now().Add(time.Hour).Truncate(time.Second)
		sc = SpotifyConfig{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenExpiry:  expiry,
		}

		token := sc.Token()
		if token == nil {
			t.Fatal("expected stored token")
		}
		if token.AccessToken != "access" || token.RefreshToken != "refresh" {
			t.Errorf("token fields not reconstructed: %+v", token)
		}
		if !token.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, token.Expiry)
		}
	})

	t.Run("Update", func(t *testing.T) {
		sc := SpotifyConfig{RefreshToken: "old_refresh"}

		if err := sc.Update(nil); err == nil {
			t.Error("updating with nil token should fail")
		}

		err := sc.Update(&oauth2.Token{AccessToken: "new_access"})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if sc.AccessToken != "new_access" {
			t.Errorf("access token not updated: %s", sc.AccessToken)
		}
		if sc.RefreshToken != "old_refresh" {
			t.Errorf("empty refresh token should not clobber stored one, got %s", sc.RefreshToken)
		}

		err = sc.Update(&oauth2.Token{AccessToken: "a", RefreshToken: "new_refresh"})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if sc.RefreshToken != "new_refresh" {
			t.Errorf("refresh token not updated: %s", sc.RefreshToken)
		}
	})
}
