package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestLoadConfig(t *testing.T) {
	t.Run("parses a complete config", func(t *testing.T) {
		content := `
[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_client_secret"
redirect_uri = "http://localhost:3000/callback"

[database]
path = "./test.db"
max_open_conns = 5
max_idle_conns = 2

[server]
host = "localhost"
port = 3000

[sync]
targets = ["rock-playlist", "jazz-playlist"]
rebuild_interval_hours = 12
requests_per_second = 2.5
`
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Database.Path != "./test.db" {
			t.Errorf("expected database path ./test.db, got %s", config.Database.Path)
		}
		if len(config.Sync.Targets) != 2 || config.Sync.Targets[0] != "rock-playlist" {
			t.Errorf("expected ordered targets, got %v", config.Sync.Targets)
		}
		if config.Sync.RebuildInterval() != 12*time.Hour {
			t.Errorf("expected 12h rebuild interval, got %v", config.Sync.RebuildInterval())
		}
		if config.Sync.RequestsPerSecond != 2.5 {
			t.Errorf("expected 2.5 requests per second, got %v", config.Sync.RequestsPerSecond)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected the not-exist cause to be preserved, got %v", err)
		}
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("not [valid toml"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "id"
		config.Credentials.Spotify.ClientSecret = "secret"
		config.Sync.Targets = []string{"p1"}
		return config
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"no targets", func(c *Config) { c.Sync.Targets = nil }, ErrNoTargets},
		{"missing client id", func(c *Config) { c.Credentials.Spotify.ClientID = "" }, ErrMissingCredentials},
		{"missing client secret", func(c *Config) { c.Credentials.Spotify.ClientSecret = "" }, ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRebuildIntervalDefault(t *testing.T) {
	var sync SyncConfig
	if sync.RebuildInterval() != 24*time.Hour {
		t.Errorf("expected default 24h, got %v", sync.RebuildInterval())
	}

	sync.RebuildIntervalHours = -1
	if sync.RebuildInterval() != 24*time.Hour {
		t.Errorf("expected 24h for negative hours, got %v", sync.RebuildInterval())
	}
}

func TestSpotifyConfigToken(t *testing.T) {
	t.Run("round trip through Update", func(t *testing.T) {
		expiry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		token := &oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			Expiry:       expiry,
		}

		var creds SpotifyConfig
		if err := creds.Update(token); err != nil {
			t.Fatalf("failed to update credentials: %v", err)
		}

		got := creds.Token()
		if got == nil {
			t.Fatal("expected reconstructed token, got nil")
		}
		if got.AccessToken != "access" || got.RefreshToken != "refresh" || !got.Expiry.Equal(expiry) {
			t.Errorf("token round trip failed: %+v", got)
		}
	})

	t.Run("empty token rejected", func(t *testing.T) {
		var creds SpotifyConfig
		if err := creds.Update(&oauth2.Token{}); err == nil {
			t.Error("expected error for token without access token")
		}
		if err := creds.Update(nil); err == nil {
			t.Error("expected error for nil token")
		}
	})

	t.Run("refresh token preserved when absent from new token", func(t *testing.T) {
		creds := SpotifyConfig{RefreshToken: "original"}
		if err := creds.Update(&oauth2.Token{AccessToken: "new-access"}); err != nil {
			t.Fatalf("failed to update credentials: %v", err)
		}
		if creds.RefreshToken != "original" {
			t.Errorf("refresh token lost: %q", creds.RefreshToken)
		}
	})

	t.Run("no stored token", func(t *testing.T) {
		var creds SpotifyConfig
		if creds.Token() != nil {
			t.Error("expected nil token when nothing is stored")
		}
	})
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	config := DefaultConfig()
	config.Credentials.Spotify.ClientID = "saved-id"
	config.Sync.Targets = []string{"p1", "p2"}

	if err := SaveConfig(path, config); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if got.Credentials.Spotify.ClientID != "saved-id" {
		t.Errorf("expected client_id saved-id, got %s", got.Credentials.Spotify.ClientID)
	}
	if len(got.Sync.Targets) != 2 {
		t.Errorf("expected 2 targets, got %v", got.Sync.Targets)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Server.Port == 0 {
		t.Error("expected default server port")
	}
	if config.Database.Path == "" {
		t.Error("expected default database path")
	}
	if config.Sync.RebuildInterval() != 24*time.Hour {
		t.Errorf("expected default 24h rebuild interval, got %v", config.Sync.RebuildInterval())
	}
}

func TestCreateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	if _, err := LoadConfig(path); err != nil {
		t.Errorf("generated config does not parse: %v", err)
	}

	if err := CreateConfigFile(path); err == nil {
		t.Error("expected error when config file already exists")
	}
}

func TestLoadEnvCredentials(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")

	config := DefaultConfig()
	config.Credentials.Spotify.ClientID = "file-id"

	LoadEnvCredentials(config)

	if config.Credentials.Spotify.ClientID != "env-id" {
		t.Errorf("expected env to override client_id, got %s", config.Credentials.Spotify.ClientID)
	}
	if config.Credentials.Spotify.ClientSecret != "env-secret" {
		t.Errorf("expected env client_secret, got %s", config.Credentials.Spotify.ClientSecret)
	}
}
