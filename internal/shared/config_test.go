package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./scorg.db" {
			t.Errorf("expected database path ./scorg.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Credentials.SoundCloud.RedirectURI != "http://127.0.0.1:8080/callback" {
			t.Errorf("unexpected redirect uri %s", config.Credentials.SoundCloud.RedirectURI)
		}

		if config.Sync.Visibility != "public" {
			t.Errorf("expected public visibility, got %s", config.Sync.Visibility)
		}

		if config.Sync.StopAfterStale != 0 {
			t.Errorf("expected early stop disabled by default, got %d", config.Sync.StopAfterStale)
		}

		if !config.Sync.History {
			t.Error("expected history enabled by default")
		}

		if config.Credentials.SoundCloud.HasToken() {
			t.Error("default config should not carry a token")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[credentials.soundcloud]
client_id = "test_client_id"
client_secret = "test_secret"

[sync]
visibility = "private"
stop_after_stale = 25
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
		if config.Credentials.SoundCloud.ClientID != "test_client_id" {
			t.Errorf("expected client_id test_client_id, got %s", config.Credentials.SoundCloud.ClientID)
		}
		if config.Sync.Visibility != "private" || config.Sync.StopAfterStale != 25 {
			t.Errorf("sync section not applied: %+v", config.Sync)
		}
		if config.Sync.PageSize != 50 {
			t.Errorf("omitted keys should keep defaults, got page size %d", config.Sync.PageSize)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[database\npath ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfigOrDefault Missing File", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Database.Path != "./scorg.db" {
			t.Errorf("expected defaults, got %s", config.Database.Path)
		}
	})

	t.Run("SaveConfig Round Trip Token", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nested", "config.toml")
		config := DefaultConfig()
		expiry := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: expiry}
		if err := config.Credentials.SoundCloud.Update(token); err != nil {
			t.Fatalf("failed to update token: %v", err)
		}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		got := loaded.Credentials.SoundCloud.Token()
		if got.AccessToken != "access" || got.RefreshToken != "refresh" {
			t.Errorf("token not persisted: %+v", got)
		}
		if !got.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, got.Expiry)
		}
	})

	t.Run("Update Keeps Refresh Token", func(t *testing.T) {
		sc := SoundCloudConfig{RefreshToken: "old-refresh"}
		if err := sc.Update(&oauth2.Token{AccessToken: "new-access"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sc.RefreshToken != "old-refresh" {
			t.Errorf("expected refresh token to be kept, got %s", sc.RefreshToken)
		}
		if err := sc.Update(&oauth2.Token{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for empty token, got %v", err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		if got := (SyncConfig{}).Timeout(); got != 30*time.Second {
			t.Errorf("expected 30s default, got %v", got)
		}
		if got := (SyncConfig{RequestTimeout: 5}).Timeout(); got != 5*time.Second {
			t.Errorf("expected 5s, got %v", got)
		}
	})
}
