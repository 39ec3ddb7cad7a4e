package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("STAYBOOK_TEST_KEY", "secret-from-env")

	path := writeConfig(t, `
app:
  timezone: "Europe/Berlin"
database:
  path: "test.db"
booking:
  max_stay_nights: 30
  lock_ttl: 5s
api:
  enabled: true
  auth:
    enabled: true
    api_keys:
      - name: web
        key: "${STAYBOOK_TEST_KEY}"
        permissions: ["read", "write"]
kafka:
  brokers: ["localhost:9092"]
  topic: bookings
api_client:
  base_url: "http://localhost:8080"
  api_key: "${STAYBOOK_TEST_KEY}"
  cache_ttl: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, 30, cfg.Booking.MaxStayNights)
	assert.Equal(t, 5*time.Second, cfg.Booking.LockTTL)
	assert.Equal(t, 3*time.Second, cfg.Booking.LockWait)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "secret-from-env", cfg.API.Auth.APIKeys[0].Key)
	assert.True(t, cfg.API.HTTP.Enabled)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-user-id", cfg.API.Auth.HeaderUserID)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 256, cfg.Kafka.Buffer)
	assert.True(t, cfg.APIClient.Enabled())
	assert.Equal(t, "secret-from-env", cfg.APIClient.APIKey)
	assert.Equal(t, 30*time.Second, cfg.APIClient.CacheTTL)
	assert.False(t, cfg.Google.Enabled())
	assert.Equal(t, "Europe/Berlin", cfg.App.Location().String())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "database: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{Database: DatabaseConfig{Path: "path"}},
			wantErr: false,
		},
		{
			name:    "missing database path",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "bad timezone",
			cfg: Config{
				App:      AppConfig{Timezone: "Mars/Olympus"},
				Database: DatabaseConfig{Path: "path"},
			},
			wantErr: true,
		},
		{
			name: "auth without keys",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				API:      APIConfig{Auth: APIAuthConfig{Enabled: true}},
			},
			wantErr: true,
		},
		{
			name: "duplicate api key",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				API: APIConfig{Auth: APIAuthConfig{
					Enabled: true,
					APIKeys: []APIClientKey{{Name: "a", Key: "k"}, {Name: "b", Key: "k"}},
				}},
			},
			wantErr: true,
		},
		{
			name: "negative stay limit",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Booking:  BookingConfig{MaxStayNights: -1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppConfig_Location(t *testing.T) {
	assert.Equal(t, time.UTC, AppConfig{}.Location())
	assert.Equal(t, time.UTC, AppConfig{Timezone: "Nowhere/Invalid"}.Location())
}
