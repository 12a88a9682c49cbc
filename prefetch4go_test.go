package prefetch4go

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ammar0144/prefetch4go/pkg/prefetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSettings(t *testing.T) {
	path := writeSettings(t, `
database:
  host: db.internal
  database: bookshop
  username: reader
  query_timeout: 5s
redis:
  enabled: false
prefetch:
  default_cache_size: 500
`)

	settings, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", settings.Database.Host)
	assert.Equal(t, 3306, settings.Database.Port)
	assert.Equal(t, 5*time.Second, settings.Database.QueryTimeout)
	assert.Equal(t, 25, settings.Database.MaxOpenConns)
	assert.False(t, settings.Redis.Enabled)
	assert.Equal(t, 500, settings.Prefetch.DefaultCacheSize)

	configs := settings.Apply([]Config{
		{Model: "authors"},
		{Model: "categories", CacheSize: 20},
	})
	assert.Equal(t, 500, configs[0].CacheSize)
	assert.Equal(t, 20, configs[1].CacheSize)
}

func TestLoadSettingsDefaults(t *testing.T) {
	path := writeSettings(t, `
database:
  host: localhost
  database: bookshop
  username: reader
`)

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.True(t, settings.Redis.Enabled)
	assert.Equal(t, "localhost", settings.Redis.Host)
	assert.Equal(t, prefetch.DefaultCacheSize, settings.Prefetch.DefaultCacheSize)
}

func TestLoadSettingsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			content: "database: [",
			wantErr: "parse settings",
		},
		{
			name:    "missing database",
			content: "database:\n  host: localhost\n  username: reader\n",
			wantErr: "database: database name is required",
		},
		{
			name:    "redis without ttl",
			content: "database:\n  host: localhost\n  database: bookshop\n  username: reader\nredis:\n  default_ttl: 0s\n",
			wantErr: "redis: default_ttl",
		},
		{
			name:    "negative cache size",
			content: "database:\n  host: localhost\n  database: bookshop\n  username: reader\nprefetch:\n  default_cache_size: -1\n",
			wantErr: "default_cache_size cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSettings(writeSettings(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read settings")
}
