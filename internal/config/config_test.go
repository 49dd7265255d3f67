package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, 20, cfg.Comments.PageSize)
	assert.Equal(t, 3, cfg.Comments.PreviewSize)
	assert.Equal(t, 1000, cfg.Comments.MaxContentLength)
	assert.Equal(t, "@every 10m", cfg.Audit.Schedule)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: memory
redis:
  enabled: true
  user_ttl: 30s
comments:
  page_size: 10
  preview_size: 5
`), 0o600))
	t.Setenv("COMMENTS_PAGE_SIZE", "15")
	t.Setenv("KAFKA_ENABLED", "true")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.UserTTL)
	assert.Equal(t, 15, cfg.Comments.PageSize)
	assert.Equal(t, 5, cfg.Comments.PreviewSize)
	assert.True(t, cfg.Kafka.Enabled)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "sqlite"}},
		{"malformed int", map[string]string{"COMMENTS_PAGE_SIZE": "ten"}},
		{"page size above max", map[string]string{"COMMENTS_PAGE_SIZE": "80"}},
		{"malformed duration", map[string]string{"REDIS_USER_TTL": "soon"}},
		{"zero rate", map[string]string{"RATE_LIMIT_RPS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}
