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

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "General", cfg.Chat.DefaultChannel)
	assert.Equal(t, 100, cfg.Chat.HistoryLimit)
	assert.False(t, cfg.Presence.TrackSessions)
	assert.False(t, cfg.Redis.Enabled)
	assert.Empty(t, cfg.RAG.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
}

func TestLoadConfigYAMLKeepsUnsetDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
database:
  driver: sqlite
  database: data/teamflow.db
chat:
  historyLimit: 20
upload:
  allowedExtensions: [txt]
`)
	cfg := LoadConfigFrom(path)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/teamflow.db", cfg.Database.Database)
	assert.Equal(t, 20, cfg.Chat.HistoryLimit)
	assert.Equal(t, 5.0, cfg.Chat.MessageRate)
	assert.Equal(t, []string{"txt"}, cfg.Upload.AllowedExtensions)
}

func TestLoadConfigInvalidYAMLFallsBack(t *testing.T) {
	cfg := LoadConfigFrom(writeConfig(t, "server: [unclosed"))
	assert.Equal(t, getDefaultConfig(), cfg)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9000\"\n")
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_EXPIRE_TIME", "2h")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "0")
	t.Setenv("CHAT_MESSAGE_RATE", "2.5")
	t.Setenv("CHAT_HISTORY_LIMIT", "not-a-number")
	t.Setenv("PRESENCE_TRACK_SESSIONS", "true")
	t.Setenv("RAG_ENDPOINT", "http://rag:8000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	cfg := LoadConfigFrom(path)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 2.5, cfg.Chat.MessageRate)
	assert.Equal(t, 100, cfg.Chat.HistoryLimit)
	assert.True(t, cfg.Presence.TrackSessions)
	assert.Equal(t, "http://rag:8000", cfg.RAG.Endpoint)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.CORS.Credentials())
}

func TestCORSCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  CORSConfig
		want bool
	}{
		{"default", getDefaultConfig().CORS, false},
		{"wildcard", CORSConfig{AllowedOrigins: []string{"http://a.test", " *"}, AllowCredentials: true}, false},
		{"explicit", CORSConfig{AllowedOrigins: []string{"http://a.test"}, AllowCredentials: true}, true},
		{"disabled", CORSConfig{AllowedOrigins: []string{"http://a.test"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Credentials())
		})
	}
}
