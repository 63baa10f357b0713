package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 3001, cfg.HTTP.Port)
	assert.Equal(t, 60, cfg.Poll.DefaultDurationSeconds)
	assert.Equal(t, 100*time.Millisecond, cfg.Poll.KickGrace)
	assert.Empty(t, cfg.History.DatabasePath)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"negative read timeout", func(c *Config) { c.HTTP.ReadTimeout = -time.Second }},
		{"nil http", func(c *Config) { c.HTTP = nil }},
		{"zero ping interval", func(c *Config) { c.WebSocket.PingInterval = 0 }},
		{"read timeout below ping interval", func(c *Config) { c.WebSocket.ReadTimeout = c.WebSocket.PingInterval }},
		{"nil websocket", func(c *Config) { c.WebSocket = nil }},
		{"zero poll duration", func(c *Config) { c.Poll.DefaultDurationSeconds = 0 }},
		{"negative kick grace", func(c *Config) { c.Poll.KickGrace = -time.Millisecond }},
		{"nil poll", func(c *Config) { c.Poll = nil }},
		{"nil history", func(c *Config) { c.History = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("LIVEPOLL_HTTP_PORT", "9090")
	t.Setenv("LIVEPOLL_HTTP_HOST", "127.0.0.1")
	t.Setenv("LIVEPOLL_HTTP_READ_TIMEOUT", "45s")
	t.Setenv("LIVEPOLL_WEBSOCKET_PING_INTERVAL", "10s")
	t.Setenv("LIVEPOLL_WEBSOCKET_READ_TIMEOUT", "20s")
	t.Setenv("LIVEPOLL_POLL_DEFAULT_DURATION", "90")
	t.Setenv("LIVEPOLL_POLL_KICK_GRACE", "250ms")
	t.Setenv("LIVEPOLL_HISTORY_DATABASE_PATH", "/tmp/history.db")

	cfg := LoadFromEnv()

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 45*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 20*time.Second, cfg.WebSocket.ReadTimeout)
	assert.Equal(t, 90, cfg.Poll.DefaultDurationSeconds)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll.KickGrace)
	assert.Equal(t, "/tmp/history.db", cfg.History.DatabasePath)
}

func TestLoadFromEnv_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("LIVEPOLL_HTTP_PORT", "not-a-number")
	t.Setenv("LIVEPOLL_HTTP_READ_TIMEOUT", "not-a-duration")

	cfg := LoadFromEnv()

	assert.Equal(t, 3001, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
}

func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	contents := `{
		"http": {"host": "localhost", "port": 8080, "read_timeout": "15s"},
		"poll": {"default_duration_seconds": 120},
		"history": {"database_path": "polls.db"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.HTTP.Host)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 120, cfg.Poll.DefaultDurationSeconds)
	assert.Equal(t, "polls.db", cfg.History.DatabasePath)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadWithPrecedence_FileBeatsEnv(t *testing.T) {
	t.Setenv("LIVEPOLL_HTTP_PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"http": {"port": 8080}}`), 0o644))

	cfg := LoadWithPrecedence(path)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoadWithPrecedence_NoFileFallsBackToEnv(t *testing.T) {
	t.Setenv("LIVEPOLL_HTTP_PORT", "9090")

	cfg := LoadWithPrecedence("")
	assert.Equal(t, 9090, cfg.HTTP.Port)
}
