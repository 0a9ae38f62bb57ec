package server

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/arenachat/internal/chat"
)

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	cfg := NewConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, []chat.RoomID{"battle-arena-1", "battle-arena-2", "general"}, cfg.Rooms)
	assert.Equal(t, 200, cfg.BacklogCapacity)
	assert.Equal(t, 50, cfg.DefaultHistoryLimit)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9100")
	t.Setenv("ALLOWED_ORIGINS", " http://a.example , ,http://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "9")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "500ms")
	t.Setenv("ROOMS", "lobby, arena ,lobby")
	t.Setenv("BACKLOG_CAPACITY", "10")
	t.Setenv("DEFAULT_HISTORY_LIMIT", "5")
	t.Setenv("SEND_BUFFER_SIZE", "16")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SHUTDOWN_TIMEOUT", "3")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.Addr())
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, RateLimitConfig{Burst: 9, RefillInterval: 500 * time.Millisecond}, cfg.RateLimit)
	assert.Equal(t, []chat.RoomID{"lobby", "arena"}, cfg.Rooms)
	assert.Equal(t, 10, cfg.BacklogCapacity)
	assert.Equal(t, 5, cfg.DefaultHistoryLimit)
	assert.Equal(t, 16, cfg.SendBufferSize)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfig_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("MAX_MESSAGE_SIZE", "-5")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "soon")
	t.Setenv("ROOMS", " , ")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	defaults := NewConfig()
	assert.Equal(t, defaults.Port, cfg.Port)
	assert.Equal(t, defaults.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, defaults.RateLimit.RefillInterval, cfg.RateLimit.RefillInterval)
	assert.Equal(t, defaults.Rooms, cfg.Rooms)
}

func TestLoadConfig_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ROOMS=from-file\nBACKLOG_CAPACITY=7\n"), 0o600))
	t.Setenv("ROOMS", "")
	t.Setenv("BACKLOG_CAPACITY", "")
	// godotenv never overrides variables that are already set, even empty ones.
	require.NoError(t, os.Unsetenv("ROOMS"))
	require.NoError(t, os.Unsetenv("BACKLOG_CAPACITY"))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []chat.RoomID{"from-file"}, cfg.Rooms)
	assert.Equal(t, 7, cfg.BacklogCapacity)
}

func TestLoadConfig_RejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogLevel")
}

func TestSanitizeConfig(t *testing.T) {
	cfg := sanitizeConfig(Config{
		AllowedOrigins: []string{" http://x.example ", ""},
		Rooms:          []chat.RoomID{" a ", "", "a", "b"},
		LogLevel:       "  WARN ",
	})

	assert.Equal(t, NewConfig().Host, cfg.Host)
	assert.Equal(t, NewConfig().Port, cfg.Port)
	assert.Equal(t, []string{"http://x.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []chat.RoomID{"a", "b"}, cfg.Rooms)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"no rooms", func(c *Config) { c.Rooms = nil }},
		{"empty room id", func(c *Config) { c.Rooms = []chat.RoomID{""} }},
		{"zero backlog", func(c *Config) { c.BacklogCapacity = 0 }},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"zero refill", func(c *Config) { c.RateLimit.RefillInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseRefillInterval(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRefillInterval("2", time.Minute))
	assert.Equal(t, 250*time.Millisecond, parseRefillInterval("250ms", time.Minute))
	assert.Equal(t, time.Minute, parseRefillInterval("0", time.Minute))
	assert.Equal(t, time.Minute, parseRefillInterval("", time.Minute))
}
