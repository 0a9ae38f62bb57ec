package server

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/Tyrowin/arenachat/internal/chat"
	"github.com/Tyrowin/arenachat/internal/protocol"
	"github.com/Tyrowin/arenachat/internal/store"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `validate:"min=1"`
	RefillInterval time.Duration `validate:"gt=0"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Host                string
	Port                int      `validate:"min=1,max=65535"`
	AllowedOrigins      []string `validate:"dive,required"`
	MaxMessageSize      int64    `validate:"min=1"`
	RateLimit           RateLimitConfig
	Rooms               []chat.RoomID `validate:"min=1,dive,required"`
	BacklogCapacity     int           `validate:"min=1"`
	DefaultHistoryLimit int           `validate:"min=1"`
	SendBufferSize      int           `validate:"min=1"`
	LogLevel            string        `validate:"oneof=debug info warn error"`
	ShutdownTimeout     time.Duration `validate:"gt=0"`
}

// environment mirrors Config as read from the process environment. Lists are
// comma separated and parsed afterwards.
type environment struct {
	Host                    string `env:"HOST,default=0.0.0.0"`
	Port                    string `env:"PORT,default=8000"`
	AllowedOrigins          string `env:"ALLOWED_ORIGINS"`
	MaxMessageSize          string `env:"MAX_MESSAGE_SIZE"`
	RateLimitBurst          string `env:"RATE_LIMIT_BURST"`
	RateLimitRefillInterval string `env:"RATE_LIMIT_REFILL_INTERVAL"`
	Rooms                   string `env:"ROOMS"`
	BacklogCapacity         string `env:"BACKLOG_CAPACITY"`
	DefaultHistoryLimit     string `env:"DEFAULT_HISTORY_LIMIT"`
	SendBufferSize          string `env:"SEND_BUFFER_SIZE"`
	LogLevel                string `env:"LOG_LEVEL,default=info"`
	ShutdownTimeout         string `env:"SHUTDOWN_TIMEOUT"`
}

var validate = validator.New()

var defaultRooms = []chat.RoomID{"battle-arena-1", "battle-arena-2", "general"}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Host: "0.0.0.0",
		Port: 8000,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8000",
		},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		Rooms:               append([]chat.RoomID(nil), defaultRooms...),
		BacklogCapacity:     store.DefaultCapacity,
		DefaultHistoryLimit: protocol.DefaultHistoryLimit,
		SendBufferSize:      256,
		LogLevel:            "info",
		ShutdownTimeout:     10 * time.Second,
	}
}

// LoadConfig reads an optional .env file, then the process environment, and
// returns a sanitized and validated configuration. Unset or unparsable values
// fall back to the defaults of NewConfig.
func LoadConfig(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var e environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg := NewConfig()
	cfg.Host = e.Host
	cfg.Port = parseIntValue(e.Port, cfg.Port)
	if e.AllowedOrigins != "" {
		cfg.AllowedOrigins = parseList(e.AllowedOrigins)
	}
	cfg.MaxMessageSize = parseMaxMessageSize(e.MaxMessageSize, cfg.MaxMessageSize)
	cfg.RateLimit.Burst = parseIntValue(e.RateLimitBurst, cfg.RateLimit.Burst)
	cfg.RateLimit.RefillInterval = parseRefillInterval(e.RateLimitRefillInterval, cfg.RateLimit.RefillInterval)
	if e.Rooms != "" {
		cfg.Rooms = lo.Map(parseList(e.Rooms), func(id string, _ int) chat.RoomID { return chat.RoomID(id) })
	}
	cfg.BacklogCapacity = parseIntValue(e.BacklogCapacity, cfg.BacklogCapacity)
	cfg.DefaultHistoryLimit = parseIntValue(e.DefaultHistoryLimit, cfg.DefaultHistoryLimit)
	cfg.SendBufferSize = parseIntValue(e.SendBufferSize, cfg.SendBufferSize)
	cfg.LogLevel = e.LogLevel
	cfg.ShutdownTimeout = parseRefillInterval(e.ShutdownTimeout, cfg.ShutdownTimeout)

	sanitized := sanitizeConfig(*cfg)
	if err := sanitized.Validate(); err != nil {
		return nil, err
	}
	return &sanitized, nil
}

// sanitizeConfig fills unset fields with defaults and normalizes lists.
func sanitizeConfig(cfg Config) Config {
	defaults := NewConfig()

	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port <= 0 {
		cfg.Port = defaults.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaults.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaults.RateLimit.RefillInterval
	}
	if cfg.BacklogCapacity <= 0 {
		cfg.BacklogCapacity = defaults.BacklogCapacity
	}
	if cfg.DefaultHistoryLimit <= 0 {
		cfg.DefaultHistoryLimit = defaults.DefaultHistoryLimit
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	cfg.AllowedOrigins = lo.Compact(lo.Map(cfg.AllowedOrigins, func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
	cfg.Rooms = lo.Uniq(lo.Compact(lo.Map(cfg.Rooms, func(r chat.RoomID, _ int) chat.RoomID {
		return chat.RoomID(strings.TrimSpace(string(r)))
	})))
	if len(cfg.Rooms) == 0 {
		cfg.Rooms = append([]chat.RoomID(nil), defaultRooms...)
	}

	return cfg
}

// Validate reports the first configuration field that is out of range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return lo.Compact(parts)
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseRefillInterval accepts a Go duration ("500ms") or a whole number of
// seconds ("2").
func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
