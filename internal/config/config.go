package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"agility-scorer/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	BackendOff    = "off"
	BackendRedis  = "redis"
	BackendRelay  = "relay"
	BackendHosted = "hosted"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	SyncBackend        string
	SyncDebounce       time.Duration
	SessionTTL         time.Duration
	DeviceRole         string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RelayURL           string
	HostedURL          string
	HostedAPIKey       string
	HostedPollInterval time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("sync_backend", cfg.SyncBackend).
		Str("device_role", cfg.DeviceRole).
		Dur("sync_debounce", cfg.SyncDebounce).
		Msg("configuration loaded")

	return cfg, nil
}

// FromEnv reads the process environment without touching .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "agility.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SyncBackend:   strings.ToLower(getEnv("SYNC_BACKEND", BackendOff)),
		DeviceRole:    strings.ToLower(getEnv("DEVICE_ROLE", "host")),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RelayURL:      getEnv("RELAY_URL", ""),
		HostedURL:     getEnv("HOSTED_URL", ""),
		HostedAPIKey:  getEnv("HOSTED_API_KEY", ""),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB must be a number: %w", err)
	}
	if cfg.SyncDebounce, err = getDuration("SYNC_DEBOUNCE", constants.SyncDebounce); err != nil {
		return nil, err
	}
	if cfg.HostedPollInterval, err = getDuration("HOSTED_POLL_INTERVAL", constants.HostedPollInterval); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", constants.SessionTTL); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SyncBackend {
	case BackendOff:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis sync backend")
		}
	case BackendRelay:
		if c.RelayURL == "" {
			return fmt.Errorf("RELAY_URL is required for the relay sync backend")
		}
	case BackendHosted:
		if c.HostedURL == "" || c.HostedAPIKey == "" {
			return fmt.Errorf("HOSTED_URL and HOSTED_API_KEY are required for the hosted sync backend")
		}
	default:
		return fmt.Errorf("unknown SYNC_BACKEND %q", c.SyncBackend)
	}

	if c.DeviceRole != "host" && c.DeviceRole != "viewer" {
		return fmt.Errorf("DEVICE_ROLE must be host or viewer, got %q", c.DeviceRole)
	}
	if c.SyncDebounce <= 0 || c.HostedPollInterval <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("durations must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

var Module = fx.Provide(Load)
