// Package config provides Viper-based configuration for flixctl.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the complete flixctl configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	MockAPI MockAPIConfig `mapstructure:"mockapi"`

	// File is the config file that was read, or "" when only defaults and env apply.
	File string `mapstructure:"-" json:"-"`
}

// APIConfig points at the movie service.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// SessionConfig selects where the session is persisted.
type SessionConfig struct {
	Backend        string        `mapstructure:"backend"`
	Path           string        `mapstructure:"path"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisKeyPrefix string        `mapstructure:"redis_key_prefix"`
	ExpiryMargin   time.Duration `mapstructure:"expiry_margin"`
}

// CacheConfig tunes the query cache.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// AuthConfig tunes the auth state machine.
type AuthConfig struct {
	DiscardStaleResolutions bool `mapstructure:"discard_stale_resolutions"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// MockAPIConfig configures the bundled mock service.
type MockAPIConfig struct {
	Addr   string `mapstructure:"addr"`
	Secret string `mapstructure:"secret"`
}

// Load reads .env, the config file and FLIXCTL_* environment variables, in increasing precedence.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".flixctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/flixctl")
	}

	v.SetEnvPrefix("FLIXCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.File = v.ConfigFileUsed()
	if cfg.Session.Path == "" {
		cfg.Session.Path = defaultSessionDir()
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.burst", 5)

	v.SetDefault("session.backend", BackendFile)
	v.SetDefault("session.path", "")
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_key_prefix", "flixctl:")
	v.SetDefault("session.expiry_margin", 300*time.Second)

	v.SetDefault("cache.ttl", 60*time.Second)
	v.SetDefault("cache.max_entries", 256)

	v.SetDefault("auth.discard_stale_resolutions", false)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.colors", true)

	v.SetDefault("mockapi.addr", ":8080")
	v.SetDefault("mockapi.secret", "flixctl-mock-secret")
}

// defaultSessionDir is $XDG_CONFIG_HOME/flixctl, or ./.flixctl when no config dir is known.
func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".flixctl"
	}
	return filepath.Join(dir, "flixctl")
}

func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return errors.New("api.base_url must be set")
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", cfg.API.Timeout)
	}
	if cfg.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative, got %v", cfg.API.RateLimit)
	}

	switch cfg.Session.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if cfg.Session.RedisAddr == "" {
			return errors.New("session.redis_addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be file, redis, or memory)", cfg.Session.Backend)
	}
	if cfg.Session.ExpiryMargin < 0 {
		return fmt.Errorf("session.expiry_margin must not be negative, got %s", cfg.Session.ExpiryMargin)
	}

	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", cfg.Cache.MaxEntries)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}
	return nil
}
