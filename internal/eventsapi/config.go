package eventsapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAddr     = ":8000"
	DefaultCacheTTL = 5 * time.Second
)

type Config struct {
	DatabaseURL   string
	Addr          string
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration
	MaxConns      int32
}

// CacheEnabled reports whether a Redis address was configured.
func (c Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// LoadConfig reads DATABASE_URL and the EVENTSAPI_* variables.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EVENTSAPI")
	v.AutomaticEnv()
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("max_conns", 0)
	// DATABASE_URL is shared with the rest of the stack and carries no prefix.
	if err := v.BindEnv("database_url", "DATABASE_URL"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DatabaseURL:   strings.TrimSpace(v.GetString("database_url")),
		Addr:          strings.TrimSpace(v.GetString("addr")),
		RedisAddr:     strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword: v.GetString("redis_password"),
		CacheTTL:      v.GetDuration("cache_ttl"),
		MaxConns:      v.GetInt32("max_conns"),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.CacheTTL <= 0 {
		return Config{}, fmt.Errorf("EVENTSAPI_CACHE_TTL must be > 0, got %s", cfg.CacheTTL)
	}
	return cfg, nil
}
