package eventsapi

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@localhost/events")
	t.Setenv("EVENTSAPI_ADDR", "")
	t.Setenv("EVENTSAPI_REDIS_ADDR", "")
	t.Setenv("EVENTSAPI_CACHE_TTL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.CacheEnabled() {
		t.Error("CacheEnabled() = true without EVENTSAPI_REDIS_ADDR")
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("CacheTTL = %s, want %s", cfg.CacheTTL, DefaultCacheTTL)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@db/events")
	t.Setenv("EVENTSAPI_ADDR", ":9000")
	t.Setenv("EVENTSAPI_REDIS_ADDR", "redis:6379")
	t.Setenv("EVENTSAPI_CACHE_TTL", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DatabaseURL != "postgres://app@db/events" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Addr != ":9000" || cfg.RedisAddr != "redis:6379" {
		t.Errorf("Addr/RedisAddr = %q/%q", cfg.Addr, cfg.RedisAddr)
	}
	if !cfg.CacheEnabled() || cfg.CacheTTL != 30*time.Second {
		t.Errorf("cache = %v/%s", cfg.CacheEnabled(), cfg.CacheTTL)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("LoadConfig() error = %v, want DATABASE_URL error", err)
	}
}
