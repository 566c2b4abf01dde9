package eventsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by a Cache when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(ctx context.Context, addr, password string) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          0,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{Client: rdb}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// cachedEvents remembers the limit the events were fetched with so a
// smaller request can be served from a larger entry.
type cachedEvents struct {
	Limit  int     `json:"limit"`
	Events []Event `json:"events"`
}

// CachedStore is a read-through cache in front of another Store.
// Cache failures fall back to the underlying store.
type CachedStore struct {
	next   Store
	cache  Cache
	ttl    time.Duration
	logger *log.Logger
}

func NewCachedStore(next Store, cache Cache, ttl time.Duration, logger *log.Logger) *CachedStore {
	return &CachedStore{next: next, cache: cache, ttl: ttl, logger: logger}
}

func CacheKey(userID int64) string {
	return fmt.Sprintf("events:%d", userID)
}

func (s *CachedStore) LatestEvents(ctx context.Context, userID int64, limit int) ([]Event, error) {
	key := CacheKey(userID)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var entry cachedEvents
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil && entry.Limit >= limit {
			if len(entry.Events) > limit {
				return entry.Events[:limit], nil
			}
			return entry.Events, nil
		}
	case !errors.Is(err, ErrCacheMiss):
		s.logf("cache get %s: %v", key, err)
	}

	events, err := s.next.LatestEvents(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedEvents{Limit: limit, Events: events})
	if err == nil {
		err = s.cache.Set(ctx, key, payload, s.ttl)
	}
	if err != nil {
		s.logf("cache set %s: %v", key, err)
	}
	return events, nil
}

func (s *CachedStore) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
