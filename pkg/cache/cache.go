package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache stores encoded values under string keys.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value; expiration <= 0 uses the backend default.
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	// Clear removes every key owned by this cache.
	Clear(ctx context.Context) error

	Close() error
}

// Config selects and tunes the backend.
type Config struct {
	// "gocache" (in process) or "redis"
	Type  string
	Redis RedisConfig
	Local LocalConfig
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Prefix namespaces keys so Clear never touches foreign data.
	Prefix string
}

type LocalConfig struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
}

// GetJSON decodes a cached JSON value into T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var out T
	data, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetJSON encodes v as JSON and stores it.
func SetJSON(ctx context.Context, c Cache, key string, v any, expiration time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, expiration)
}
