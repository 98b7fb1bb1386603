package cache

import (
	"VoiceBoard/pkg/config"
	"VoiceBoard/pkg/errors"
	"strings"
	"time"
)

const keyPrefix = "voiceboard:"

// NewCache creates the backend named by config.Type.
func NewCache(c Config) (Cache, error) {
	switch strings.ToLower(c.Type) {
	case "gocache", "local", "memory", "":
		return NewGoCache(c.Local), nil
	case "redis":
		return NewRedisCache(c.Redis)
	default:
		return nil, errors.Errorf("unsupported cache type: %s", c.Type)
	}
}

// ConfigFrom maps the application settings to a cache Config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Type: cfg.CacheType,
		Redis: RedisConfig{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			Prefix:       keyPrefix,
		},
		Local: LocalConfig{
			DefaultExpiration: cfg.DisplayCacheTTL,
			CleanupInterval:   time.Minute,
		},
	}
}
