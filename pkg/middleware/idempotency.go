package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// IdemStore remembers keys for a window.
type IdemStore interface {
	// Set reports true when key was stored, false when it already exists.
	Set(ctx context.Context, key string, ttl time.Duration) bool
	Release(ctx context.Context, key string)
}

type memoryIdemStore struct {
	mu       sync.Mutex
	m        map[string]time.Time
	lastSweep time.Time
}

func NewMemoryIdemStore() IdemStore {
	return &memoryIdemStore{m: make(map[string]time.Time), lastSweep: time.Now()}
}

func (s *memoryIdemStore) Set(_ context.Context, key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.Sub(s.lastSweep) > time.Minute {
		for k, exp := range s.m {
			if exp.Before(now) {
				delete(s.m, k)
			}
		}
		s.lastSweep = now
	}
	if exp, ok := s.m[key]; ok && exp.After(now) {
		return false
	}
	s.m[key] = now.Add(ttl)
	return true
}

func (s *memoryIdemStore) Release(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

type redisIdemStore struct {
	client *redis.Client
	prefix string
}

// NewRedisIdemStore shares idempotency keys across instances.
func NewRedisIdemStore(client *redis.Client) IdemStore {
	return &redisIdemStore{client: client, prefix: "voiceboard:idem:"}
}

func (s *redisIdemStore) Set(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := s.client.SetNX(ctx, s.prefix+key, 1, ttl).Result()
	if err != nil {
		// fail open
		return true
	}
	return ok
}

func (s *redisIdemStore) Release(ctx context.Context, key string) {
	s.client.Del(ctx, s.prefix+key)
}

type IdempotencyConfig struct {
	HeaderName string
	TTL        time.Duration
	Store      IdemStore
	// ConflictMessage builds the 409 body; nil means "duplicate request".
	ConflictMessage func(c *gin.Context) string
}

// IdempotencyMiddleware rejects a repeated Idempotency-Key within TTL with 409.
// Requests without the header pass through. A key whose request was rejected
// (4xx) or failed (5xx) is released so the client can retry.
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryIdemStore()
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" {
			c.Next()
			return
		}
		key = c.FullPath() + ":" + key
		if !cfg.Store.Set(c.Request.Context(), key, cfg.TTL) {
			msg := "duplicate request"
			if cfg.ConflictMessage != nil {
				msg = cfg.ConflictMessage(c)
			}
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": msg})
			return
		}
		c.Next()
		if c.Writer.Status() >= http.StatusBadRequest {
			cfg.Store.Release(context.WithoutCancel(c.Request.Context()), key)
		}
	}
}
