package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/yatube/config"
)

const (
	// DefaultPageCacheTTL is how long a rendered anonymous page stays cached.
	DefaultPageCacheTTL  = 20 * time.Second
	// MaxMemoryPageEntries bounds MemoryPageCache; the entries closest to expiry are evicted first.
	MaxMemoryPageEntries = 300
	pageCachePrefix      = "cache:page:"
)

// PageCache stores rendered pages for a fixed window after they are first populated.
// Writes to the underlying data never invalidate entries; only expiry or Clear does.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, page []byte)
	Clear(ctx context.Context) error
}

// IndexPageKey is the cache key of the anonymous index page number n.
func IndexPageKey(n int) string {
	return fmt.Sprintf("index:page=%d", n)
}

// NewPageCache returns a Redis-backed cache when Redis is configured, else an in-memory one.
func NewPageCache(cfg config.AppConfig) PageCache {
	ttl := time.Duration(cfg.PageCacheTTLSec) * time.Second
	if rc := GetRedis(); rc != nil {
		return NewRedisPageCache(rc, ttl)
	}
	return NewMemoryPageCache(ttl)
}

type memoryEntry struct {
	page      []byte
	expiresAt time.Time
}

// MemoryPageCache is a process-local PageCache.
type MemoryPageCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryPageCache creates an in-memory cache with the given TTL.
func NewMemoryPageCache(ttl time.Duration) *MemoryPageCache {
	if ttl <= 0 {
		ttl = DefaultPageCacheTTL
	}
	return &MemoryPageCache{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

// WithClock replaces the time source; tests use it to step past the TTL.
func (c *MemoryPageCache) WithClock(now func() time.Time) *MemoryPageCache {
	c.now = now
	return c
}

func (c *MemoryPageCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.page, true
}

func (c *MemoryPageCache) Set(_ context.Context, key string, page []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= MaxMemoryPageEntries {
		c.evict(now)
	}
	c.entries[key] = memoryEntry{page: page, expiresAt: now.Add(c.ttl)}
}

// evict drops expired entries, then the oldest one if the cache is still full.
func (c *MemoryPageCache) evict(now time.Time) {
	var oldest string
	var oldestAt time.Time
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if oldest == "" || e.expiresAt.Before(oldestAt) {
			oldest, oldestAt = k, e.expiresAt
		}
	}
	if len(c.entries) >= MaxMemoryPageEntries {
		delete(c.entries, oldest)
	}
}

// Len reports how many entries are held, including expired ones not yet evicted.
func (c *MemoryPageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryPageCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = map[string]memoryEntry{}
	c.mu.Unlock()
	return nil
}

// RedisPageCache keeps pages in Redis so every instance serves the same window.
type RedisPageCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisPageCache creates a Redis-backed cache with the given TTL.
func NewRedisPageCache(rc *redis.Client, ttl time.Duration) *RedisPageCache {
	if ttl <= 0 {
		ttl = DefaultPageCacheTTL
	}
	return &RedisPageCache{rc: rc, ttl: ttl}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, pageCachePrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Warnw("page cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisPageCache) Set(ctx context.Context, key string, page []byte) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	// NX keeps the window anchored to the first populate
	if err := c.rc.SetNX(ctx, pageCachePrefix+key, page, c.ttl).Err(); err != nil {
		Sugar.Warnw("page cache set failed", "key", key, "err", err)
	}
}

// Clear deletes every cached page using SCAN.
func (c *RedisPageCache) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, next, err := c.rc.Scan(ctx, cursor, pageCachePrefix+"*", 1000).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rc.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
