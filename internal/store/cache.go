package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/catenahq/bridge-backend/internal/metrics"
)

// Cache is a read-through display cache for relayer-backed data: asset
// catalogues, fee quotes, history pages. Never the source of truth; a cold or
// unavailable cache only costs extra relayer round trips.
type Cache struct {
	// When Redis is available, use client for all operations
	client *redis.Client
	// When Redis is unavailable, fall back to an in-memory TTL map
	mem *memoryStore

	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewCache(addr string, logger *zap.SugaredLogger, metrics *metrics.Metrics) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Redis unavailable: fall back to in-memory cache
		if logger != nil {
			logger.Warnw("Redis unavailable; using in-memory cache", "error", err)
		}
		return &Cache{
			client:  nil,
			mem:     newMemoryStore(),
			logger:  logger,
			metrics: metrics,
		}, nil
	}

	return &Cache{
		client:  client,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Cache key prefixes
const (
	KeyAssets    = "bridge:assets"
	KeyQuote     = "bridge:quote"
	KeyHistory   = "bridge:history"
	KeyClaimable = "bridge:claimable"
	KeyHealth    = "bridge:health"
)

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	var (
		raw []byte
		err error
	)
	if c.client != nil {
		var val string
		val, err = c.client.Get(ctx, key).Result()
		if err == redis.Nil {
			err = ErrCacheMiss
		}
		raw = []byte(val)
	} else {
		raw, err = c.mem.get(key)
	}

	if err != nil {
		if err == ErrCacheMiss {
			if c.metrics != nil {
				c.metrics.RecordCacheMiss(ctx, key)
			}
			return ErrCacheMiss
		}
		if c.logger != nil {
			c.logger.Errorw("Cache get error", "key", key, "error", err)
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, key)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if c.client != nil {
		if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Cache set error", "key", key, "error", err)
			}
			return fmt.Errorf("cache set error: %w", err)
		}
		return nil
	}
	c.mem.set(key, data, ttl)
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if c.client != nil {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Cache delete error", "keys", keys, "error", err)
			}
			return fmt.Errorf("cache delete error: %w", err)
		}
		return nil
	}
	c.mem.del(keys...)
	return nil
}

// Specialized cache methods
func (c *Cache) GetAssets(ctx context.Context, route string, dest interface{}) error {
	return c.Get(ctx, fmt.Sprintf("%s:%s", KeyAssets, route), dest)
}

func (c *Cache) SetAssets(ctx context.Context, route string, value interface{}) error {
	return c.Set(ctx, fmt.Sprintf("%s:%s", KeyAssets, route), value, 5*time.Minute)
}

func (c *Cache) GetHistory(ctx context.Context, wallet string, dest interface{}) error {
	return c.Get(ctx, fmt.Sprintf("%s:%s", KeyHistory, wallet), dest)
}

func (c *Cache) SetHistory(ctx context.Context, wallet string, value interface{}, ttl time.Duration) error {
	return c.Set(ctx, fmt.Sprintf("%s:%s", KeyHistory, wallet), value, ttl)
}

func (c *Cache) InvalidateHistory(ctx context.Context, wallet string) error {
	return c.Delete(ctx, fmt.Sprintf("%s:%s", KeyHistory, wallet))
}

func (c *Cache) GetClaimable(ctx context.Context, chainID, wallet string, dest interface{}) error {
	return c.Get(ctx, fmt.Sprintf("%s:%s:%s", KeyClaimable, chainID, wallet), dest)
}

func (c *Cache) SetClaimable(ctx context.Context, chainID, wallet string, value interface{}, ttl time.Duration) error {
	return c.Set(ctx, fmt.Sprintf("%s:%s:%s", KeyClaimable, chainID, wallet), value, ttl)
}

// IsInMemoryMode returns true if the cache is running in in-memory mode
func (c *Cache) IsInMemoryMode() bool {
	return c.client == nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	if c.client != nil {
		return c.client.Ping(ctx).Err()
	}
	// In-memory mode considered healthy
	return nil
}

// Close connection
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Error types
var (
	ErrCacheMiss = fmt.Errorf("cache miss")
)

// memoryStore is the degraded-mode backend: a TTL map with lazy expiry.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

func (s *memoryStore) get(key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return entry.data, nil
}

func (s *memoryStore) set(key string, data []byte, ttl time.Duration) {
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
}

func (s *memoryStore) del(keys ...string) {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}
