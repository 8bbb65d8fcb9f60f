package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/card-ingest/internal/metrics"
)

// Cache stores OCR text keyed by image content hash.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string, ttl time.Duration) error
}

// Cached wraps an Extractor with a result cache keyed by the SHA-256 of the
// image bytes, so a re-scanned card does not hit the provider again. Remote
// references are passed through uncached.
type Cached struct {
	next     Extractor
	provider string
	cache    Cache
	ttl      time.Duration
}

// NewCached wraps next with cache.
func NewCached(next Extractor, provider string, cache Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, provider: provider, cache: cache, ttl: ttl}
}

// ExtractText implements Extractor. Cache failures are logged and never
// fail the extraction.
func (c *Cached) ExtractText(ctx context.Context, imageRef string) (string, error) {
	if isRemote(imageRef) {
		return c.next.ExtractText(ctx, imageRef)
	}
	data, err := readImage(c.provider, imageRef)
	if err != nil {
		return "", err
	}
	key := cacheKey(c.provider, data)

	text, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordOCRCache("error")
		zap.L().Warn("ocr: cache get failed", zap.String("key", key), zap.Error(err))
	case ok:
		metrics.RecordOCRCache("hit")
		return text, nil
	default:
		metrics.RecordOCRCache("miss")
	}

	text, err = c.next.ExtractText(ctx, imageRef)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, text, c.ttl); err != nil {
		zap.L().Warn("ocr: cache set failed", zap.String("key", key), zap.Error(err))
	}
	return text, nil
}

func cacheKey(provider string, data []byte) string {
	sum := sha256.Sum256(data)
	return provider + ":" + hex.EncodeToString(sum[:])
}

// MemoryCache is an in-process Cache backed by go-cache.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache with the given default TTL.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &MemoryCache{cache: gocache.New(defaultTTL, 2*defaultTTL)}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	if val, found := m.cache.Get(key); found {
		return val.(string), true, nil
	}
	return "", false, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key, text string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(key, text, ttl)
	return nil
}

const redisKeyPrefix = "cardingest:ocr:"

// RedisCache is a Cache shared across processes through Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to url and verifies the connection.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "ocr: redis ping")
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "ocr: redis get")
	}
	return val, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key, text string, ttl time.Duration) error {
	return eris.Wrap(r.client.Set(ctx, redisKeyPrefix+key, text, ttl).Err(), "ocr: redis set")
}

// Close closes the Redis client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
