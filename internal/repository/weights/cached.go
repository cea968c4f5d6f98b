package weights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/weightedterms/internal/db"
)

// KeyPrefix namespaces cached weights payloads.
const KeyPrefix = "weightedterms:weights:"

// Fetcher is the inner fetcher contract.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// store is the consumer interface for the weights cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedFetcher caches weights payloads in a key-value store.
// Cache failures degrade to the inner fetcher; they are logged, not returned.
type CachedFetcher struct {
	inner      Fetcher
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewCachedFetcher creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func NewCachedFetcher(
	inner Fetcher,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFetcher{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Fetch returns a cached payload or calls the inner fetcher.
// Empty payloads are never cached so a fixed file is picked up on the next load.
func (c *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := CacheKey(url)

	if data, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return data, nil
	}
	c.incCache("miss")

	data, err := c.inner.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch weights: %w", err)
	}
	if len(data) > 0 {
		c.putToCache(ctx, key, data)
	}
	return data, nil
}

// Evict drops the cached payload for url.
func (c *CachedFetcher) Evict(ctx context.Context, url string) error {
	key := CacheKey(url)
	if err := c.store.Del(ctx, key); err != nil {
		return fmt.Errorf("evict cached weights: %w", err)
	}
	c.logger.Debug("Evicted cached weights", zap.String("key", key))
	return nil
}

// CacheKey returns the store key for url.
func CacheKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return KeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedFetcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedFetcher) getFromCache(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached weights", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (c *CachedFetcher) putToCache(ctx context.Context, key string, data []byte) {
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache weights", zap.String("key", key), zap.Error(err))
	}
}
