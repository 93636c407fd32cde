// internal/pos/search/cache.go
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-interpreter/internal/common/database"
	"pos-interpreter/internal/common/metrics"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/normalize"
)

// Source is anything that can look items up by free text.
type Source interface {
	SearchItems(ctx context.Context, query string, limit int) ([]models.Item, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// CachedSource is a Redis read-through cache in front of another source.
// Cache errors never fail a lookup; only successful results are stored.
type CachedSource struct {
	inner  Source
	cache  *database.RedisClient
	ttl    time.Duration
	prefix string
	log    Logger
}

func NewCachedSource(inner Source, cache *database.RedisClient, ttl time.Duration, log Logger) *CachedSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSource{inner: inner, cache: cache, ttl: ttl, prefix: "pos:search:", log: log}
}

// CacheKey folds case and accents so equivalent queries share an entry.
func (c *CachedSource) CacheKey(query string, limit int) string {
	return fmt.Sprintf("%s%d:%s", c.prefix, limit, normalize.Text(query))
}

func (c *CachedSource) SearchItems(ctx context.Context, query string, limit int) ([]models.Item, error) {
	key := c.CacheKey(query, limit)

	var cached []models.Item
	err := c.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		metrics.SearchCache.WithLabelValues("hit").Inc()
		return cached, nil
	case errors.Is(err, database.ErrCacheMiss):
		metrics.SearchCache.WithLabelValues("miss").Inc()
	default:
		metrics.SearchCache.WithLabelValues("error").Inc()
		c.log.Warn("search cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	items, err := c.inner.SearchItems(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, items, c.ttl); err != nil {
		c.log.Warn("search cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return items, nil
}
