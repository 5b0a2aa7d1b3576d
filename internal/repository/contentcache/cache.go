package contentcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semindex/internal/db"
	"github.com/kailas-cloud/semindex/internal/metrics"
)

// DefaultKeyPrefix namespaces content keys in the shared store.
const DefaultKeyPrefix = "semindex:content:"

// store is the consumer interface for the content cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Fetcher loads embedding content from the remote service.
type Fetcher interface {
	Content(ctx context.Context, embeddingID int) (string, error)
}

// Cache is a read-through decorator that shares loaded content
// between sessions through a key-value store.
type Cache struct {
	inner   Fetcher
	store   store
	ttl     time.Duration
	prefix  string
	metrics *metrics.Client
	logger  *zap.Logger
}

// New creates a caching decorator. A zero ttl stores entries without expiry.
func New(inner Fetcher, s store, ttl time.Duration, m *metrics.Client, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		inner:   inner,
		store:   s,
		ttl:     ttl,
		prefix:  DefaultKeyPrefix,
		metrics: m,
		logger:  logger,
	}
}

// WithPrefix overrides the key prefix.
func (c *Cache) WithPrefix(prefix string) *Cache {
	if prefix != "" {
		c.prefix = prefix
	}
	return c
}

// Content returns shared content or loads it from the inner fetcher.
// Empty sections and failures are never stored.
func (c *Cache) Content(ctx context.Context, embeddingID int) (string, error) {
	key := c.key(embeddingID)

	if text, ok := c.get(ctx, key); ok {
		c.metrics.IncContentCache("hit")
		return text, nil
	}
	c.metrics.IncContentCache("miss")

	text, err := c.inner.Content(ctx, embeddingID)
	if err != nil {
		return "", fmt.Errorf("load content: %w", err)
	}
	if text != "" {
		c.put(ctx, key, text)
	}
	return text, nil
}

func (c *Cache) key(id int) string {
	return c.prefix + strconv.Itoa(id)
}

func (c *Cache) get(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached content", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *Cache) put(ctx context.Context, key, text string) {
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, []byte(text), c.ttl)
	} else {
		err = c.store.Set(ctx, key, []byte(text))
	}
	if err != nil {
		c.logger.Warn("Failed to cache content", zap.String("key", key), zap.Error(err))
	}
}
