package semindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semindex/internal/db"
	dbRedis "github.com/kailas-cloud/semindex/internal/db/redis"
	"github.com/kailas-cloud/semindex/internal/domain/search/mode"
	"github.com/kailas-cloud/semindex/internal/domain/search/request"
	"github.com/kailas-cloud/semindex/internal/location"
	"github.com/kailas-cloud/semindex/internal/metrics"
	"github.com/kailas-cloud/semindex/internal/notify"
	"github.com/kailas-cloud/semindex/internal/repository/contentcache"
	"github.com/kailas-cloud/semindex/internal/transport/httpapi"
	filteruc "github.com/kailas-cloud/semindex/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/semindex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semindex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is one search session.
type Client struct {
	api      *httpapi.Client
	store    db.Store
	filters  *filteruc.Service
	search   *searchuc.Service
	notifier *notify.Channel
	loc      *location.URL
	health   *healthuc.Service
}

// New creates a Client. A Redis content cache configured with WithRedis
// must become ready before New returns.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		limit:    request.DefaultLimit,
		mode:     mode.Chunks,
		location: "/",
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.baseURL == "" {
		return nil, errors.New("semindex: base url required (use WithBaseURL)")
	}
	if cfg.limit < request.MinLimit || cfg.limit > request.MaxLimit {
		return nil, fmt.Errorf("semindex: limit %d: %w", cfg.limit, ErrInvalidLimit)
	}
	if !cfg.mode.IsValid() {
		return nil, fmt.Errorf("semindex: unknown search mode %q", cfg.mode)
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var m *metrics.Client
	if cfg.metricsReg != nil {
		var err error
		if m, err = metrics.NewClient(cfg.metricsReg); err != nil {
			return nil, fmt.Errorf("semindex: %w", err)
		}
	}

	api, err := httpapi.New(&httpapi.Config{
		BaseURL:           cfg.baseURL,
		APIKey:            cfg.apiKey,
		HTTPClient:        cfg.httpClient,
		Timeout:           cfg.timeout,
		RequestsPerSecond: cfg.requestsPerSecond,
		Burst:             cfg.burst,
		Metrics:           m,
		Logger:            logger.Named("transport"),
	})
	if err != nil {
		return nil, fmt.Errorf("semindex: %w", err)
	}

	loc, err := location.New(cfg.location)
	if err != nil {
		return nil, fmt.Errorf("semindex: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	return wireClient(cfg, api, store, loc, m, logger), nil
}

func openStore(cfg *clientConfig) (db.Store, error) {
	if len(cfg.redisAddrs) == 0 {
		return nil, nil
	}
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.redisAddrs,
		Password: cfg.redisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("semindex: create redis store: %w", err)
	}
	if err := s.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("semindex: content cache not ready: %w", err)
	}
	return s, nil
}

func wireClient(
	cfg *clientConfig, api *httpapi.Client, store db.Store, loc *location.URL,
	m *metrics.Client, logger *zap.Logger,
) *Client {
	kv := cfg.contentStore
	if store != nil {
		kv = store
	}

	var content searchuc.ContentFetcher = api
	var cachePinger healthuc.Pinger
	if kv != nil {
		content = contentcache.New(api, kv, cfg.cacheTTL, m, logger.Named("contentcache")).
			WithPrefix(cfg.cachePrefix)
		if p, ok := kv.(healthuc.Pinger); ok {
			cachePinger = p
		}
	}

	notifier := notify.New()
	filters := filteruc.New(api, notifier, m, logger.Named("filters"))
	search := searchuc.New(api, content, filters, notifier, loc).
		WithLimit(cfg.limit).
		WithMode(cfg.mode).
		WithMetrics(m).
		WithLogger(logger.Named("search"))

	return &Client{
		api:      api,
		store:    store,
		filters:  filters,
		search:   search,
		notifier: notifier,
		loc:      loc,
		health:   healthuc.New(api, cachePinger),
	}
}

// Close releases the Redis connection opened by WithRedis.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks that the search service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search returns the search coordinator.
func (c *Client) Search() *SearchCoordinator { return c.search }

// Filters returns the facet filter state.
func (c *Client) Filters() *FilterState { return c.filters }

// Notifications returns the notification channel.
func (c *Client) Notifications() *Notifications { return c.notifier }

// Location returns the navigable location. Accepted searches write the query into it.
func (c *Client) Location() *Location { return c.loc }

// Health returns the health checker for the search service and the content cache.
func (c *Client) Health() *HealthChecker { return c.health }
