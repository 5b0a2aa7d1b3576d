package semindex

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration

	requestsPerSecond float64
	burst             int

	limit    int
	mode     Mode
	location string

	redisAddrs    []string
	redisPassword string
	contentStore  KVStore
	cacheTTL      time.Duration
	cachePrefix   string

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithBaseURL sets the search service base URL. Required.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = url
	})
}

// WithAPIKey sends the key as a bearer token on every call.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the HTTP client. WithTimeout is ignored when set.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-call timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithLimit sets the number of results requested per search (1..100). Default: 20.
func WithLimit(limit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.limit = limit
	})
}

// WithMode selects chunk or document search. Default: ModeChunks.
func WithMode(m Mode) Option {
	return optionFunc(func(c *clientConfig) {
		c.mode = m
	})
}

// WithRateLimit paces outgoing calls with a token bucket.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.requestsPerSecond = requestsPerSecond
		c.burst = burst
	})
}

// WithLocation sets the initial navigable location, e.g. "/search?q=rust".
func WithLocation(raw string) Option {
	return optionFunc(func(c *clientConfig) {
		c.location = raw
	})
}

// WithContentStore shares loaded content between sessions through kv.
// A zero ttl stores entries without expiry.
func WithContentStore(kv KVStore, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.contentStore = kv
		c.cacheTTL = ttl
	})
}

// WithRedis connects the shared content cache to Redis. The client owns the connection.
func WithRedis(addrs []string, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = addrs
		c.redisPassword = password
		c.cacheTTL = ttl
	})
}

// WithContentKeyPrefix overrides the shared content cache key prefix.
func WithContentKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cachePrefix = prefix
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
