package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Client holds the search client's Prometheus metrics.
// A nil *Client is valid and records nothing.
type Client struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	searches     *prometheus.CounterVec
	contentLoads *prometheus.CounterVec
	facetFetches *prometheus.CounterVec
	contentCache *prometheus.CounterVec
}

// NewClient creates the client metrics and registers them on reg.
// Collectors already registered by another client instance are reused.
func NewClient(reg prometheus.Registerer) (*Client, error) {
	m := &Client{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semindex",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total remote calls by operation and status.",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "semindex",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Remote call duration in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semindex",
			Name:      "searches_total",
			Help:      "Search submissions by outcome.",
		}, []string{"outcome"}), // succeeded / failed / dropped_busy / dropped_empty
		contentLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semindex",
			Name:      "content_loads_total",
			Help:      "Lazy content loads by outcome.",
		}, []string{"outcome"}),
		facetFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semindex",
			Name:      "facet_fetches_total",
			Help:      "Facet and histogram fetches by kind and status.",
		}, []string{"kind", "status"}),
		contentCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semindex",
			Name:      "content_cache_total",
			Help:      "Shared content cache hits and misses.",
		}, []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []**prometheus.CounterVec{
		&m.requests, &m.searches, &m.contentLoads, &m.facetFetches, &m.contentCache,
	} {
		if err := registerOrReuse(reg, c); err != nil {
			return nil, err
		}
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("register metric: %w", err)
	}
	return nil
}

// ObserveRequest records one remote call.
func (m *Client) ObserveRequest(op, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// IncSearch counts a search submission outcome.
func (m *Client) IncSearch(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

// IncContentLoad counts a content load outcome.
func (m *Client) IncContentLoad(outcome string) {
	if m == nil {
		return
	}
	m.contentLoads.WithLabelValues(outcome).Inc()
}

// IncFacetFetch counts a facet fetch.
func (m *Client) IncFacetFetch(kind, status string) {
	if m == nil {
		return
	}
	m.facetFetches.WithLabelValues(kind, status).Inc()
}

// IncContentCache counts a shared content cache lookup ("hit" / "miss").
func (m *Client) IncContentCache(result string) {
	if m == nil {
		return
	}
	m.contentCache.WithLabelValues(result).Inc()
}
