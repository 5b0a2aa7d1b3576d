package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semindex/internal/debounce"
	"github.com/kailas-cloud/semindex/internal/domain"
	"github.com/kailas-cloud/semindex/internal/domain/search/mode"
	"github.com/kailas-cloud/semindex/internal/domain/search/request"
	"github.com/kailas-cloud/semindex/internal/metrics"
	"github.com/kailas-cloud/semindex/internal/notify"
)

// QueryParam is the location key the query is mirrored into.
const QueryParam = "q"

// Notification titles.
const (
	TitleSearching         = "Searching..."
	TitleSearchFailed      = "Search failed"
	TitleContentLoadFailed = "Load content failed"
)

// errSearchAborted is recorded when the searcher panics before returning.
var errSearchAborted = errors.New("search aborted")

// Service coordinates query submission, results and lazy content loading.
// One instance is shared per session.
type Service struct {
	searcher Searcher
	content  ContentFetcher
	filters  FilterSnapshotter
	notifier Notifier
	loc      Location
	limit    int
	mode     mode.Mode
	metrics  *metrics.Client
	logger   *zap.Logger

	mu        sync.RWMutex
	query     string
	status    Status
	outcome   Status
	lastErr   error
	results   []domain.SearchResult
	collapsed map[int]bool
	loading   map[int]bool
	contents  map[int]string
}

// New creates a search coordinator. filters and loc may be nil.
func New(searcher Searcher, content ContentFetcher, filters FilterSnapshotter, notifier Notifier, loc Location) *Service {
	return &Service{
		searcher:  searcher,
		content:   content,
		filters:   filters,
		notifier:  notifier,
		loc:       loc,
		limit:     request.DefaultLimit,
		mode:      mode.Chunks,
		logger:    zap.NewNop(),
		results:   []domain.SearchResult{},
		collapsed: make(map[int]bool),
		loading:   make(map[int]bool),
		contents:  make(map[int]string),
	}
}

// WithLimit configures the result limit sent with every search.
func (s *Service) WithLimit(limit int) *Service {
	s.limit = limit
	return s
}

// WithMode configures which search endpoint is used.
func (s *Service) WithMode(m mode.Mode) *Service {
	s.mode = m
	return s
}

// WithMetrics configures search and content load counters.
func (s *Service) WithMetrics(m *metrics.Client) *Service {
	s.metrics = m
	return s
}

// WithLogger configures the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// SetQuery updates the query text without searching.
func (s *Service) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

// Search submits the current query text.
func (s *Service) Search(ctx context.Context) error {
	return s.Submit(ctx, s.Query())
}

// Submit runs a search for q. Blank queries return ErrEmptyQuery and a
// submission while another search is in flight returns ErrSearchInProgress;
// neither touches the network or the notification channel.
// Remote failures are surfaced through the notifier and also returned.
// Cancelling ctx does not abort a search once it has started.
func (s *Service) Submit(ctx context.Context, q string) error {
	if strings.TrimSpace(q) == "" {
		s.metrics.IncSearch("dropped_empty")
		return domain.ErrEmptyQuery
	}

	s.mu.Lock()
	if s.status == StatusSearching {
		s.mu.Unlock()
		s.metrics.IncSearch("dropped_busy")
		return domain.ErrSearchInProgress
	}
	s.status = StatusSearching
	s.query = q
	s.mu.Unlock()

	s.notifier.ShowLoading(TitleSearching)
	if s.loc != nil {
		s.loc.Replace(QueryParam, q)
	}

	start := time.Now()
	results, err := s.execute(context.WithoutCancel(ctx), q)

	if err != nil {
		s.metrics.IncSearch("failed")
		s.logger.Warn("search failed",
			zap.String("query", q), zap.String("mode", string(s.mode)), zap.Error(err))
		s.notifier.ShowError(TitleSearchFailed, notify.ErrorMessage(err), true)
		return fmt.Errorf("search: %w", err)
	}

	s.metrics.IncSearch("succeeded")
	s.logger.Debug("search completed",
		zap.String("query", q), zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))
	s.notifier.Close()
	return nil
}

// execute runs the search and always returns the coordinator to Idle, even if
// the searcher panics.
func (s *Service) execute(ctx context.Context, q string) (results []domain.SearchResult, err error) {
	err = errSearchAborted
	defer func() { s.finish(results, err) }()
	return s.run(ctx, q)
}

func (s *Service) run(ctx context.Context, q string) ([]domain.SearchResult, error) {
	var f request.Filters
	if s.filters != nil {
		f = s.filters.Snapshot()
	}
	req, err := request.New(q, s.limit, f.DateFilter, f.Facets)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	results, err := s.searcher.Search(ctx, s.mode, req)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped once in Submit
	}
	return results, nil
}

// finish replaces results and returns the coordinator to Idle.
func (s *Service) finish(results []domain.SearchResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusIdle
	s.lastErr = err
	if err != nil {
		s.outcome = StatusFailed
		s.results = []domain.SearchResult{}
		return
	}
	s.outcome = StatusSucceeded
	if results == nil {
		results = []domain.SearchResult{}
	}
	s.results = results
	for i := range results {
		id := results[i].ID()
		if _, ok := s.collapsed[id]; !ok {
			s.collapsed[id] = true
		}
	}
}

// Restore submits the query held in the location, if any.
// It reports whether a search was issued.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	if s.loc == nil {
		return false, nil
	}
	q := s.loc.Get(QueryParam)
	if strings.TrimSpace(q) == "" {
		return false, nil
	}
	s.SetQuery(q)
	if err := s.Submit(ctx, q); err != nil {
		return true, err
	}
	return true, nil
}

// Toggle sets a result's collapse state. Expanding loads its content at most once.
func (s *Service) Toggle(ctx context.Context, id int, collapsed bool) error {
	s.mu.Lock()
	s.collapsed[id] = collapsed
	s.mu.Unlock()

	if collapsed {
		return nil
	}
	return s.loadContent(ctx, id)
}

// Expand opens a result and loads its content if not cached.
func (s *Service) Expand(ctx context.Context, id int) error {
	return s.Toggle(ctx, id, false)
}

// Collapse closes a result. It never fetches.
func (s *Service) Collapse(id int) {
	s.mu.Lock()
	s.collapsed[id] = true
	s.mu.Unlock()
}

// loadContent fetches content for id unless it is cached or already loading.
// Failures are cached as a placeholder so they are not retried. The fetch
// outlives ctx cancellation so a departed caller cannot poison the cache.
func (s *Service) loadContent(ctx context.Context, id int) error {
	s.mu.Lock()
	if _, ok := s.contents[id]; ok || s.loading[id] {
		s.mu.Unlock()
		return nil
	}
	s.loading[id] = true
	s.mu.Unlock()

	text, err := s.content.Content(context.WithoutCancel(ctx), id)

	s.mu.Lock()
	delete(s.loading, id)
	switch {
	case err != nil:
		s.contents[id] = domain.ContentLoadFailed
	case text == "":
		s.contents[id] = domain.ContentNotAvailable
	default:
		s.contents[id] = text
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.IncContentLoad("error")
		s.logger.Warn("content load failed", zap.Int("embedding_id", id), zap.Error(err))
		s.notifier.ShowError(TitleContentLoadFailed, notify.ErrorMessage(err), true)
		return fmt.Errorf("load content %d: %w", id, err)
	}
	s.metrics.IncContentLoad("ok")
	return nil
}

// DebouncedSubmit returns a debouncer that searches the current query text
// once input has been quiet for wait.
func (s *Service) DebouncedSubmit(ctx context.Context, wait time.Duration) *debounce.Debouncer {
	return debounce.New(func() {
		err := s.Search(ctx)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrEmptyQuery), errors.Is(err, domain.ErrSearchInProgress):
			s.logger.Debug("debounced search skipped", zap.Error(err))
		default:
			s.logger.Debug("debounced search failed", zap.Error(err))
		}
	}, wait)
}

// Query returns the current query text.
func (s *Service) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Searching reports whether a search is in flight.
func (s *Service) Searching() bool {
	return s.Status() == StatusSearching
}

// Status returns Idle or Searching.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Outcome returns the result of the last completed search, or Idle before any.
func (s *Service) Outcome() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// LastError returns the error of the last completed search.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Results returns the current results in received order.
func (s *Service) Results() []domain.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SearchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Collapsed reports whether a result is collapsed. Untracked ids are collapsed.
func (s *Service) Collapsed(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collapsed[id]
	return !ok || c
}

// Loading reports whether content for id is being fetched.
func (s *Service) Loading(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[id]
}

// Content returns the cached content for id.
func (s *Service) Content(id int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.contents[id]
	return text, ok
}

// ResultState is a result together with its per-result view state.
type ResultState struct {
	Result     domain.SearchResult
	Collapsed  bool
	Loading    bool
	Content    string
	HasContent bool
}

// State is a consistent read-only view of the coordinator.
type State struct {
	Query   string
	Status  Status
	Outcome Status
	Results []ResultState
}

// Snapshot returns the coordinator state under a single lock.
func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Query:   s.query,
		Status:  s.status,
		Outcome: s.outcome,
		Results: make([]ResultState, len(s.results)),
	}
	for i := range s.results {
		id := s.results[i].ID()
		c, tracked := s.collapsed[id]
		text, has := s.contents[id]
		st.Results[i] = ResultState{
			Result:     s.results[i],
			Collapsed:  !tracked || c,
			Loading:    s.loading[id],
			Content:    text,
			HasContent: has,
		}
	}
	return st
}
