package filter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/semindex/internal/domain"
	vo "github.com/kailas-cloud/semindex/internal/domain/search/filter"
	"github.com/kailas-cloud/semindex/internal/domain/search/request"
	"github.com/kailas-cloud/semindex/internal/metrics"
	"github.com/kailas-cloud/semindex/internal/notify"
)

// Facet kinds used as single-flight keys and metric labels.
const (
	KindCreateDate  = "createdate_histogram"
	KindModifyDate  = "modifydate_histogram"
	KindTags        = "tags"
	KindSourceTypes = "source_types"
)

// cached is a facet dataset fetched at most once per session.
type cached[T any] struct {
	data   []T
	loaded bool
}

// Service owns facet datasets and the user's filter selections.
// One instance is shared per session.
type Service struct {
	fetcher  FacetFetcher
	notifier Notifier
	metrics  *metrics.Client
	logger   *zap.Logger
	flight   singleflight.Group

	mu          sync.RWMutex
	createHist  cached[domain.HistogramBucket]
	modifyHist  cached[domain.HistogramBucket]
	tags        cached[domain.TagCount]
	sourceTypes cached[domain.SourceTypeCount]

	createRange   *vo.DateRange
	modifyRange   *vo.DateRange
	tagSel        *vo.Selection
	sourceTypeSel *vo.Selection
	showDrawer    bool
}

// New creates the filter state.
func New(fetcher FacetFetcher, notifier Notifier, m *metrics.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{fetcher: fetcher, notifier: notifier, metrics: m, logger: logger}
}

// CreateDateHistogram returns the object-creation histogram, fetching it on first use.
func (s *Service) CreateDateHistogram(ctx context.Context) ([]domain.HistogramBucket, error) {
	return s.histogram(ctx, domain.HistogramCreateDate)
}

// ModifyDateHistogram returns the object-modification histogram, fetching it on first use.
func (s *Service) ModifyDateHistogram(ctx context.Context) ([]domain.HistogramBucket, error) {
	return s.histogram(ctx, domain.HistogramModifyDate)
}

// Histogram returns the histogram of the given kind, fetching it on first use.
func (s *Service) Histogram(ctx context.Context, kind domain.HistogramKind) ([]domain.HistogramBucket, error) {
	return s.histogram(ctx, kind)
}

func (s *Service) histogram(ctx context.Context, kind domain.HistogramKind) ([]domain.HistogramBucket, error) {
	slot, key, err := s.histogramSlot(kind)
	if err != nil {
		return nil, err
	}
	return load(ctx, s, key, slot, func(ctx context.Context) ([]domain.HistogramBucket, error) {
		return s.fetcher.Histogram(ctx, kind)
	}, nil)
}

func (s *Service) histogramSlot(kind domain.HistogramKind) (*cached[domain.HistogramBucket], string, error) {
	switch kind {
	case domain.HistogramCreateDate:
		return &s.createHist, KindCreateDate, nil
	case domain.HistogramModifyDate:
		return &s.modifyHist, KindModifyDate, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", domain.ErrUnknownHistogram, kind)
	}
}

// TagFacets returns tag counts, fetching them on first use.
// The first successful fetch selects every tag.
func (s *Service) TagFacets(ctx context.Context) ([]domain.TagCount, error) {
	return load(ctx, s, KindTags, &s.tags, s.fetcher.Tags, func(data []domain.TagCount) {
		if s.tagSel == nil {
			s.tagSel = vo.NewSelection(tagIDs(data)...)
		}
	})
}

// SourceTypeFacets returns source type counts, fetching them on first use.
// The first successful fetch selects every source type.
func (s *Service) SourceTypeFacets(ctx context.Context) ([]domain.SourceTypeCount, error) {
	return load(ctx, s, KindSourceTypes, &s.sourceTypes, s.fetcher.SourceTypes, func(data []domain.SourceTypeCount) {
		if s.sourceTypeSel == nil {
			s.sourceTypeSel = vo.NewSelection(sourceTypeIDs(data)...)
		}
	})
}

// load returns the cached dataset or fetches it through a per-kind single flight.
// A failed fetch leaves the slot unset so a later call retries.
// onLoad runs under the write lock together with the cache update.
func load[T any](
	ctx context.Context, s *Service, kind string, slot *cached[T],
	fetch func(context.Context) ([]T, error), onLoad func([]T),
) ([]T, error) {
	if data, ok := peek(s, slot); ok {
		return data, nil
	}

	ch := s.flight.DoChan(kind, func() (any, error) {
		if data, ok := peek(s, slot); ok {
			return data, nil
		}
		s.logger.Debug("fetching facet", zap.String("kind", kind))

		// Detached from the first caller so its cancellation does not fail the others.
		data, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			s.metrics.IncFacetFetch(kind, "error")
			s.logger.Warn("facet fetch failed", zap.String("kind", kind), zap.Error(err))
			if s.notifier != nil {
				s.notifier.ShowError("Load filters failed", notify.ErrorMessage(err), true)
			}
			return nil, fmt.Errorf("load %s: %w", kind, err)
		}
		if data == nil {
			data = []T{}
		}
		s.metrics.IncFacetFetch(kind, "ok")

		s.mu.Lock()
		slot.data = data
		slot.loaded = true
		if onLoad != nil {
			onLoad(data)
		}
		s.mu.Unlock()
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]T), nil
	case <-ctx.Done():
		return nil, ctx.Err() //nolint:wrapcheck // caller's own cancellation
	}
}

func peek[T any](s *Service, slot *cached[T]) ([]T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slot.data, slot.loaded
}

// CachedTags returns the tag counts without fetching.
func (s *Service) CachedTags() ([]domain.TagCount, bool) {
	return peek(s, &s.tags)
}

// CachedSourceTypes returns the source type counts without fetching.
func (s *Service) CachedSourceTypes() ([]domain.SourceTypeCount, bool) {
	return peek(s, &s.sourceTypes)
}

// CachedHistogram returns a histogram without fetching.
func (s *Service) CachedHistogram(kind domain.HistogramKind) ([]domain.HistogramBucket, bool) {
	slot, _, err := s.histogramSlot(kind)
	if err != nil {
		return nil, false
	}
	return peek(s, slot)
}

// SetCreateDateRange replaces the creation-date range. Nil clears it.
func (s *Service) SetCreateDateRange(r *vo.DateRange) {
	s.mu.Lock()
	s.createRange = copyRange(r)
	s.mu.Unlock()
}

// SetModifyDateRange replaces the modification-date range. Nil clears it.
func (s *Service) SetModifyDateRange(r *vo.DateRange) {
	s.mu.Lock()
	s.modifyRange = copyRange(r)
	s.mu.Unlock()
}

// SetDateRange replaces the range for the given histogram kind.
func (s *Service) SetDateRange(kind domain.HistogramKind, r *vo.DateRange) error {
	switch kind {
	case domain.HistogramCreateDate:
		s.SetCreateDateRange(r)
	case domain.HistogramModifyDate:
		s.SetModifyDateRange(r)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownHistogram, kind)
	}
	return nil
}

// SetDateRangePercent maps slider positions onto the loaded histogram domain.
func (s *Service) SetDateRangePercent(kind domain.HistogramKind, startPct, endPct float64) (vo.DateRange, error) {
	d, err := s.histogramDomain(kind)
	if err != nil {
		return vo.DateRange{}, err
	}
	r, err := d.RangeFromPercent(startPct, endPct)
	if err != nil {
		return vo.DateRange{}, fmt.Errorf("range from percent: %w", err)
	}
	if err := s.SetDateRange(kind, &r); err != nil {
		return vo.DateRange{}, err
	}
	return r, nil
}

// SetDateRangeDates clamps dates to the loaded histogram domain and derives slider positions.
func (s *Service) SetDateRangeDates(kind domain.HistogramKind, start, end time.Time) (vo.DateRange, error) {
	d, err := s.histogramDomain(kind)
	if err != nil {
		return vo.DateRange{}, err
	}
	r, err := d.RangeFromDates(start, end)
	if err != nil {
		return vo.DateRange{}, fmt.Errorf("range from dates: %w", err)
	}
	if err := s.SetDateRange(kind, &r); err != nil {
		return vo.DateRange{}, err
	}
	return r, nil
}

func (s *Service) histogramDomain(kind domain.HistogramKind) (vo.Domain, error) {
	if !kind.IsValid() {
		return vo.Domain{}, fmt.Errorf("%w: %q", domain.ErrUnknownHistogram, kind)
	}
	buckets, ok := s.CachedHistogram(kind)
	if !ok {
		return vo.Domain{}, fmt.Errorf("%s histogram: %w", kind, domain.ErrFacetNotLoaded)
	}
	d, ok := vo.DomainOf(buckets)
	if !ok {
		return vo.Domain{}, fmt.Errorf("%s histogram is empty: %w", kind, domain.ErrFacetNotLoaded)
	}
	return d, nil
}

// CreateDateRange returns a copy of the creation-date range, or nil.
func (s *Service) CreateDateRange() *vo.DateRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRange(s.createRange)
}

// ModifyDateRange returns a copy of the modification-date range, or nil.
func (s *Service) ModifyDateRange() *vo.DateRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRange(s.modifyRange)
}

// ToggleTag flips membership of a tag in the selection.
// An all-selected sentinel is first materialized from the loaded tags.
func (s *Service) ToggleTag(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tagSel == nil {
		s.tagSel = vo.NewSelection(tagIDs(s.tags.data)...)
	}
	s.tagSel.Toggle(id)
}

// SetTags replaces the tag selection. Nil means all tags.
func (s *Service) SetTags(sel *vo.Selection) {
	s.mu.Lock()
	s.tagSel = sel.Clone()
	s.mu.Unlock()
}

// TagSelection returns a copy of the tag selection. Nil means all tags.
func (s *Service) TagSelection() *vo.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tagSel.Clone()
}

// ToggleSourceType flips membership of a source type in the selection.
func (s *Service) ToggleSourceType(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sourceTypeSel == nil {
		s.sourceTypeSel = vo.NewSelection(sourceTypeIDs(s.sourceTypes.data)...)
	}
	s.sourceTypeSel.Toggle(id)
}

// SetSourceTypes replaces the source type selection. Nil means all source types.
func (s *Service) SetSourceTypes(sel *vo.Selection) {
	s.mu.Lock()
	s.sourceTypeSel = sel.Clone()
	s.mu.Unlock()
}

// SourceTypeSelection returns a copy of the source type selection.
func (s *Service) SourceTypeSelection() *vo.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceTypeSel.Clone()
}

// ResetAll clears both date ranges and reselects every loaded facet value.
// Facet families that were never loaded return to the all sentinel.
func (s *Service) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createRange = nil
	s.modifyRange = nil
	s.tagSel = nil
	if s.tags.loaded {
		s.tagSel = vo.NewSelection(tagIDs(s.tags.data)...)
	}
	s.sourceTypeSel = nil
	if s.sourceTypes.loaded {
		s.sourceTypeSel = vo.NewSelection(sourceTypeIDs(s.sourceTypes.data)...)
	}
}

// ActiveFilterCount counts narrowing filters: one per narrowed date range
// plus the number of deselected values in each loaded facet family.
// It never fetches.
func (s *Service) ActiveFilterCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	if s.createRange != nil && s.createRange.IsNarrowed() {
		n++
	}
	if s.modifyRange != nil && s.modifyRange.IsNarrowed() {
		n++
	}
	if s.tags.loaded {
		n += s.tagSel.Deselected(tagIDs(s.tags.data))
	}
	if s.sourceTypes.loaded {
		n += s.sourceTypeSel.Deselected(sourceTypeIDs(s.sourceTypes.data))
	}
	return n
}

// Snapshot captures the current filters as request fields.
// Full-domain ranges are sent as null bounds.
func (s *Service) Snapshot() request.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var df request.DateFilter
	df.CreateDateStart, df.CreateDateEnd = rangeBounds(s.createRange)
	df.ModifiedDateStart, df.ModifiedDateEnd = rangeBounds(s.modifyRange)

	return request.Filters{
		DateFilter: df,
		Facets: request.Facets{
			request.FacetTags:        s.tagSel.IDs(),
			request.FacetSourceTypes: s.sourceTypeSel.IDs(),
		},
	}
}

// ShowDrawer reports whether the filter drawer is open.
func (s *Service) ShowDrawer() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showDrawer
}

// SetShowDrawer opens or closes the filter drawer.
func (s *Service) SetShowDrawer(show bool) {
	s.mu.Lock()
	s.showDrawer = show
	s.mu.Unlock()
}

func rangeBounds(r *vo.DateRange) (start, end *time.Time) {
	if r == nil || !r.IsNarrowed() {
		return nil, nil
	}
	st, en := r.StartDate, r.EndDate
	return &st, &en
}

func copyRange(r *vo.DateRange) *vo.DateRange {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func tagIDs(tags []domain.TagCount) []int {
	ids := make([]int, len(tags))
	for i, t := range tags {
		ids[i] = t.Tag.ID
	}
	return ids
}

func sourceTypeIDs(types []domain.SourceTypeCount) []int {
	ids := make([]int, len(types))
	for i, t := range types {
		ids[i] = t.SourceType.ID
	}
	return ids
}
