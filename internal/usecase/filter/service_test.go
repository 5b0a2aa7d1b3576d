package filter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/semindex/internal/domain"
	vo "github.com/kailas-cloud/semindex/internal/domain/search/filter"
	"github.com/kailas-cloud/semindex/internal/domain/search/request"
)

// --- Mocks ---

type mockFetcher struct {
	histCalls   atomic.Int32
	tagCalls    atomic.Int32
	typeCalls   atomic.Int32
	gate        chan struct{}
	buckets     []domain.HistogramBucket
	tags        []domain.TagCount
	sourceTypes []domain.SourceTypeCount
	err         error
}

func (m *mockFetcher) wait() {
	if m.gate != nil {
		<-m.gate
	}
}

func (m *mockFetcher) Histogram(_ context.Context, _ domain.HistogramKind) ([]domain.HistogramBucket, error) {
	m.histCalls.Add(1)
	m.wait()
	return m.buckets, m.err
}

func (m *mockFetcher) Tags(_ context.Context) ([]domain.TagCount, error) {
	m.tagCalls.Add(1)
	m.wait()
	return m.tags, m.err
}

func (m *mockFetcher) SourceTypes(_ context.Context) ([]domain.SourceTypeCount, error) {
	m.typeCalls.Add(1)
	m.wait()
	return m.sourceTypes, m.err
}

type mockNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (m *mockNotifier) ShowError(title, _ string, _ bool) {
	m.mu.Lock()
	m.titles = append(m.titles, title)
	m.mu.Unlock()
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.titles)
}

func tenTags() []domain.TagCount {
	out := make([]domain.TagCount, 10)
	for i := range out {
		out[i] = domain.TagCount{Tag: domain.Tag{ID: i + 1, Name: "t"}, Count: i}
	}
	return out
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// --- Tests ---

func TestTagFacets_FetchOnce(t *testing.T) {
	f := &mockFetcher{tags: tenTags()}
	svc := New(f, &mockNotifier{}, nil, nil)

	for range 5 {
		tags, err := svc.TagFacets(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tags) != 10 {
			t.Fatalf("expected 10 tags, got %d", len(tags))
		}
	}
	if got := f.tagCalls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}

func TestTagFacets_ConcurrentFirstCallersShareFetch(t *testing.T) {
	f := &mockFetcher{tags: tenTags(), gate: make(chan struct{})}
	svc := New(f, &mockNotifier{}, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TagFacets(context.Background())
			errs <- err
		}()
	}
	// Let the callers pile up behind the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := f.tagCalls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}

func TestTagFacets_FailureNotifiesAndRetries(t *testing.T) {
	f := &mockFetcher{err: errors.New("boom")}
	n := &mockNotifier{}
	svc := New(f, n, nil, nil)

	if _, err := svc.TagFacets(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n.count() != 1 {
		t.Errorf("expected 1 notification, got %d", n.count())
	}
	if _, ok := svc.CachedTags(); ok {
		t.Error("failed fetch must leave the cache unset")
	}

	f.err = nil
	f.tags = tenTags()
	tags, err := svc.TagFacets(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(tags) != 10 || f.tagCalls.Load() != 2 {
		t.Errorf("expected retry to fetch 10 tags, got %d tags after %d calls", len(tags), f.tagCalls.Load())
	}
}

func TestTagFacets_EmptyResultIsCached(t *testing.T) {
	f := &mockFetcher{}
	svc := New(f, &mockNotifier{}, nil, nil)

	for range 3 {
		if _, err := svc.TagFacets(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if f.tagCalls.Load() != 1 {
		t.Errorf("expected 1 fetch, got %d", f.tagCalls.Load())
	}
}

func TestTagFacets_FirstLoadSelectsAll(t *testing.T) {
	svc := New(&mockFetcher{tags: tenTags()}, &mockNotifier{}, nil, nil)
	if !svc.TagSelection().IsAll() {
		t.Fatal("expected sentinel before load")
	}
	if _, err := svc.TagFacets(context.Background()); err != nil {
		t.Fatal(err)
	}
	sel := svc.TagSelection()
	if sel.IsAll() || sel.Len() != 10 {
		t.Errorf("expected 10 selected ids, got %v", sel.IDs())
	}
}

func TestSourceTypeFacets_FetchOnce(t *testing.T) {
	f := &mockFetcher{sourceTypes: []domain.SourceTypeCount{
		{SourceType: domain.SourceType{ID: 1, Name: "fs"}, Count: 3},
		{SourceType: domain.SourceType{ID: 2, Name: "web"}, Count: 1},
	}}
	svc := New(f, &mockNotifier{}, nil, nil)
	for range 3 {
		if _, err := svc.SourceTypeFacets(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if f.typeCalls.Load() != 1 {
		t.Errorf("expected 1 fetch, got %d", f.typeCalls.Load())
	}
	if got := svc.SourceTypeSelection().IDs(); len(got) != 2 {
		t.Errorf("expected both source types selected, got %v", got)
	}
}

func TestHistogram_KindsAreIndependent(t *testing.T) {
	f := &mockFetcher{buckets: []domain.HistogramBucket{{Bucket: month(2024, 1), Count: 2}}}
	svc := New(f, &mockNotifier{}, nil, nil)

	if _, err := svc.CreateDateHistogram(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateDateHistogram(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ModifyDateHistogram(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.histCalls.Load() != 2 {
		t.Errorf("expected one fetch per kind, got %d", f.histCalls.Load())
	}
	if _, err := svc.Histogram(context.Background(), "bogus"); !errors.Is(err, domain.ErrUnknownHistogram) {
		t.Errorf("expected ErrUnknownHistogram, got %v", err)
	}
}

func TestHistogram_CallerCancellation(t *testing.T) {
	f := &mockFetcher{gate: make(chan struct{})}
	svc := New(f, &mockNotifier{}, nil, nil)
	defer close(f.gate)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := svc.CreateDateHistogram(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestActiveFilterCount_Empty(t *testing.T) {
	svc := New(&mockFetcher{}, &mockNotifier{}, nil, nil)
	if got := svc.ActiveFilterCount(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestActiveFilterCount_Combined(t *testing.T) {
	f := &mockFetcher{
		tags: tenTags(),
		sourceTypes: []domain.SourceTypeCount{
			{SourceType: domain.SourceType{ID: 1}}, {SourceType: domain.SourceType{ID: 2}},
		},
	}
	svc := New(f, &mockNotifier{}, nil, nil)
	ctx := context.Background()
	if _, err := svc.TagFacets(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SourceTypeFacets(ctx); err != nil {
		t.Fatal(err)
	}

	narrowed, err := vo.NewDateRange(month(2024, 1), 10, month(2024, 6), 100)
	if err != nil {
		t.Fatal(err)
	}
	full, err := vo.NewDateRange(month(2020, 1), 0, month(2025, 1), 100)
	if err != nil {
		t.Fatal(err)
	}
	svc.SetCreateDateRange(&narrowed)
	svc.SetModifyDateRange(&full)
	// Keep 3 of 10 tags: 7 deselected.
	svc.SetTags(vo.NewSelection(1, 2, 3))

	if got := svc.ActiveFilterCount(); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
	if f.histCalls.Load() != 0 {
		t.Error("ActiveFilterCount must not fetch")
	}

	svc.ToggleSourceType(2)
	if got := svc.ActiveFilterCount(); got != 9 {
		t.Errorf("expected 9 after deselecting a source type, got %d", got)
	}

	svc.ResetAll()
	if got := svc.ActiveFilterCount(); got != 0 {
		t.Errorf("expected 0 after reset, got %d", got)
	}
}

func TestActiveFilterCount_UnloadedFamilyIgnored(t *testing.T) {
	svc := New(&mockFetcher{}, &mockNotifier{}, nil, nil)
	svc.SetTags(vo.NewSelection())
	if got := svc.ActiveFilterCount(); got != 0 {
		t.Errorf("unloaded tags must not count, got %d", got)
	}
}

func TestToggleTag_MaterializesSentinel(t *testing.T) {
	svc := New(&mockFetcher{tags: tenTags()}, &mockNotifier{}, nil, nil)
	if _, err := svc.TagFacets(context.Background()); err != nil {
		t.Fatal(err)
	}
	svc.SetTags(nil)
	svc.ToggleTag(4)

	sel := svc.TagSelection()
	if sel.Has(4) || sel.Len() != 9 {
		t.Errorf("expected 9 tags without 4, got %v", sel.IDs())
	}
	svc.ToggleTag(4)
	if svc.ActiveFilterCount() != 0 {
		t.Errorf("expected toggle back to clear the filter")
	}
}

func TestSnapshot(t *testing.T) {
	svc := New(&mockFetcher{}, &mockNotifier{}, nil, nil)

	snap := svc.Snapshot()
	if snap.DateFilter.CreateDateStart != nil || snap.DateFilter.ModifiedDateEnd != nil {
		t.Error("expected null dates without ranges")
	}
	if snap.Facets[request.FacetTags] != nil || snap.Facets[request.FacetSourceTypes] != nil {
		t.Error("expected null facets for the all sentinel")
	}

	r, err := vo.NewDateRange(month(2023, 3), 25, month(2023, 9), 75)
	if err != nil {
		t.Fatal(err)
	}
	svc.SetCreateDateRange(&r)
	svc.SetTags(vo.NewSelection(7, 3))
	svc.SetSourceTypes(vo.NewSelection())

	snap = svc.Snapshot()
	if snap.DateFilter.CreateDateStart == nil || !snap.DateFilter.CreateDateStart.Equal(month(2023, 3)) {
		t.Errorf("unexpected create start %v", snap.DateFilter.CreateDateStart)
	}
	if snap.DateFilter.CreateDateEnd == nil || !snap.DateFilter.CreateDateEnd.Equal(month(2023, 9)) {
		t.Errorf("unexpected create end %v", snap.DateFilter.CreateDateEnd)
	}
	if snap.DateFilter.ModifiedDateStart != nil {
		t.Error("modify range unset, expected null")
	}
	tags := snap.Facets[request.FacetTags]
	if len(tags) != 2 || tags[0] != 3 || tags[1] != 7 {
		t.Errorf("expected sorted [3 7], got %v", tags)
	}
	types := snap.Facets[request.FacetSourceTypes]
	if types == nil || len(types) != 0 {
		t.Errorf("expected empty non-nil source types, got %v", types)
	}
}

func TestSetDateRangePercent(t *testing.T) {
	f := &mockFetcher{buckets: []domain.HistogramBucket{
		{Bucket: month(2024, 1), Count: 1},
		{Bucket: month(2024, 12), Count: 1},
	}}
	svc := New(f, &mockNotifier{}, nil, nil)

	if _, err := svc.SetDateRangePercent(domain.HistogramCreateDate, 0, 50); !errors.Is(err, domain.ErrFacetNotLoaded) {
		t.Fatalf("expected ErrFacetNotLoaded, got %v", err)
	}
	if _, err := svc.CreateDateHistogram(context.Background()); err != nil {
		t.Fatal(err)
	}
	r, err := svc.SetDateRangePercent(domain.HistogramCreateDate, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !r.StartDate.Equal(month(2024, 1)) || !r.EndDate.Equal(month(2025, 1)) {
		t.Errorf("unexpected full range %v..%v", r.StartDate, r.EndDate)
	}
	if svc.ActiveFilterCount() != 0 {
		t.Error("full-domain range must not count")
	}
	if _, err := svc.SetDateRangePercent(domain.HistogramCreateDate, 60, 40); !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Errorf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestShowDrawer(t *testing.T) {
	svc := New(&mockFetcher{}, &mockNotifier{}, nil, nil)
	if svc.ShowDrawer() {
		t.Fatal("drawer starts closed")
	}
	svc.SetShowDrawer(true)
	if !svc.ShowDrawer() {
		t.Error("expected drawer open")
	}
}

func TestSetDateRangeDates(t *testing.T) {
	f := &mockFetcher{buckets: []domain.HistogramBucket{
		{Bucket: month(2024, 1), Count: 1},
		{Bucket: month(2024, 4), Count: 1},
	}}
	svc := New(f, &mockNotifier{}, nil, nil)
	if _, err := svc.ModifyDateHistogram(context.Background()); err != nil {
		t.Fatal(err)
	}

	r, err := svc.SetDateRangeDates(domain.HistogramModifyDate, month(2023, 1), month(2024, 3))
	if err != nil {
		t.Fatal(err)
	}
	if !r.StartDate.Equal(month(2024, 1)) || r.StartPercent != 0 {
		t.Errorf("expected start clamped to domain, got %v (%.1f%%)", r.StartDate, r.StartPercent)
	}
	if r.EndPercent <= 0 || r.EndPercent >= 100 {
		t.Errorf("expected interior end percent, got %.1f", r.EndPercent)
	}
	if got := svc.ModifyDateRange(); got == nil || !got.EndDate.Equal(month(2024, 3)) {
		t.Errorf("range not stored: %+v", got)
	}
	if svc.ActiveFilterCount() != 1 {
		t.Errorf("expected 1 active filter, got %d", svc.ActiveFilterCount())
	}
	if _, err := svc.SetDateRangeDates("weekly", month(2024, 1), month(2024, 2)); !errors.Is(err, domain.ErrUnknownHistogram) {
		t.Errorf("expected ErrUnknownHistogram, got %v", err)
	}
}
