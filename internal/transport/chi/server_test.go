package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/semindex/internal/domain"
	"github.com/kailas-cloud/semindex/internal/domain/search/mode"
	"github.com/kailas-cloud/semindex/internal/domain/search/request"
	"github.com/kailas-cloud/semindex/internal/notify"
	filteruc "github.com/kailas-cloud/semindex/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/semindex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semindex/internal/usecase/search"
)

// --- Fakes ---

type fakeAPI struct {
	searchErr   error
	contentErr  error
	searchCalls atomic.Int32
	lastTags    []int
}

func (f *fakeAPI) Search(_ context.Context, _ mode.Mode, req request.Request) ([]domain.SearchResult, error) {
	f.searchCalls.Add(1)
	f.lastTags, _ = req.Facet(request.FacetTags)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return []domain.SearchResult{
		{
			Source:     domain.Source{ID: 1, Title: "Intro to neural networks", URI: "file:///nn.md"},
			Embedding:  domain.Embedding{ID: 11, SourceID: 1},
			Similarity: 0.91,
		},
		{
			Source:     domain.Source{ID: 2, URI: "file:///backprop.md"},
			Embedding:  domain.Embedding{ID: 12, SourceID: 2, ChunkIdx: 3},
			Similarity: 0.55,
		},
	}, nil
}

func (f *fakeAPI) Content(_ context.Context, id int) (string, error) {
	if f.contentErr != nil {
		return "", f.contentErr
	}
	return "section " + strings.Repeat("x", id%3), nil
}

func (f *fakeAPI) Histogram(_ context.Context, _ domain.HistogramKind) ([]domain.HistogramBucket, error) {
	return []domain.HistogramBucket{
		{Bucket: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), Count: 4},
		{Bucket: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), Count: 2},
	}, nil
}

func (f *fakeAPI) Tags(_ context.Context) ([]domain.TagCount, error) {
	return []domain.TagCount{
		{Tag: domain.Tag{ID: 1, Name: "ml"}, Count: 5},
		{Tag: domain.Tag{ID: 2, Name: "ops"}, Count: 1},
	}, nil
}

func (f *fakeAPI) SourceTypes(_ context.Context) ([]domain.SourceTypeCount, error) {
	return []domain.SourceTypeCount{{SourceType: domain.SourceType{ID: 1, Name: "fs"}, Count: 6}}, nil
}

func (f *fakeAPI) Ping(_ context.Context) error { return nil }

type testEnv struct {
	api      *fakeAPI
	notifier *notify.Channel
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := &fakeAPI{}
	n := notify.New()
	filters := filteruc.New(api, n, nil, zap.NewNop())
	search := searchuc.New(api, api, filters, n, nil)
	health := healthuc.New(api, nil)
	srv := NewServer(search, filters, n, health, zap.NewNop())
	return &testEnv{api: api, notifier: n, handler: srv.Handler(nil)}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// --- Tests ---

func TestSearch_Success(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/search", `{"query":"neural networks"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	st := decode[StateResponse](t, rr)
	if st.Query != "neural networks" || st.Outcome != "succeeded" || st.Searching {
		t.Errorf("unexpected state %+v", st)
	}
	if len(st.Results) != 2 || st.Results[0].ID != 11 || st.Results[1].ID != 12 {
		t.Fatalf("unexpected results %+v", st.Results)
	}
	if !st.Results[0].Collapsed || st.Results[0].Content != nil {
		t.Errorf("new results start collapsed without content: %+v", st.Results[0])
	}
	if st.Results[1].Source.DisplayName != "file:///backprop.md" {
		t.Errorf("expected URI fallback, got %q", st.Results[1].Source.DisplayName)
	}
	if st.Notification.Visible {
		t.Error("notification should be closed after success")
	}
}

func TestSearch_ReusesCurrentQuery(t *testing.T) {
	e := newTestEnv(t)
	if rr := e.do(t, http.MethodPost, "/search", `{"query":"first"}`); rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	rr := e.do(t, http.MethodPost, "/search", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if e.api.searchCalls.Load() != 2 {
		t.Errorf("expected 2 searches, got %d", e.api.searchCalls.Load())
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodPost, "/search", `{"query":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeEmptyQuery {
		t.Errorf("unexpected code %q", resp.Code)
	}
	if e.api.searchCalls.Load() != 0 {
		t.Error("blank query must not reach the search service")
	}
}

func TestSearch_RemoteFailure(t *testing.T) {
	e := newTestEnv(t)
	e.api.searchErr = domain.NewRemoteError("search_chunks", 500, "index offline")

	rr := e.do(t, http.MethodPost, "/search", `{"query":"q"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[ErrorResponse](t, rr)
	if resp.Code != ErrorCodeUpstreamError || !strings.Contains(resp.Message, "index offline") {
		t.Errorf("unexpected error %+v", resp)
	}

	st := decode[StateResponse](t, e.do(t, http.MethodGet, "/state", ""))
	if st.Outcome != "failed" || len(st.Results) != 0 {
		t.Errorf("unexpected state %+v", st)
	}
	if !st.Notification.IsError || !st.Notification.IsClosable {
		t.Errorf("expected closable error notification, got %+v", st.Notification)
	}

	if rr := e.do(t, http.MethodDelete, "/notification", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("close notification: got %d", rr.Code)
	}
	if e.notifier.Current().Visible {
		t.Error("notification should be hidden")
	}
}

func TestSearch_NetworkFailure(t *testing.T) {
	e := newTestEnv(t)
	e.api.searchErr = &urlErr{}

	rr := e.do(t, http.MethodPost, "/search", `{"query":"q"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestToggleResult(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/search", `{"query":"q"}`)

	rr := e.do(t, http.MethodPost, "/results/11/toggle", `{"collapsed":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	res := decode[ResultResponse](t, rr)
	if res.Collapsed || res.Content == nil || *res.Content == "" {
		t.Errorf("expected expanded result with content, got %+v", res)
	}

	rr = e.do(t, http.MethodPost, "/results/11/toggle", `{"collapsed":true}`)
	if res := decode[ResultResponse](t, rr); !res.Collapsed || res.Content == nil {
		t.Errorf("collapsing keeps cached content, got %+v", res)
	}
}

func TestToggleResult_ContentFailure(t *testing.T) {
	e := newTestEnv(t)
	e.api.contentErr = errors.New("boom")

	rr := e.do(t, http.MethodPost, "/results/99/toggle", `{"collapsed":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	res := decode[ResultResponse](t, rr)
	if res.Content == nil || *res.Content != domain.ContentLoadFailed {
		t.Errorf("expected error placeholder, got %+v", res)
	}
	if !e.notifier.Current().IsError {
		t.Error("expected error notification")
	}
}

func TestToggleResult_BadRequests(t *testing.T) {
	e := newTestEnv(t)
	if rr := e.do(t, http.MethodPost, "/results/abc/toggle", `{"collapsed":false}`); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid id: got %d", rr.Code)
	}
	if rr := e.do(t, http.MethodPost, "/results/1/toggle", `{`); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid body: got %d", rr.Code)
	}
}

func TestFacetsAndFilters(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodGet, "/facets/tags", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	tags := decode[[]FacetResponse](t, rr)
	if len(tags) != 2 || !tags[0].Selected || !tags[1].Selected {
		t.Fatalf("expected all tags selected after load, got %+v", tags)
	}

	rr = e.do(t, http.MethodPut, "/filters/tags", `{"ids":[1]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	f := decode[FiltersResponse](t, rr)
	if f.ActiveFilterCount != 1 || len(f.TagIDs) != 1 || f.TagIDs[0] != 1 {
		t.Errorf("unexpected filters %+v", f)
	}

	e.do(t, http.MethodPost, "/search", `{"query":"q"}`)
	if len(e.api.lastTags) != 1 || e.api.lastTags[0] != 1 {
		t.Errorf("search should carry the tag selection, got %v", e.api.lastTags)
	}

	rr = e.do(t, http.MethodPost, "/filters/reset", "")
	if f := decode[FiltersResponse](t, rr); f.ActiveFilterCount != 0 || len(f.TagIDs) != 2 {
		t.Errorf("reset should reselect everything, got %+v", f)
	}

	rr = e.do(t, http.MethodGet, "/facets/source-types", "")
	if types := decode[[]FacetResponse](t, rr); len(types) != 1 || types[0].Name != "fs" {
		t.Errorf("unexpected source types %+v", types)
	}
}

func TestSetTags_NullSelectsAll(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodPut, "/filters/tags", `{"ids":null}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"tag_ids":null`) {
		t.Errorf("expected null tag_ids, got %s", rr.Body.String())
	}
}

func TestHistogramAndDateRange(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPut, "/filters/dates/createdate", `{"start_percent":10,"end_percent":90}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("range before histogram load: got %d", rr.Code)
	}

	rr = e.do(t, http.MethodGet, "/histograms/createdate", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	h := decode[HistogramResponse](t, rr)
	if len(h.Buckets) != 2 || h.Buckets[0].Bucket != "2023-05" || h.Range != nil {
		t.Errorf("unexpected histogram %+v", h)
	}

	rr = e.do(t, http.MethodPut, "/filters/dates/createdate", `{"start_percent":10,"end_percent":90}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	f := decode[FiltersResponse](t, rr)
	if f.CreateDateRange == nil || f.CreateDateRange.StartPercent != 10 || f.ActiveFilterCount != 1 {
		t.Errorf("unexpected filters %+v", f)
	}

	rr = e.do(t, http.MethodPut, "/filters/dates/createdate", `{"start":"2023-06-01","end":"2023-08-01"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("dates: got %d: %s", rr.Code, rr.Body.String())
	}

	rr = e.do(t, http.MethodPut, "/filters/dates/createdate", `{"start_percent":10}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("partial body: got %d", rr.Code)
	}

	rr = e.do(t, http.MethodPut, "/filters/dates/createdate", "")
	if f := decode[FiltersResponse](t, rr); f.CreateDateRange != nil || f.ActiveFilterCount != 0 {
		t.Errorf("empty body should clear the range, got %+v", f)
	}

	if rr := e.do(t, http.MethodGet, "/histograms/weekly", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown kind: got %d", rr.Code)
	}
}

func TestSetDrawer(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodPut, "/filters/drawer", `{"show":true}`)
	if f := decode[FiltersResponse](t, rr); !f.ShowDrawer {
		t.Error("expected drawer open")
	}
}

func TestHealthCheck(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	h := decode[HealthResponse](t, rr)
	if h.Status != "ok" || h.Checks[healthuc.ComponentSearchAPI] != "ok" {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestNotFoundRoute(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeNotFound {
		t.Errorf("unexpected code %q", resp.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeInternalError {
		t.Errorf("unexpected code %q", resp.Code)
	}
}

func TestWideEventMiddleware_RequestID(t *testing.T) {
	h := chiMiddleware.RequestID(WideEventMiddleware(zap.NewNop())(okHandler()))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestWideEventMiddleware_LogsRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	api := &fakeAPI{}
	n := notify.New()
	filters := filteruc.New(api, n, nil, zap.NewNop())
	srv := NewServer(searchuc.New(api, api, filters, n, nil), filters, n, healthuc.New(api, nil), zap.New(core))

	rr := httptest.NewRecorder()
	srv.Handler(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/histograms/bogus", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d", rr.Code)
	}

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/histograms/{kind}" {
		t.Errorf("route: got %v", fields["route"])
	}
	if fields["request_id"] == "" {
		t.Error("expected request_id on request log")
	}
	if warn := logs.FilterMessage("domain error").All(); len(warn) != 1 || warn[0].ContextMap()["request_id"] == "" {
		t.Errorf("domain error should use the request logger: %+v", warn)
	}
}

type urlErr struct{}

func (*urlErr) Error() string   { return "dial tcp: connection refused" }
func (*urlErr) Timeout() bool   { return false }
func (*urlErr) Temporary() bool { return false }
