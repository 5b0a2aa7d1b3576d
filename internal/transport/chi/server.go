package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semindex/internal/domain"
	vo "github.com/kailas-cloud/semindex/internal/domain/search/filter"
	logpkg "github.com/kailas-cloud/semindex/internal/logger"
	"github.com/kailas-cloud/semindex/internal/metrics"
	"github.com/kailas-cloud/semindex/internal/notify"
	filteruc "github.com/kailas-cloud/semindex/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/semindex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semindex/internal/usecase/search"
	"github.com/kailas-cloud/semindex/internal/version"
)

// Server exposes the session state and user intents to a UI over HTTP.
type Server struct {
	search        *searchuc.Service
	filters       *filteruc.Service
	notifier      *notify.Channel
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates a view server over one session.
func NewServer(
	search *searchuc.Service,
	filters *filteruc.Service,
	notifier *notify.Channel,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:   search,
		filters:  filters,
		notifier: notifier,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, ErrorCodeEmptyQuery),
		sentinelHandler(domain.ErrSearchInProgress, http.StatusConflict, ErrorCodeSearchInProgress),
		sentinelHandler(domain.ErrInvalidDateRange, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidLimit, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrUnknownHistogram, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrFacetNotLoaded, http.StatusConflict, ErrorCodeFacetNotLoaded),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrRemoteRejected, http.StatusBadGateway, ErrorCodeUpstreamError),
		transportFailureHandler,
	}
	return s
}

// Handler builds the router with recovery, request logging, auth and metrics.
func (s *Server) Handler(apiKeys []string) http.Handler {
	r := gochi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Get("/state", s.GetState)
	r.Post("/search", s.Search)
	r.Post("/results/{id}/toggle", s.ToggleResult)
	r.Delete("/notification", s.CloseNotification)

	r.Get("/facets/tags", s.TagFacets)
	r.Get("/facets/source-types", s.SourceTypeFacets)
	r.Get("/histograms/{kind}", s.Histogram)

	r.Route("/filters", func(r gochi.Router) {
		r.Get("/", s.GetFilters)
		r.Put("/tags", s.SetTags)
		r.Put("/source-types", s.SetSourceTypes)
		r.Put("/dates/{kind}", s.SetDateRange)
		r.Put("/drawer", s.SetDrawer)
		r.Post("/reset", s.ResetFilters)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
	return r
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

// Search handles POST /search. The search runs to completion before responding.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	var err error
	if req.Query != nil {
		s.search.SetQuery(*req.Query)
		err = s.search.Submit(r.Context(), *req.Query)
	} else {
		err = s.search.Search(r.Context())
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.state())
}

// ToggleResult handles POST /results/{id}/toggle.
// A failed content load still answers 200: the placeholder is part of the state.
func (s *Server) ToggleResult(w http.ResponseWriter, r *http.Request) {
	var id int
	if err := runtime.BindStyledParameterWithOptions("simple", "id", gochi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true}); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid result id")
		return
	}

	var req ToggleRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	if err := s.search.Toggle(r.Context(), id, req.Collapsed); err != nil {
		logpkg.FromContext(r.Context(), s.logger).Warn("content load failed", zap.Int("id", id), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, s.resultView(id))
}

// CloseNotification handles DELETE /notification.
func (s *Server) CloseNotification(w http.ResponseWriter, _ *http.Request) {
	s.notifier.Close()
	w.WriteHeader(http.StatusNoContent)
}

// TagFacets handles GET /facets/tags.
func (s *Server) TagFacets(w http.ResponseWriter, r *http.Request) {
	tags, err := s.filters.TagFacets(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	sel := s.filters.TagSelection()
	out := make([]FacetResponse, len(tags))
	for i, t := range tags {
		out[i] = FacetResponse{ID: t.Tag.ID, Name: t.Tag.Name, Count: t.Count, Selected: sel.Has(t.Tag.ID)}
	}
	writeJSON(w, http.StatusOK, out)
}

// SourceTypeFacets handles GET /facets/source-types.
func (s *Server) SourceTypeFacets(w http.ResponseWriter, r *http.Request) {
	types, err := s.filters.SourceTypeFacets(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	sel := s.filters.SourceTypeSelection()
	out := make([]FacetResponse, len(types))
	for i, t := range types {
		out[i] = FacetResponse{
			ID: t.SourceType.ID, Name: t.SourceType.Name, Count: t.Count, Selected: sel.Has(t.SourceType.ID),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Histogram handles GET /histograms/{kind}.
func (s *Server) Histogram(w http.ResponseWriter, r *http.Request) {
	kind := domain.HistogramKind(gochi.URLParam(r, "kind"))
	buckets, err := s.filters.Histogram(r.Context(), kind)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistogramResponse{
		Kind:    string(kind),
		Buckets: bucketsToResponse(buckets),
		Range:   rangeToResponse(s.rangeOf(kind)),
	})
}

// GetFilters handles GET /filters.
func (s *Server) GetFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.filterState())
}

// SetTags handles PUT /filters/tags.
func (s *Server) SetTags(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	s.filters.SetTags(selectionFromIDs(req.IDs))
	writeJSON(w, http.StatusOK, s.filterState())
}

// SetSourceTypes handles PUT /filters/source-types.
func (s *Server) SetSourceTypes(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	s.filters.SetSourceTypes(selectionFromIDs(req.IDs))
	writeJSON(w, http.StatusOK, s.filterState())
}

// SetDateRange handles PUT /filters/dates/{kind}.
func (s *Server) SetDateRange(w http.ResponseWriter, r *http.Request) {
	kind := domain.HistogramKind(gochi.URLParam(r, "kind"))
	var req DateRangeRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	var err error
	switch {
	case req.StartPercent != nil && req.EndPercent != nil:
		_, err = s.filters.SetDateRangePercent(kind, *req.StartPercent, *req.EndPercent)
	case req.Start != nil && req.End != nil:
		start, perr := time.Parse(time.DateOnly, *req.Start)
		if perr != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "start must be YYYY-MM-DD")
			return
		}
		end, perr := time.Parse(time.DateOnly, *req.End)
		if perr != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "end must be YYYY-MM-DD")
			return
		}
		_, err = s.filters.SetDateRangeDates(kind, start, end)
	case req.StartPercent == nil && req.EndPercent == nil && req.Start == nil && req.End == nil:
		err = s.filters.SetDateRange(kind, nil)
	default:
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			"provide both start_percent and end_percent, or both start and end")
		return
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.filterState())
}

// SetDrawer handles PUT /filters/drawer.
func (s *Server) SetDrawer(w http.ResponseWriter, r *http.Request) {
	var req DrawerRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	s.filters.SetShowDrawer(req.Show)
	writeJSON(w, http.StatusOK, s.filterState())
}

// ResetFilters handles POST /filters/reset.
func (s *Server) ResetFilters(w http.ResponseWriter, _ *http.Request) {
	s.filters.ResetAll()
	writeJSON(w, http.StatusOK, s.filterState())
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) state() StateResponse {
	st := s.search.Snapshot()
	results := make([]ResultResponse, len(st.Results))
	for i := range st.Results {
		results[i] = resultToResponse(&st.Results[i])
	}
	return StateResponse{
		Query:             st.Query,
		Status:            st.Status.String(),
		Outcome:           st.Outcome.String(),
		Searching:         st.Status == searchuc.StatusSearching,
		Results:           results,
		Notification:      notificationToResponse(s.notifier.Current()),
		ActiveFilterCount: s.filters.ActiveFilterCount(),
	}
}

// resultView returns the view of one result, also for ids outside the current result list.
func (s *Server) resultView(id int) ResultResponse {
	st := s.search.Snapshot()
	for i := range st.Results {
		if st.Results[i].Result.ID() == id {
			return resultToResponse(&st.Results[i])
		}
	}
	out := ResultResponse{ID: id, Collapsed: s.search.Collapsed(id), Loading: s.search.Loading(id)}
	if text, ok := s.search.Content(id); ok {
		out.Content = &text
	}
	return out
}

func (s *Server) filterState() FiltersResponse {
	return FiltersResponse{
		CreateDateRange:   rangeToResponse(s.filters.CreateDateRange()),
		ModifyDateRange:   rangeToResponse(s.filters.ModifyDateRange()),
		TagIDs:            s.filters.TagSelection().IDs(),
		SourceTypeIDs:     s.filters.SourceTypeSelection().IDs(),
		ActiveFilterCount: s.filters.ActiveFilterCount(),
		ShowDrawer:        s.filters.ShowDrawer(),
	}
}

func (s *Server) rangeOf(kind domain.HistogramKind) *vo.DateRange {
	if kind == domain.HistogramModifyDate {
		return s.filters.ModifyDateRange()
	}
	return s.filters.CreateDateRange()
}

func selectionFromIDs(ids []int) *vo.Selection {
	if ids == nil {
		return nil
	}
	return vo.NewSelection(ids...)
}

// decodeBody decodes a JSON body. With optional set, an empty body is accepted.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
