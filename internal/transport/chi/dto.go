package chi

import (
	"time"

	"github.com/kailas-cloud/semindex/internal/domain"
	vo "github.com/kailas-cloud/semindex/internal/domain/search/filter"
	"github.com/kailas-cloud/semindex/internal/notify"
	searchuc "github.com/kailas-cloud/semindex/internal/usecase/search"
)

// ErrorCode is a machine-readable error class.
type ErrorCode string

// Error codes returned by the view server.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeEmptyQuery       ErrorCode = "empty_query"
	ErrorCodeSearchInProgress ErrorCode = "search_in_progress"
	ErrorCodeNotFound         ErrorCode = "not_found"
	ErrorCodeFacetNotLoaded   ErrorCode = "facet_not_loaded"
	ErrorCodeUpstreamError    ErrorCode = "upstream_error"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NotificationResponse mirrors the active notification.
type NotificationResponse struct {
	Visible    bool   `json:"visible"`
	IsError    bool   `json:"is_error"`
	IsClosable bool   `json:"is_closable"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Icon       string `json:"icon"`
	Seq        uint64 `json:"seq"`
}

// SourceTypeResponse is a source type reference.
type SourceTypeResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TagResponse is a tag reference.
type TagResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SourceResponse is the indexed object behind a result.
type SourceResponse struct {
	ID          int                `json:"id"`
	DisplayName string             `json:"display_name"`
	URI         string             `json:"uri"`
	SourceType  SourceTypeResponse `json:"source_type"`
	Tags        []TagResponse      `json:"tags"`
	ObjCreated  time.Time          `json:"obj_created"`
	ObjModified time.Time          `json:"obj_modified"`
}

// ResultResponse is a result with its per-result view state.
type ResultResponse struct {
	ID         int            `json:"id"`
	Source     SourceResponse `json:"source"`
	ChunkIdx   int            `json:"chunk_idx"`
	Similarity float64        `json:"similarity"`
	Collapsed  bool           `json:"collapsed"`
	Loading    bool           `json:"loading"`
	Content    *string        `json:"content"`
}

// StateResponse is the full coordinator view.
type StateResponse struct {
	Query             string               `json:"query"`
	Status            string               `json:"status"`
	Outcome           string               `json:"outcome"`
	Searching         bool                 `json:"searching"`
	Results           []ResultResponse     `json:"results"`
	Notification      NotificationResponse `json:"notification"`
	ActiveFilterCount int                  `json:"active_filter_count"`
}

// SearchRequest is the POST /search body. A missing query reuses the current one.
type SearchRequest struct {
	Query *string `json:"query"`
}

// ToggleRequest is the POST /results/{id}/toggle body.
type ToggleRequest struct {
	Collapsed bool `json:"collapsed"`
}

// FacetResponse is one facet value with its count and selection.
type FacetResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}

// BucketResponse is one histogram bucket.
type BucketResponse struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// DateRangeResponse is a selected date range.
type DateRangeResponse struct {
	Start        string  `json:"start"`
	StartPercent float64 `json:"start_percent"`
	End          string  `json:"end"`
	EndPercent   float64 `json:"end_percent"`
}

// HistogramResponse is a histogram with its current range selection.
type HistogramResponse struct {
	Kind    string             `json:"kind"`
	Buckets []BucketResponse   `json:"buckets"`
	Range   *DateRangeResponse `json:"range"`
}

// FiltersResponse is the complete filter state.
type FiltersResponse struct {
	CreateDateRange   *DateRangeResponse `json:"create_date_range"`
	ModifyDateRange   *DateRangeResponse `json:"modify_date_range"`
	TagIDs            []int              `json:"tag_ids"`
	SourceTypeIDs     []int              `json:"source_type_ids"`
	ActiveFilterCount int                `json:"active_filter_count"`
	ShowDrawer        bool               `json:"show_drawer"`
}

// SelectionRequest replaces a facet selection. Null ids select everything.
type SelectionRequest struct {
	IDs []int `json:"ids"`
}

// DateRangeRequest sets a date range by slider position or by dates (YYYY-MM-DD).
// An empty body clears the range.
type DateRangeRequest struct {
	StartPercent *float64 `json:"start_percent"`
	EndPercent   *float64 `json:"end_percent"`
	Start        *string  `json:"start"`
	End          *string  `json:"end"`
}

// DrawerRequest opens or closes the filter drawer.
type DrawerRequest struct {
	Show bool `json:"show"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func notificationToResponse(n notify.Notification) NotificationResponse {
	return NotificationResponse{
		Visible:    n.Visible,
		IsError:    n.IsError,
		IsClosable: n.IsClosable,
		Title:      n.Title,
		Message:    n.Message,
		Icon:       n.Icon,
		Seq:        n.Seq,
	}
}

func resultToResponse(rs *searchuc.ResultState) ResultResponse {
	src := &rs.Result.Source
	tags := make([]TagResponse, len(src.Tags))
	for i, t := range src.Tags {
		tags[i] = TagResponse{ID: t.ID, Name: t.Name}
	}
	out := ResultResponse{
		ID: rs.Result.ID(),
		Source: SourceResponse{
			ID:          src.ID,
			DisplayName: src.DisplayName(),
			URI:         src.URI,
			SourceType:  SourceTypeResponse{ID: src.SourceType.ID, Name: src.SourceType.Name},
			Tags:        tags,
			ObjCreated:  src.ObjCreated,
			ObjModified: src.ObjModified,
		},
		ChunkIdx:   rs.Result.Embedding.ChunkIdx,
		Similarity: rs.Result.Similarity,
		Collapsed:  rs.Collapsed,
		Loading:    rs.Loading,
	}
	if rs.HasContent {
		text := rs.Content
		out.Content = &text
	}
	return out
}

func rangeToResponse(r *vo.DateRange) *DateRangeResponse {
	if r == nil {
		return nil
	}
	return &DateRangeResponse{
		Start:        r.StartDate.Format(time.DateOnly),
		StartPercent: r.StartPercent,
		End:          r.EndDate.Format(time.DateOnly),
		EndPercent:   r.EndPercent,
	}
}

func bucketsToResponse(buckets []domain.HistogramBucket) []BucketResponse {
	out := make([]BucketResponse, len(buckets))
	for i, b := range buckets {
		out[i] = BucketResponse{Bucket: b.Bucket.Format("2006-01"), Count: b.Count}
	}
	return out
}
