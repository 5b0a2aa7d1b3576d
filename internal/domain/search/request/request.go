package request

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/semindex/internal/domain"
)

// Search parameter limits accepted by the search service.
const (
	DefaultLimit = 20
	MinLimit     = 1
	MaxLimit     = 100
)

// Known facet terms. Every active facet contributes an id list or null.
const (
	FacetTags        = "tag_ids"
	FacetSourceTypes = "source_type_ids"
)

// DateFilter bounds creation and modification timestamps. Nil bounds are open.
type DateFilter struct {
	CreateDateStart   *time.Time
	CreateDateEnd     *time.Time
	ModifiedDateStart *time.Time
	ModifiedDateEnd   *time.Time
}

// Filters is the filter portion of a request.
type Filters struct {
	DateFilter DateFilter
	Facets     Facets
}

// Facets maps a facet term to the selected ids. A nil slice means no filter.
type Facets map[string][]int

// Request is a validated search request.
type Request struct {
	query      string
	limit      int
	dateFilter DateFilter
	facets     Facets
}

// New validates the query and limit. Known facets absent from facets are sent as null.
func New(query string, limit int, df DateFilter, facets Facets) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, domain.ErrEmptyQuery
	}
	if limit < MinLimit || limit > MaxLimit {
		return Request{}, fmt.Errorf("%w: %d (must be %d..%d)", domain.ErrInvalidLimit, limit, MinLimit, MaxLimit)
	}
	out := Facets{FacetTags: nil, FacetSourceTypes: nil}
	for k, v := range facets {
		out[k] = v
	}
	return Request{query: query, limit: limit, dateFilter: df, facets: out}, nil
}

// Query returns the query text.
func (r Request) Query() string { return r.query }

// Limit returns the maximum number of results.
func (r Request) Limit() int { return r.limit }

// DateFilter returns the date bounds.
func (r Request) DateFilter() DateFilter { return r.dateFilter }

// Facet returns the id list for a facet term and whether the term is present.
func (r Request) Facet(name string) ([]int, bool) {
	ids, ok := r.facets[name]
	return ids, ok
}

type dateFilterJSON struct {
	CreateDateStart   *time.Time `json:"createdate_start"`
	CreateDateEnd     *time.Time `json:"createdate_end"`
	ModifiedDateStart *time.Time `json:"modifieddate_start"`
	ModifiedDateEnd   *time.Time `json:"modifieddate_end"`
}

// MarshalJSON renders the wire payload of POST /search/{chunks,docs}.
func (r Request) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, 3+len(r.facets))
	body["query"] = r.query
	body["limit"] = r.limit
	body["date_filter"] = dateFilterJSON(r.dateFilter)
	for name, ids := range r.facets {
		if ids == nil {
			body[name] = nil
			continue
		}
		body[name] = ids
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}
	return data, nil
}
