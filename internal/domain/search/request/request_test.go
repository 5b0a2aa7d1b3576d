package request

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/semindex/internal/domain"
)

func TestNew_BlankQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		if _, err := New(q, 10, DateFilter{}, nil); !errors.Is(err, domain.ErrEmptyQuery) {
			t.Errorf("New(%q) err = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestNew_LimitBounds(t *testing.T) {
	for _, limit := range []int{0, -1, 101} {
		if _, err := New("q", limit, DateFilter{}, nil); !errors.Is(err, domain.ErrInvalidLimit) {
			t.Errorf("limit %d: err = %v, want ErrInvalidLimit", limit, err)
		}
	}
	if _, err := New("q", 100, DateFilter{}, nil); err != nil {
		t.Errorf("limit 100 must be accepted: %v", err)
	}
}

func TestMarshalJSON_NullFacets(t *testing.T) {
	r, err := New("neural networks", 10, DateFilter{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["query"] != "neural networks" || got["limit"] != float64(10) {
		t.Errorf("unexpected payload: %s", data)
	}
	for _, k := range []string{FacetTags, FacetSourceTypes} {
		v, ok := got[k]
		if !ok || v != nil {
			t.Errorf("%s: want explicit null, got %v (present=%v)", k, v, ok)
		}
	}
	df, ok := got["date_filter"].(map[string]any)
	if !ok {
		t.Fatalf("date_filter missing: %s", data)
	}
	for _, k := range []string{"createdate_start", "createdate_end", "modifieddate_start", "modifieddate_end"} {
		if v, ok := df[k]; !ok || v != nil {
			t.Errorf("date_filter.%s: want null, got %v", k, v)
		}
	}
}

func TestMarshalJSON_Selections(t *testing.T) {
	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	r, err := New("q", 5, DateFilter{CreateDateStart: &start}, Facets{
		FacetTags:        []int{},
		FacetSourceTypes: []int{1, 2},
		"author_ids":     []int{9},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got struct {
		DateFilter struct {
			CreateDateStart *time.Time `json:"createdate_start"`
		} `json:"date_filter"`
		TagIDs        []int `json:"tag_ids"`
		SourceTypeIDs []int `json:"source_type_ids"`
		AuthorIDs     []int `json:"author_ids"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TagIDs == nil || len(got.TagIDs) != 0 {
		t.Errorf("empty selection must be [] not null: %s", data)
	}
	if len(got.SourceTypeIDs) != 2 || len(got.AuthorIDs) != 1 {
		t.Errorf("unexpected facets: %s", data)
	}
	if got.DateFilter.CreateDateStart == nil || !got.DateFilter.CreateDateStart.Equal(start) {
		t.Errorf("createdate_start = %v", got.DateFilter.CreateDateStart)
	}
}
