package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/semindex/internal/domain"
	"github.com/kailas-cloud/semindex/internal/domain/search/mode"
	"github.com/kailas-cloud/semindex/internal/domain/search/request"
)

// Operation names used in errors, logs and metrics.
const (
	OpSearchChunks = "search_chunks"
	OpSearchDocs   = "search_docs"
	OpContent      = "content"
	OpHistogram    = "histogram"
	OpTags         = "tags"
	OpSourceTypes  = "source_types"
	OpPing         = "ping"
)

// Search dispatches to the chunk or document endpoint.
func (c *Client) Search(ctx context.Context, m mode.Mode, req request.Request) ([]domain.SearchResult, error) {
	switch m {
	case mode.Chunks, "":
		return c.SearchChunks(ctx, req)
	case mode.Docs:
		return c.SearchDocs(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %q", m)
	}
}

// SearchChunks handles POST /search/chunks.
func (c *Client) SearchChunks(ctx context.Context, req request.Request) ([]domain.SearchResult, error) {
	return c.search(ctx, OpSearchChunks, "/search/chunks", req)
}

// SearchDocs handles POST /search/docs.
func (c *Client) SearchDocs(ctx context.Context, req request.Request) ([]domain.SearchResult, error) {
	return c.search(ctx, OpSearchDocs, "/search/docs", req)
}

func (c *Client) search(ctx context.Context, op, path string, req request.Request) ([]domain.SearchResult, error) {
	var dtos []searchResultDTO
	if err := c.do(ctx, op, http.MethodPost, path, req, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.SearchResult, len(dtos))
	for i := range dtos {
		out[i] = searchResultFromDTO(&dtos[i])
	}
	return out, nil
}

// Content handles GET /embedding/{id}/content and returns the section text.
func (c *Client) Content(ctx context.Context, embeddingID int) (string, error) {
	id, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, embeddingID)
	if err != nil {
		return "", fmt.Errorf("%s: encode id: %w", OpContent, err)
	}
	var dto contentDTO
	if err := c.do(ctx, OpContent, http.MethodGet, "/embedding/"+id+"/content", nil, &dto); err != nil {
		return "", err
	}
	return dto.Section, nil
}

// Histogram handles GET /source/histogram/{kind}.
func (c *Client) Histogram(ctx context.Context, kind domain.HistogramKind) ([]domain.HistogramBucket, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownHistogram, kind)
	}
	k, err := runtime.StyleParamWithLocation("simple", false, "kind", runtime.ParamLocationPath, string(kind))
	if err != nil {
		return nil, fmt.Errorf("%s: encode kind: %w", OpHistogram, err)
	}
	var dtos []histogramDTO
	if err := c.do(ctx, OpHistogram, http.MethodGet, "/source/histogram/"+k, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.HistogramBucket, len(dtos))
	for i, d := range dtos {
		bucket, err := domain.ParseBucket(d.Bucket)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", OpHistogram, err)
		}
		out[i] = domain.HistogramBucket{Bucket: bucket, Count: d.Count}
	}
	return out, nil
}

// CreateDateHistogram returns the object-creation histogram.
func (c *Client) CreateDateHistogram(ctx context.Context) ([]domain.HistogramBucket, error) {
	return c.Histogram(ctx, domain.HistogramCreateDate)
}

// ModifyDateHistogram returns the object-modification histogram.
func (c *Client) ModifyDateHistogram(ctx context.Context) ([]domain.HistogramBucket, error) {
	return c.Histogram(ctx, domain.HistogramModifyDate)
}

// Tags handles GET /tags.
func (c *Client) Tags(ctx context.Context) ([]domain.TagCount, error) {
	var dtos []tagCountDTO
	if err := c.do(ctx, OpTags, http.MethodGet, "/tags", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.TagCount, len(dtos))
	for i, d := range dtos {
		out[i] = domain.TagCount{Tag: tagFromDTO(d.Tag), Count: d.Count}
	}
	return out, nil
}

// SourceTypes handles GET /source-types.
func (c *Client) SourceTypes(ctx context.Context) ([]domain.SourceTypeCount, error) {
	var dtos []sourceTypeCountDTO
	if err := c.do(ctx, OpSourceTypes, http.MethodGet, "/source-types", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.SourceTypeCount, len(dtos))
	for i, d := range dtos {
		out[i] = domain.SourceTypeCount{SourceType: sourceTypeFromDTO(d.SourceType), Count: d.Count}
	}
	return out, nil
}

// Ping checks that the search service answers HTTP. Any status below 500
// counts as reachable; the root path need not exist.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, OpPing, http.MethodGet, "/", nil, nil)
	var re *domain.RemoteError
	if errors.As(err, &re) && re.StatusCode < http.StatusInternalServerError {
		return nil
	}
	return err
}
