package filter

import (
	"context"

	"github.com/kailas-cloud/semindex/internal/domain"
)

// FacetFetcher loads facet datasets from the search service.
type FacetFetcher interface {
	Histogram(ctx context.Context, kind domain.HistogramKind) ([]domain.HistogramBucket, error)
	Tags(ctx context.Context) ([]domain.TagCount, error)
	SourceTypes(ctx context.Context) ([]domain.SourceTypeCount, error)
}

// Notifier surfaces fetch failures to the user.
type Notifier interface {
	ShowError(title, message string, closable bool)
}
