package search

import (
	"context"

	"github.com/kailas-cloud/semindex/internal/domain"
	"github.com/kailas-cloud/semindex/internal/domain/search/mode"
	"github.com/kailas-cloud/semindex/internal/domain/search/request"
)

// Searcher runs a search against the remote service.
type Searcher interface {
	Search(ctx context.Context, m mode.Mode, req request.Request) ([]domain.SearchResult, error)
}

// ContentFetcher loads the text section behind an embedding.
type ContentFetcher interface {
	Content(ctx context.Context, embeddingID int) (string, error)
}

// FilterSnapshotter captures the current filter state.
type FilterSnapshotter interface {
	Snapshot() request.Filters
}

// Notifier surfaces progress and failures to the user.
type Notifier interface {
	ShowLoading(title string)
	ShowError(title, message string, closable bool)
	Close()
}

// Location is the navigable location the query is mirrored into.
type Location interface {
	Get(key string) string
	Replace(key, value string)
}
