package semindex

import "github.com/kailas-cloud/semindex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrEmptyQuery             = domain.ErrEmptyQuery
	ErrSearchInProgress       = domain.ErrSearchInProgress
	ErrRemoteRejected         = domain.ErrRemoteRejected
	ErrInvalidDateRange       = domain.ErrInvalidDateRange
	ErrInvalidHistogramBucket = domain.ErrInvalidHistogramBucket
	ErrUnknownHistogram       = domain.ErrUnknownHistogram
	ErrInvalidLimit           = domain.ErrInvalidLimit
	ErrFacetNotLoaded         = domain.ErrFacetNotLoaded
)

// RemoteError is returned when the search service answers with a non-2xx status.
type RemoteError = domain.RemoteError
