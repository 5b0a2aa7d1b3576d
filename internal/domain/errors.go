package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing remote resource.
	ErrNotFound = errors.New("not found")
	// ErrEmptyQuery signals a blank search query. Never reaches the network.
	ErrEmptyQuery = errors.New("empty query")
	// ErrSearchInProgress signals a submission dropped while another search is in flight.
	ErrSearchInProgress = errors.New("search already in progress")
	// ErrRemoteRejected signals a non-2xx response from the search service.
	ErrRemoteRejected = errors.New("remote rejected request")
	// ErrInvalidDateRange signals a date range that breaks ordering or percent bounds.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrInvalidHistogramBucket signals a bucket label that is not YYYY-MM.
	ErrInvalidHistogramBucket = errors.New("invalid histogram bucket")
	// ErrUnknownHistogram signals an unsupported histogram kind.
	ErrUnknownHistogram = errors.New("unknown histogram kind")
	// ErrInvalidLimit signals a result limit outside the accepted range.
	ErrInvalidLimit = errors.New("invalid limit")
	// ErrFacetNotLoaded signals an operation that needs facet data not fetched yet.
	ErrFacetNotLoaded = errors.New("facet data not loaded")
)

// RemoteError is the uniform error shape for a rejected remote call.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed with status: %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed with status: %d", e.Op, e.StatusCode)
}

func (e *RemoteError) Unwrap() error {
	if e.StatusCode == 404 {
		return errors.Join(ErrRemoteRejected, ErrNotFound)
	}
	return ErrRemoteRejected
}

// NewRemoteError creates a remote rejection error.
func NewRemoteError(op string, statusCode int, message string) error {
	return &RemoteError{Op: op, StatusCode: statusCode, Message: message}
}
