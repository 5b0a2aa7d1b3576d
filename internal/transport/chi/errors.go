package chi

import (
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/kailas-cloud/semindex/internal/domain"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// transportFailureHandler maps an unreachable search service to 502.
func transportFailureHandler(w http.ResponseWriter, err error, _ string) bool {
	var ue *url.Error
	var ne net.Error
	if !errors.As(err, &ue) && !errors.As(err, &ne) {
		return false
	}
	writeError(w, http.StatusBadGateway, ErrorCodeUpstreamError, "search service unreachable")
	return true
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Remote rejections carry the search service's own message.
func safeDomainMessage(err error) string {
	var re *domain.RemoteError
	if errors.As(err, &re) {
		return re.Error()
	}
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrSearchInProgress,
		domain.ErrInvalidDateRange,
		domain.ErrInvalidLimit,
		domain.ErrUnknownHistogram,
		domain.ErrFacetNotLoaded,
		domain.ErrNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}
