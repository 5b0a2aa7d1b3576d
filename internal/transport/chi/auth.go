package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicRoutes are served without a token so probes and scrapers keep working.
var publicRoutes = []string{"/health", "/metrics"}

// BearerAuthMiddleware guards the view API with static bearer tokens.
// With no non-empty keys configured the middleware is a no-op.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var keys [][]byte
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, reason := bearerToken(r.Header.Get("Authorization"))
			if reason == "" && !tokenAccepted(keys, token) {
				reason = "invalid api key"
			}
			if reason != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="semindex"`)
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isPublicRoute(path string) bool {
	for _, p := range publicRoutes {
		if path == p {
			return true
		}
	}
	return false
}

// bearerToken extracts the credential from an Authorization header.
// The scheme name is matched case-insensitively. A non-empty reason means rejection.
func bearerToken(header string) (token, reason string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, cred, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "authorization header must use Bearer scheme"
	}
	cred = strings.TrimSpace(cred)
	if cred == "" {
		return "", "empty bearer token"
	}
	return cred, ""
}

// tokenAccepted compares against every key in constant time.
func tokenAccepted(keys [][]byte, token string) bool {
	got := []byte(token)
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(k, got)
	}
	return match == 1
}
