package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		method string
		path   string
		header string
		want   int
	}{
		{name: "no keys", keys: nil, path: "/state", want: http.StatusOK},
		{name: "only blank keys", keys: []string{"", ""}, path: "/search", want: http.StatusOK},
		{name: "missing header", keys: []string{"secret"}, path: "/state", want: http.StatusUnauthorized},
		{name: "basic scheme", keys: []string{"secret"}, path: "/state",
			header: "Basic dXNlcjpwYXNz", want: http.StatusUnauthorized},
		{name: "scheme without token", keys: []string{"secret"}, path: "/state",
			header: "Bearer ", want: http.StatusUnauthorized},
		{name: "wrong token", keys: []string{"secret"}, method: http.MethodPost, path: "/search",
			header: "Bearer wrong-key", want: http.StatusUnauthorized},
		{name: "token prefix of key", keys: []string{"secret"}, path: "/state",
			header: "Bearer sec", want: http.StatusUnauthorized},
		{name: "valid token", keys: []string{"secret"}, method: http.MethodPost, path: "/search",
			header: "Bearer secret", want: http.StatusOK},
		{name: "lowercase scheme", keys: []string{"secret"}, path: "/state",
			header: "bearer secret", want: http.StatusOK},
		{name: "second of several keys", keys: []string{"key1", "key2"}, path: "/facets/tags",
			header: "Bearer key2", want: http.StatusOK},
		{name: "health is public", keys: []string{"secret"}, path: "/health", want: http.StatusOK},
		{name: "metrics is public", keys: []string{"secret"}, path: "/metrics", want: http.StatusOK},
		{name: "nested health path is guarded", keys: []string{"secret"}, path: "/health/deep",
			want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req := httptest.NewRequest(method, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			BearerAuthMiddleware(tt.keys)(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			if got := rr.Header().Get("WWW-Authenticate"); got == "" {
				t.Error("expected WWW-Authenticate challenge")
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != ErrorCodeUnauthorized {
				t.Errorf("error code: got %s, want %s", errResp.Code, ErrorCodeUnauthorized)
			}
		})
	}
}

func TestBearerToken_Reasons(t *testing.T) {
	if _, reason := bearerToken(""); reason != "missing authorization header" {
		t.Errorf("empty header reason: %q", reason)
	}
	if _, reason := bearerToken("Token abc"); reason != "authorization header must use Bearer scheme" {
		t.Errorf("wrong scheme reason: %q", reason)
	}
	token, reason := bearerToken("Bearer  padded ")
	if reason != "" || token != "padded" {
		t.Errorf("padded token: got %q / %q", token, reason)
	}
}
