// Package location holds the navigable location a search is mirrored into,
// so a shared link reproduces the search.
package location

import (
	"fmt"
	"net/url"
	"sync"
)

// URL is a concurrency-safe navigable location.
type URL struct {
	mu    sync.RWMutex
	u     *url.URL
	onSet func(string)
}

// New parses raw into a location. An empty raw string is a bare "/" location.
func New(raw string) (*URL, error) {
	if raw == "" {
		raw = "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse location: %w", err)
	}
	return &URL{u: u}, nil
}

// OnReplace registers fn to receive the new location after every Replace.
func (l *URL) OnReplace(fn func(string)) {
	l.mu.Lock()
	l.onSet = fn
	l.mu.Unlock()
}

// Get returns the first value of the query parameter key.
func (l *URL) Get(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.u.Query().Get(key)
}

// Replace sets the query parameter key in place, without adding history.
// An empty value removes the parameter.
func (l *URL) Replace(key, value string) {
	l.mu.Lock()
	q := l.u.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	l.u.RawQuery = q.Encode()
	s, fn := l.u.String(), l.onSet
	l.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// String returns the encoded location.
func (l *URL) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.u.String()
}
