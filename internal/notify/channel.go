// Package notify holds the single user-facing status record shared by the
// search coordinator and the filter state.
package notify

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Icons rendered next to a notification.
const (
	IconLoading = "pi pi-spin pi-spinner"
	IconError   = "pi pi-exclamation-triangle"
)

// Notification is the active status record. Seq increases with every change.
type Notification struct {
	Visible    bool
	IsError    bool
	IsClosable bool
	Title      string
	Message    string
	Icon       string
	Seq        uint64
}

// Channel holds one notification; every call replaces it entirely.
// There is no backlog, so a late failure overwrites a newer success.
type Channel struct {
	mu      sync.Mutex
	current Notification
	nextID  int
	subs    map[int]func(Notification)
}

// New creates an empty channel. One instance is shared per session.
func New() *Channel {
	return &Channel{subs: make(map[int]func(Notification))}
}

// ShowLoading shows a non-closable progress notification.
func (c *Channel) ShowLoading(title string) {
	c.set(Notification{Visible: true, Title: title, Icon: IconLoading})
}

// ShowError shows an error notification.
func (c *Channel) ShowError(title, message string, closable bool) {
	c.set(Notification{
		Visible:    true,
		IsError:    true,
		IsClosable: closable,
		Title:      title,
		Message:    message,
		Icon:       IconError,
	})
}

// ShowMessage shows an informational notification.
func (c *Channel) ShowMessage(title, message, icon string, closable bool) {
	c.set(Notification{
		Visible:    true,
		IsClosable: closable,
		Title:      title,
		Message:    message,
		Icon:       icon,
	})
}

// Close hides the current notification.
func (c *Channel) Close() {
	c.update(func(prev Notification) Notification {
		prev.Visible = false
		return prev
	})
}

// Current returns a copy of the active record.
func (c *Channel) Current() Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe registers fn to receive every new record. fn runs outside the
// channel lock; compare Seq to drop records that arrive out of order.
func (c *Channel) Subscribe(fn func(Notification)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Channel) set(n Notification) {
	c.update(func(Notification) Notification { return n })
}

func (c *Channel) update(next func(prev Notification) Notification) {
	c.mu.Lock()
	n := next(c.current)
	n.Seq = c.current.Seq + 1
	c.current = n
	subs := make([]func(Notification), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// ErrorMessage renders any failure value as a human-readable message.
func ErrorMessage(v any) string {
	switch e := v.(type) {
	case nil:
		return "An unknown error occurred"
	case error:
		if msg := e.Error(); msg != "" {
			return msg
		}
		return "An unknown error occurred"
	case string:
		return e
	case fmt.Stringer:
		return e.String()
	default:
		data, err := json.Marshal(e)
		if err != nil {
			return "An unknown error occurred"
		}
		return string(data)
	}
}
