package identity

import (
	"context"
	"sync"
	"time"

	"NewsletterEngine/internal/ports"
)

// SessionKind classifies a session change.
type SessionKind string

const (
	SessionResolved SessionKind = "resolved"
	SessionRejected SessionKind = "rejected"
)

// SessionEvent is broadcast every time a token is resolved or rejected.
type SessionEvent struct {
	Kind   SessionKind
	UserID string
	At     time.Time
	Err    error
}

// Hub fans session events out to subscribers. Slow subscribers miss events
// instead of blocking token resolution.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan SessionEvent
	nextID int
	closed bool
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan SessionEvent)}
}

// Subscribe returns a buffered channel of events and a cancel func that closes it.
func (h *Hub) Subscribe(buffer int) (<-chan SessionEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan SessionEvent, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (h *Hub) Publish(ev SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Watching decorates an Identity so every lookup is published to a Hub.
type Watching struct {
	inner ports.Identity
	hub   *Hub
	now   func() time.Time
}

var _ ports.Identity = (*Watching)(nil)

// NewWatching wraps inner and publishes each lookup result to hub.
func NewWatching(inner ports.Identity, hub *Hub) *Watching {
	return &Watching{inner: inner, hub: hub, now: time.Now}
}

// CurrentUser delegates to the wrapped Identity and publishes the outcome.
func (w *Watching) CurrentUser(ctx context.Context, token string) (string, error) {
	userID, err := w.inner.CurrentUser(ctx, token)
	ev := SessionEvent{Kind: SessionResolved, UserID: userID, At: w.now(), Err: err}
	if err != nil {
		ev.Kind = SessionRejected
	}
	if w.hub != nil {
		w.hub.Publish(ev)
	}
	return userID, err
}
