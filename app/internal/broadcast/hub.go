// Package broadcast fans quota snapshots out to passive observers such as
// dashboard streams. Delivery is best effort: a subscriber that cannot keep
// up is dropped, never retried.
package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/commentsweep/quota-server/app/domain/entities"
)

// subscriberBuffer is the number of snapshots a subscriber may lag behind
// before it is considered unreachable and dropped.
const subscriberBuffer = 16

// Hub maintains the set of currently-subscribed snapshot listeners.
type Hub struct {
	log zerolog.Logger

	mu     sync.Mutex
	subs   map[string]chan entities.Snapshot
	closed bool
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:  log.With().Str("component", "broadcast").Logger(),
		subs: make(map[string]chan entities.Snapshot),
	}
}

// Subscribe registers a new listener and returns its id and receive channel.
// The channel is closed when the subscriber is dropped or the hub closes.
func (h *Hub) Subscribe() (string, <-chan entities.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan entities.Snapshot, subscriberBuffer)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	h.log.Debug().Str("subscriber", id).Int("subscribers", len(h.subs)).Msg("subscriber added")
	return id, ch
}

// SendTo delivers one snapshot to a single subscriber. Used to seed a new
// subscriber with initial state so it is never left without one.
func (h *Hub) SendTo(id string, snap entities.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subs[id]
	if !ok {
		return
	}
	select {
	case ch <- snap:
	default:
		h.dropLocked(id)
	}
}

// Publish pushes snap to every subscriber. A subscriber whose buffer is full
// is silently dropped; the mutation that triggered the publish is never
// affected.
func (h *Hub) Publish(snap entities.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- snap:
		default:
			h.dropLocked(id)
		}
	}
}

// Unsubscribe removes a listener. Safe to call for an already-removed id.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(id)
}

// Count returns the number of active subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber and rejects future ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id := range h.subs {
		h.dropLocked(id)
	}
	h.closed = true
}

func (h *Hub) dropLocked(id string) {
	ch, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(ch)
	h.log.Debug().Str("subscriber", id).Int("subscribers", len(h.subs)).Msg("subscriber dropped")
}
