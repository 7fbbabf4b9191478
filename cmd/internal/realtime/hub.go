package realtime

import (
	"log/slog"
	"sync"

	"playgate/cmd/internal/play/protocol"
	v1 "playgate/contracts/play/v1"
)

// Hub routes committed session transitions to per-identity topics.
// It implements protocol.EventSink.
type Hub struct {
	log *slog.Logger

	mu     sync.Mutex
	topics map[string]*Topic
}

var _ protocol.EventSink = (*Hub)(nil)

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:    log,
		topics: make(map[string]*Topic),
	}
}

// Subscribe attaches client to its identity's topic.
func (h *Hub) Subscribe(client *Client) {
	if client == nil || client.Identity == "" {
		return
	}

	h.mu.Lock()
	t, ok := h.topics[client.Identity]
	if !ok {
		t = newTopic(h.log, client.Identity)
		h.topics[client.Identity] = t
	}
	t.Join(client)
	h.mu.Unlock()
}

// Unsubscribe detaches client and drops the topic once empty.
func (h *Hub) Unsubscribe(client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[client.Identity]
	if !ok {
		client.Close()
		return
	}
	t.Leave(client.ID)
	if t.Len() == 0 {
		delete(h.topics, client.Identity)
	}
}

// Subscribers returns the subscriber count for identity.
func (h *Hub) Subscribers(identity string) int {
	h.mu.Lock()
	t := h.topics[identity]
	h.mu.Unlock()
	if t == nil {
		return 0
	}
	return t.Len()
}

// Publish implements protocol.EventSink. It never blocks on subscribers.
func (h *Hub) Publish(ev protocol.Event) {
	h.mu.Lock()
	t := h.topics[ev.Identity]
	h.mu.Unlock()
	if t == nil {
		return
	}

	t.Broadcast(v1.SessionEvent{
		Type:     v1.TypeSessionEvent,
		Identity: ev.Identity,
		Op:       string(ev.Op),
		State:    ev.State,
		TS:       ev.TS,
	})
}
