package realtime

import (
	"log/slog"
	"sync"

	v1 "playgate/contracts/play/v1"
)

// Topic is the subscriber set for one identity.
//
// Broadcast never blocks. A subscriber whose queue is full is closed and removed:
// a consumer that misses an event can no longer trust the feed.
type Topic struct {
	log      *slog.Logger
	Identity string

	mu      sync.RWMutex
	members map[string]*Client
}

func newTopic(log *slog.Logger, identity string) *Topic {
	return &Topic{
		log:      log,
		Identity: identity,
		members:  make(map[string]*Client),
	}
}

// Join adds a client.
func (t *Topic) Join(client *Client) {
	if t == nil || client == nil || client.ID == "" {
		return
	}

	t.mu.Lock()
	t.members[client.ID] = client
	t.mu.Unlock()

	t.log.Debug("events.subscriber.join", "identity", t.Identity, "client_id", client.ID)
}

// Leave removes a client and signals its shutdown.
func (t *Topic) Leave(clientID string) {
	if t == nil || clientID == "" {
		return
	}

	t.mu.Lock()
	cl := t.members[clientID]
	delete(t.members, clientID)
	t.mu.Unlock()

	// Close after removal so a concurrent Broadcast never targets a closing client.
	if cl != nil {
		cl.Close()
	}

	t.log.Debug("events.subscriber.leave", "identity", t.Identity, "client_id", clientID)
}

// Len returns the number of subscribers.
func (t *Topic) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members)
}

// Broadcast fans ev out to every subscriber.
func (t *Topic) Broadcast(ev v1.SessionEvent) {
	if t == nil {
		return
	}

	var slow []string

	t.mu.RLock()
	for id, m := range t.members {
		select {
		case <-m.Done():
			continue
		default:
		}

		select {
		case m.Send <- ev:
		default:
			slow = append(slow, id)
		}
	}
	t.mu.RUnlock()

	for _, id := range slow {
		t.log.Info("events.subscriber.slow", "identity", t.Identity, "client_id", id)
		t.Leave(id)
	}
}
