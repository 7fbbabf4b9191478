package realtime

import (
	"sync"

	v1 "playgate/contracts/play/v1"
)

// Client represents one connected event subscriber.
//
// Send is never closed by the server, so concurrent publishers cannot panic.
// done signals the connection goroutines to stop. Close is idempotent.
type Client struct {
	ID       string
	Identity string
	Send     chan v1.SessionEvent

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(identity, id string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 16
	}
	return &Client{
		ID:       id,
		Identity: identity,
		Send:     make(chan v1.SessionEvent, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// Done returns a channel that is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop (idempotent).
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
