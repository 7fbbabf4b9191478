package realtime

import "time"

const (
	// Subscribers only send control frames; anything larger is a protocol abuse.
	maxFrameBytes = 4 << 10

	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Per-connection inbound message budget.
	rateLimitEvents = 30
	rateLimitWindow = 10 * time.Second
)
