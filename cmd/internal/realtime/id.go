package realtime

import "github.com/oklog/ulid/v2"

// NewClientID returns a ULID naming one websocket connection in logs.
func NewClientID() string {
	return ulid.Make().String()
}
