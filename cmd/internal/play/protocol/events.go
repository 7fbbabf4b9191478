package protocol

import v1 "playgate/contracts/play/v1"

// Event describes a committed session transition. It never carries entropy.
type Event struct {
	Identity string
	Op       Op
	State    v1.SessionState
	TS       int64
}

// EventSink receives committed transitions. Publish must not block.
type EventSink interface {
	Publish(ev Event)
}

// NoopEventSink drops every event.
type NoopEventSink struct{}

func (NoopEventSink) Publish(Event) {}
