package session

import (
	"fmt"
	"time"
)

// State is the stored state of a session. Absent is derived, never stored.
type State string

const (
	// StateAwaitingSignature waits for a signed start (or follows a completed run).
	StateAwaitingSignature State = "awaiting_signature"
	// StateGameStarted marks a run in progress.
	StateGameStarted State = "game_started"
)

// Valid reports whether s is a storable state.
func (s State) Valid() bool {
	return s == StateAwaitingSignature || s == StateGameStarted
}

// Session is one identity's current run.
type Session struct {
	Identity string
	Entropy  string
	State    State

	// LastTransitionAt is unix seconds of the last state change.
	// Zero forces the entry to read as expired.
	LastTransitionAt int64
}

// Age returns the seconds elapsed since the last transition.
func (s Session) Age(now int64) int64 {
	return now - s.LastTransitionAt
}

func (s Session) validate() error {
	if s.Identity == "" || s.Entropy == "" || !s.State.Valid() {
		return ErrInvalidInput
	}
	return nil
}

// Policy holds the time windows of the protocol.
type Policy struct {
	// AwaitingTTL: an AwaitingSignature entry older than this no longer blocks init.
	AwaitingTTL time.Duration
	// GameTTL: a GameStarted entry older than this no longer blocks init.
	GameTTL time.Duration
	// StartWindow: maximum age of the AwaitingSignature entry accepted by start.
	StartWindow time.Duration
	// CompleteWindow: maximum age of the GameStarted entry accepted by complete.
	CompleteWindow time.Duration
}

// DefaultPolicy returns the protocol's normative windows.
func DefaultPolicy() Policy {
	return Policy{
		AwaitingTTL:    30 * time.Second,
		GameTTL:        time.Hour,
		StartWindow:    10 * time.Minute,
		CompleteWindow: time.Hour,
	}
}

// Validate rejects non-positive or sub-second windows.
func (p Policy) Validate() error {
	for name, d := range map[string]time.Duration{
		"awaiting_ttl":    p.AwaitingTTL,
		"game_ttl":        p.GameTTL,
		"start_window":    p.StartWindow,
		"complete_window": p.CompleteWindow,
	} {
		if d < time.Second {
			return fmt.Errorf("%w: %s must be >= 1s, got %s", ErrConfig, name, d)
		}
	}
	return nil
}

func secs(d time.Duration) int64 { return int64(d / time.Second) }

// Expired reports whether s no longer blocks a new init.
func (p Policy) Expired(s Session, now int64) bool {
	switch s.State {
	case StateAwaitingSignature:
		return s.LastTransitionAt+secs(p.AwaitingTTL) < now
	case StateGameStarted:
		return s.LastTransitionAt+secs(p.GameTTL) < now
	default:
		return true
	}
}

// StartAllowed reports whether s is young enough to be started.
func (p Policy) StartAllowed(s Session, now int64) bool {
	return s.State == StateAwaitingSignature && s.Age(now) <= secs(p.StartWindow)
}

// CompleteAllowed reports whether s is young enough to be completed.
func (p Policy) CompleteAllowed(s Session, now int64) bool {
	return s.State == StateGameStarted && s.Age(now) <= secs(p.CompleteWindow)
}

// Evictable reports whether s can no longer make any transition and may be deleted.
func (p Policy) Evictable(s Session, now int64) bool {
	if s.LastTransitionAt == 0 {
		return true
	}
	switch s.State {
	case StateAwaitingSignature:
		return s.LastTransitionAt+secs(max(p.AwaitingTTL, p.StartWindow)) < now
	case StateGameStarted:
		return s.LastTransitionAt+secs(max(p.GameTTL, p.CompleteWindow)) < now
	default:
		return true
	}
}

// Retention is the longest any entry stays useful; TTL-based stores expire keys after it.
func (p Policy) Retention() time.Duration {
	return max(p.AwaitingTTL, p.StartWindow, p.GameTTL, p.CompleteWindow)
}
