package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPolicy_Expired(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	const now = int64(10_000)

	cases := []struct {
		name string
		s    Session
		want bool
	}{
		{name: "awaiting fresh", s: Session{State: StateAwaitingSignature, LastTransitionAt: now}, want: false},
		{name: "awaiting at 30s", s: Session{State: StateAwaitingSignature, LastTransitionAt: now - 30}, want: false},
		{name: "awaiting at 31s", s: Session{State: StateAwaitingSignature, LastTransitionAt: now - 31}, want: true},
		{name: "awaiting zeroed", s: Session{State: StateAwaitingSignature, LastTransitionAt: 0}, want: true},
		{name: "started at 3600s", s: Session{State: StateGameStarted, LastTransitionAt: now - 3600}, want: false},
		{name: "started at 3601s", s: Session{State: StateGameStarted, LastTransitionAt: now - 3601}, want: true},
		{name: "unknown state", s: Session{State: "bogus", LastTransitionAt: now}, want: true},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, p.Expired(tc.s, now), tc.name)
	}
}

func TestPolicy_Windows(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	const now = int64(10_000)

	awaiting := func(age int64) Session {
		return Session{State: StateAwaitingSignature, LastTransitionAt: now - age}
	}
	started := func(age int64) Session {
		return Session{State: StateGameStarted, LastTransitionAt: now - age}
	}

	require.True(t, p.StartAllowed(awaiting(0), now))
	require.True(t, p.StartAllowed(awaiting(600), now))
	require.False(t, p.StartAllowed(awaiting(601), now))
	require.False(t, p.StartAllowed(started(0), now))

	require.True(t, p.CompleteAllowed(started(3600), now))
	require.False(t, p.CompleteAllowed(started(3601), now))
	require.False(t, p.CompleteAllowed(awaiting(0), now))
}

func TestPolicy_Evictable(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	const now = int64(10_000)

	// Expired for init purposes, but still startable: must survive a sweep.
	require.False(t, p.Evictable(Session{State: StateAwaitingSignature, LastTransitionAt: now - 120}, now))
	require.True(t, p.Evictable(Session{State: StateAwaitingSignature, LastTransitionAt: now - 601}, now))
	require.True(t, p.Evictable(Session{State: StateAwaitingSignature, LastTransitionAt: 0}, now))
	require.False(t, p.Evictable(Session{State: StateGameStarted, LastTransitionAt: now - 3600}, now))
	require.True(t, p.Evictable(Session{State: StateGameStarted, LastTransitionAt: now - 3601}, now))
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.StartWindow = 0
	require.ErrorIs(t, bad.Validate(), ErrConfig)

	bad = DefaultPolicy()
	bad.AwaitingTTL = 500 * time.Millisecond
	require.ErrorIs(t, bad.Validate(), ErrConfig)

	require.Equal(t, time.Hour, DefaultPolicy().Retention())
}
