package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

func TestSweeper_SweepOnce(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	mock.Set(time.Unix(50_000, 0))
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, "Alice", func(*Session) Mutation {
		return Put(Session{Entropy: "E", State: StateAwaitingSignature, LastTransitionAt: mock.Now().Unix()})
	}))
	require.NoError(t, st.Upsert(ctx, "Bob", func(*Session) Mutation {
		return Put(Session{Entropy: "E", State: StateAwaitingSignature, LastTransitionAt: 0})
	}))

	var observed atomic.Int64
	sw, err := NewSweeper(st, DefaultPolicy(), time.Minute,
		WithSweepClock(mock),
		WithSweepLogger(slogt.New(t)),
		WithSweepObserver(func(n int) { observed.Add(int64(n)) }),
	)
	require.NoError(t, err)

	require.Equal(t, 1, sw.SweepOnce(ctx))
	require.Equal(t, int64(1), observed.Load())

	// Alice becomes evictable once the start window has passed.
	mock.Add(11 * time.Minute)
	require.Equal(t, 1, sw.SweepOnce(ctx))
	require.Equal(t, 0, st.Len())
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	st := NewMemoryStore()

	swept := make(chan int, 4)
	sw, err := NewSweeper(st, DefaultPolicy(), time.Minute,
		WithSweepClock(mock),
		WithSweepLogger(slogt.New(t)),
		WithSweepObserver(func(n int) { swept <- n }),
	)
	require.NoError(t, err)

	require.NoError(t, st.Upsert(context.Background(), "Alice", func(*Session) Mutation {
		return Put(Session{Entropy: "E", State: StateGameStarted, LastTransitionAt: 0})
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	// Advance until the ticker goroutine has registered and fired.
	require.Eventually(t, func() bool {
		mock.Add(time.Minute)
		select {
		case n := <-swept:
			return n == 1
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewSweeper_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewSweeper(nil, DefaultPolicy(), time.Minute)
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewSweeper(NewMemoryStore(), DefaultPolicy(), 0)
	require.ErrorIs(t, err, ErrConfig)
}
