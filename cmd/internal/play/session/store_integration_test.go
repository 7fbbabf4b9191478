package session

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Integration tests are enabled when PLAYGATE_TEST_DATABASE_URL or
// PLAYGATE_TEST_REDIS_ADDR is set. Outside CI an unreachable backend skips.

func TestPostgresStore_Conformance(t *testing.T) {
	ctx := context.Background()
	dbURL := strings.TrimSpace(os.Getenv("PLAYGATE_TEST_DATABASE_URL"))
	if dbURL == "" {
		t.Skip("PLAYGATE_TEST_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool := mustPGXPool(ctx, t, dbURL)
	defer pool.Close()

	st, err := NewPostgresStore(pool, WithSchema("playgate_test"))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	prefix := "it-" + ulid.Make().String() + "-"
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(),
			`DELETE FROM `+st.table()+` WHERE identity LIKE $1`, prefix+"%")
	})

	runStoreConformance(t, st, func() string { return prefix + ulid.Make().String() })
}

func TestPostgresStore_Sweep(t *testing.T) {
	ctx := context.Background()
	dbURL := strings.TrimSpace(os.Getenv("PLAYGATE_TEST_DATABASE_URL"))
	if dbURL == "" {
		t.Skip("PLAYGATE_TEST_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool := mustPGXPool(ctx, t, dbURL)
	defer pool.Close()

	// A dedicated schema keeps other rows out of the affected count.
	schema := "playgate_sweep_" + strings.ToLower(ulid.Make().String())
	st, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP SCHEMA IF EXISTS `+schema+` CASCADE`)
	})

	now := time.Now().Unix()
	rows := map[string]Session{
		"keep-awaiting": {Entropy: "a", State: StateAwaitingSignature, LastTransitionAt: now - 60},
		"drop-awaiting": {Entropy: "b", State: StateAwaitingSignature, LastTransitionAt: now - 601},
		"drop-zeroed":   {Entropy: "c", State: StateAwaitingSignature, LastTransitionAt: 0},
		"keep-started":  {Entropy: "d", State: StateGameStarted, LastTransitionAt: now - 3000},
		"drop-started":  {Entropy: "e", State: StateGameStarted, LastTransitionAt: now - 3601},
	}
	for id, s := range rows {
		s := s
		if err := st.Upsert(ctx, id, func(*Session) Mutation { return Put(s) }); err != nil {
			t.Fatalf("Upsert(%s): %v", id, err)
		}
	}

	n, err := st.Sweep(ctx, now, DefaultPolicy())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 3 {
		t.Fatalf("Sweep removed %d rows, want 3", n)
	}
	for id := range rows {
		_, ok, err := st.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if want := strings.HasPrefix(id, "keep-"); ok != want {
			t.Fatalf("Get(%s) present=%v, want %v", id, ok, want)
		}
	}
}

func TestRedisStore_Conformance(t *testing.T) {
	ctx := context.Background()
	addr := strings.TrimSpace(os.Getenv("PLAYGATE_TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("PLAYGATE_TEST_REDIS_ADDR is not set; skipping Redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()
	if err := client.Ping(ctx).Err(); err != nil {
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Redis unreachable (PLAYGATE_TEST_REDIS_ADDR set): %v", err)
		}
		t.Fatalf("redis ping: %v", err)
	}

	prefix := "playgate:test:" + ulid.Make().String() + ":"
	st, err := NewRedisStore(client, DefaultPolicy(), WithKeyPrefix(prefix))
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}

	runStoreConformance(t, st, func() string { return ulid.Make().String() })

	// Every write carries the retention TTL.
	id := ulid.Make().String()
	if err := st.Upsert(ctx, id, func(*Session) Mutation {
		return Put(Session{Entropy: "E", State: StateAwaitingSignature, LastTransitionAt: time.Now().Unix()})
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	ttl, err := client.TTL(ctx, prefix+id).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > DefaultPolicy().Retention() {
		t.Fatalf("TTL = %s, want (0, %s]", ttl, DefaultPolicy().Retention())
	}
}

func mustPGXPool(ctx context.Context, t *testing.T, dbURL string) *pgxpool.Pool {
	t.Helper()

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("pgxpool.ParseConfig: %v", err)
	}

	cfg.MaxConns = 8
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pgxpool.NewWithConfig: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (PLAYGATE_TEST_DATABASE_URL set): %v", err)
		}
		t.Fatalf("pool.Ping: %v", err)
	}

	return pool
}

func shouldSkipIntegration(err error) bool {
	if os.Getenv("CI") != "" {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
