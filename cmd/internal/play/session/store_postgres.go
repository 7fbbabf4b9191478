package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a PostgreSQL table.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Concurrency model:
//   - Upsert takes a per-identity transactional advisory lock, so an absent row is
//     serialized as strictly as an existing one (two inits cannot both see "absent").
//   - Writes for different identities proceed in parallel.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "playgate").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !isValidPGIdent(schema) {
			return fmt.Errorf("%w: invalid schema identifier %q", ErrConfig, schema)
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "playgate",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrConfig)
	}
	return st, nil
}

func (s *PostgresStore) table() string {
	return pgIdent(s.schema, "game_sessions")
}

// EnsureSchema creates the schema and table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	schema := pgx.Identifier{s.schema}.Sanitize()
	_, err := s.pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS `+schema+`;
		CREATE TABLE IF NOT EXISTS `+s.table()+` (
			identity           text PRIMARY KEY,
			entropy            text   NOT NULL,
			state              text   NOT NULL CHECK (state IN ('awaiting_signature', 'game_started')),
			last_transition_at bigint NOT NULL
		);
	`)
	return err
}

// Get loads the entry for identity.
func (s *PostgresStore) Get(ctx context.Context, identity string) (Session, bool, error) {
	if identity == "" {
		return Session{}, false, OpError{Op: "session.postgres.Get", Kind: ErrInvalidInput}
	}

	sess, err := scanSession(s.pool.QueryRow(ctx,
		`SELECT identity, entropy, state, last_transition_at FROM `+s.table()+` WHERE identity = $1`,
		identity,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

// Upsert locks the identity, runs fn and applies its mutation in one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, identity string, fn MutateFunc) error {
	if identity == "" || fn == nil {
		return OpError{Op: "session.postgres.Upsert", Kind: ErrInvalidInput}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, identity); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	var cur *Session
	sess, err := scanSession(tx.QueryRow(ctx,
		`SELECT identity, entropy, state, last_transition_at FROM `+s.table()+` WHERE identity = $1 FOR UPDATE`,
		identity,
	))
	switch {
	case err == nil:
		cur = &sess
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return err
	}

	m := fn(cur)
	switch m.Op {
	case MutationKeep:
		return nil
	case MutationPut:
		m.Session.Identity = identity
		if err := m.Session.validate(); err != nil {
			return OpError{Op: "session.postgres.Upsert", Kind: err}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO `+s.table()+` (identity, entropy, state, last_transition_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (identity) DO UPDATE
			   SET entropy = EXCLUDED.entropy,
			       state = EXCLUDED.state,
			       last_transition_at = EXCLUDED.last_transition_at
		`, identity, m.Session.Entropy, string(m.Session.State), m.Session.LastTransitionAt); err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
	case MutationDelete:
		if _, err := tx.Exec(ctx, `DELETE FROM `+s.table()+` WHERE identity = $1`, identity); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Sweep deletes evictable rows in one statement.
func (s *PostgresStore) Sweep(ctx context.Context, now int64, p Policy) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM `+s.table()+`
		 WHERE last_transition_at = 0
		    OR (state = 'awaiting_signature' AND last_transition_at + $1 < $3)
		    OR (state = 'game_started' AND last_transition_at + $2 < $3)
	`, secs(max(p.AwaitingTTL, p.StartWindow)), secs(max(p.GameTTL, p.CompleteWindow)), now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Ping checks that a connection can be acquired.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

func scanSession(row pgx.Row) (Session, error) {
	var (
		sess  Session
		state string
	)
	if err := row.Scan(&sess.Identity, &sess.Entropy, &state, &sess.LastTransitionAt); err != nil {
		return Session{}, err
	}
	sess.State = State(state)
	return sess, nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}
