package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisMaxTxRetries = 8

// RedisStore keeps sessions as JSON values under per-identity keys.
//
// Upsert uses WATCH/MULTI optimistic transactions on the identity key and
// retries on conflict. Keys carry a TTL of Policy.Retention, so Redis evicts
// dead entries itself and Sweep has nothing to do.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type redisRecord struct {
	Entropy          string `json:"entropy"`
	State            State  `json:"state"`
	LastTransitionAt int64  `json:"last_transition_at"`
}

// RedisOption configures RedisStore behavior.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default "playgate:session:" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed Store whose keys live for p.Retention().
func NewRedisStore(client redis.UniversalClient, p Policy, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil redis client", ErrConfig)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &RedisStore{
		client: client,
		prefix: "playgate:session:",
		ttl:    p.Retention(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *RedisStore) key(identity string) string {
	return s.prefix + identity
}

// Get loads the entry for identity.
func (s *RedisStore) Get(ctx context.Context, identity string) (Session, bool, error) {
	if identity == "" {
		return Session{}, false, OpError{Op: "session.redis.Get", Kind: ErrInvalidInput}
	}
	return readRedis(ctx, s.client, s.key(identity), identity)
}

// Upsert runs fn inside a WATCH transaction on the identity key.
func (s *RedisStore) Upsert(ctx context.Context, identity string, fn MutateFunc) error {
	if identity == "" || fn == nil {
		return OpError{Op: "session.redis.Upsert", Kind: ErrInvalidInput}
	}
	key := s.key(identity)

	txf := func(tx *redis.Tx) error {
		sess, ok, err := readRedis(ctx, tx, key, identity)
		if err != nil {
			return err
		}
		var cur *Session
		if ok {
			cur = &sess
		}

		m := fn(cur)
		switch m.Op {
		case MutationPut:
			m.Session.Identity = identity
			if err := m.Session.validate(); err != nil {
				return OpError{Op: "session.redis.Upsert", Kind: err}
			}
			data, err := json.Marshal(redisRecord{
				Entropy:          m.Session.Entropy,
				State:            m.Session.State,
				LastTransitionAt: m.Session.LastTransitionAt,
			})
			if err != nil {
				return fmt.Errorf("session: failed to marshal: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, s.ttl)
				return nil
			})
			return err
		case MutationDelete:
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		default:
			return nil
		}
	}

	for i := 0; i < redisMaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return OpError{Op: "session.redis.Upsert", Kind: ErrConflict}
}

// Sweep is a no-op: key TTLs evict dead entries.
func (s *RedisStore) Sweep(_ context.Context, _ int64, _ Policy) (int, error) { return 0, nil }

// Ping checks server reachability.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op because the client is owned by the caller.
func (s *RedisStore) Close() error { return nil }

// redisGetter is satisfied by both clients and WATCH transactions.
type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readRedis(ctx context.Context, c redisGetter, key, identity string) (Session, bool, error) {
	val, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}

	var rec redisRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return Session{}, false, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return Session{
		Identity:         identity,
		Entropy:          rec.Entropy,
		State:            rec.State,
		LastTransitionAt: rec.LastTransitionAt,
	}, true, nil
}
