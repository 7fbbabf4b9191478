package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory.
//
// Get takes the read lock; Upsert and Sweep take the write lock for their whole
// check-then-mutate sequence, serializing writes across all identities.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
	}
}

// Get returns the entry for identity.
func (s *MemoryStore) Get(ctx context.Context, identity string) (Session, bool, error) {
	if identity == "" {
		return Session{}, false, OpError{Op: "session.memory.Get", Kind: ErrInvalidInput}
	}
	if err := ctx.Err(); err != nil {
		return Session{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[identity]
	return sess, ok, nil
}

// Upsert runs fn against the current entry and applies its mutation atomically.
func (s *MemoryStore) Upsert(ctx context.Context, identity string, fn MutateFunc) error {
	if identity == "" || fn == nil {
		return OpError{Op: "session.memory.Upsert", Kind: ErrInvalidInput}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *Session
	if existing, ok := s.sessions[identity]; ok {
		// fn gets a copy; the map only changes through the returned mutation.
		cp := existing
		cur = &cp
	}

	m := fn(cur)
	switch m.Op {
	case MutationPut:
		m.Session.Identity = identity
		if err := m.Session.validate(); err != nil {
			return OpError{Op: "session.memory.Upsert", Kind: err}
		}
		s.sessions[identity] = m.Session
	case MutationDelete:
		delete(s.sessions, identity)
	}
	return nil
}

// Sweep deletes evictable entries.
func (s *MemoryStore) Sweep(ctx context.Context, now int64, p Policy) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if p.Evictable(sess, now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
