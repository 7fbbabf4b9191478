package session

import "context"

// MutationOp is the outcome of an Upsert guard.
type MutationOp int

const (
	// MutationKeep leaves the table unchanged.
	MutationKeep MutationOp = iota
	// MutationPut writes Mutation.Session for the identity.
	MutationPut
	// MutationDelete removes the identity's entry.
	MutationDelete
)

// Mutation is returned by a MutateFunc.
type Mutation struct {
	Op      MutationOp
	Session Session
}

// Keep leaves the entry as it is.
func Keep() Mutation { return Mutation{Op: MutationKeep} }

// Put replaces (or creates) the entry.
func Put(s Session) Mutation { return Mutation{Op: MutationPut, Session: s} }

// Delete removes the entry.
func Delete() Mutation { return Mutation{Op: MutationDelete} }

// MutateFunc evaluates guards against the current entry (nil when absent).
//
// It runs while the store holds exclusive access for the identity, so it must be
// pure and fast: no I/O, no blocking. Stores with optimistic concurrency may call
// it more than once; only the last call's outcome is applied.
type MutateFunc func(cur *Session) Mutation

// Store is the authoritative table of one session per identity.
type Store interface {
	// Get returns the current entry, if any, under shared access.
	Get(ctx context.Context, identity string) (Session, bool, error)

	// Upsert atomically reads the entry, runs fn and applies its mutation.
	Upsert(ctx context.Context, identity string, fn MutateFunc) error

	// Sweep deletes entries that Policy.Evictable reports as dead and returns the count.
	Sweep(ctx context.Context, now int64, p Policy) (int, error)

	// Ping checks backend reachability.
	Ping(ctx context.Context) error

	// Close releases resources the store owns.
	Close() error
}
