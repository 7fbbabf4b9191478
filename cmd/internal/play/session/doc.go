// Package session holds the game-run session entity, its expiry policy and the
// stores that keep one session per wallet identity.
//
// Every store offers two primitives: Get (shared read) and Upsert, an atomic
// check-and-mutate that evaluates caller guards and applies the outcome under a
// single exclusive acquisition for the identity. Protocol rules live in the
// protocol package; stores know nothing about them beyond Policy.Evictable.
package session
