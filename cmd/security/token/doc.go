// Package token provides session entropy primitives for Playgate.
//
// It is the single source of truth for how run nonces are produced and how they
// appear in logs and audit rows.
//
// Design goals:
// - Entropy comes from crypto/rand only; a failing reader is an error, never a fallback.
// - Entropy is URL-safe base64 without padding so it can be embedded in canonical messages.
// - Logs and audit rows only ever see a short SHA-256 fingerprint of the entropy.
package token
