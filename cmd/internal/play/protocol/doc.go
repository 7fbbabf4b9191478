// Package protocol implements the game-run session state machine.
//
// A Service composes a session.Store, a wallet.Verifier, an entropy source and a
// clock into the five operations Get, Init, Start, Complete and Cancel. Every
// operation returns a typed result; guard failures are never errors, and
// infrastructure faults are logged and reported as ErrorUnexpected.
//
// Signature checks run before the store's exclusive section. Their outcome is
// applied inside the guard after the existence, state, entropy and age checks,
// so callers observe the same precedence as if verification ran under the lock.
package protocol
