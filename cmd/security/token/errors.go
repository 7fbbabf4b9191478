package token

import "errors"

// Public, stable errors for callers.
var (
	ErrEntropySize   = errors.New("token entropy size out of range")
	ErrEntropySource = errors.New("token entropy source failed")
)
