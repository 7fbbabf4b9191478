package wallet

import "errors"

var (
	// ErrUnknownIdentity is returned when no registered scheme accepts an identity.
	ErrUnknownIdentity = errors.New("wallet: unknown identity format")

	// ErrUnknownScheme is returned when a scheme name is not registered.
	ErrUnknownScheme = errors.New("wallet: unknown scheme")

	// ErrInvalidKey is returned when private key material cannot be parsed.
	ErrInvalidKey = errors.New("wallet: invalid key")
)
