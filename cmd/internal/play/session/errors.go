package session

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned for an invalid Policy or store option.
	ErrConfig = errors.New("invalid session config")

	// ErrInvalidInput is returned for an empty identity or malformed session.
	ErrInvalidInput = errors.New("invalid session input")

	// ErrConflict is returned when optimistic concurrency gave up after retries.
	ErrConflict = errors.New("session write conflict")
)

// OpError is a typed store error with a stable Op + Kind contract for callers/tests.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
