package store

import "fmt"

// ValidationError reports a draft that is missing a required field. It is
// returned before any write is attempted.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store: missing or empty %s", e.Field)
}

// PersistenceError wraps a backend failure. A message that produced one was
// not stored and must never be broadcast.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
