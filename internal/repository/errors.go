package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that a referenced entity does not exist.
var ErrNotFound = errors.New("record not found")

// ValidationError reports caller-supplied data that failed a required-field
// or format check. Nothing is written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a uniqueness violation, e.g. registering the same
// email twice for one session.
type ConflictError struct {
	Resource string
	Detail   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Detail)
}

// CapacityError reports that a session was already full at confirmation
// time. Callers should offer waitlisting instead of failing outright.
type CapacityError struct {
	SessionID  uint
	MaxPlayers int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("session %d is full (%d players)", e.SessionID, e.MaxPlayers)
}

// PermissionError reports that the requester lacks the role or ownership
// relationship the mutation requires.
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("not allowed to %s", e.Action)
}

// StorageError wraps an underlying read/write failure with enough context
// to diagnose it. Handlers surface it as a generic failure; the detail
// goes to the operator log only.
type StorageError struct {
	Op  string
	Key uint
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s (key %d): %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, key uint, err error) error {
	return &StorageError{Op: op, Key: key, Err: err}
}

// Requester identifies the caller of a permission-checked operation, as
// resolved by the auth layer.
type Requester struct {
	ID    uint
	Admin bool
}
