package store

import "errors"

var (
	// ErrNotFound means the row does not exist or belongs to another persona.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrLocked means the belief's active stance is locked and the mutation
	// was rejected before any write.
	ErrLocked = errors.New("stance locked")
)
