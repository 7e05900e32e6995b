package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when no run exists under the requested ID.
	ErrNotFound = errors.New("entity not found")
)
