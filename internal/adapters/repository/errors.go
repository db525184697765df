package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrNotFound marks lookups for rows that do not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate marks writes rejected by a uniqueness constraint,
	// e.g. a winner batch raced by a concurrent round completion.
	ErrDuplicate = errors.New("duplicate record")
)
