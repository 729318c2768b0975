package catalog

import "errors"

// Sentinel errors shared by the catalog services and stores.
var (
	// ErrInvalidInput marks schema/constraint violations at the write path.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a missing entry on point lookups.
	ErrNotFound = errors.New("entry not found")
	// ErrDuplicate marks a source-url uniqueness violation that raced past
	// the upsert lookup. Writes fail closed on it.
	ErrDuplicate = errors.New("duplicate source url")
)
