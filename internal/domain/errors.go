package domain

import "errors"

var (
	// ErrNotFound is returned by lookups for a nonexistent or non-owned row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned when a caller passes an unusable value
	// (zero timestamp, empty title, negative minutes). These are programmer
	// errors and are rejected before touching storage.
	ErrInvalidArgument = errors.New("invalid argument")
)
