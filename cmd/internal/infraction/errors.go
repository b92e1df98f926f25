package infraction

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("infraction not found")

	// ErrDuplicateID surfaces a unique-constraint collision on the counterpart
	// table: a concurrent batch already mutated the same identity. The batch
	// engine downgrades it to a per-item failure instead of aborting.
	ErrDuplicateID = errors.New("infraction id already exists")
)
