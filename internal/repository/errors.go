package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic concurrency check fails
	ErrConflict = errors.New("conflict: entity was modified concurrently")

	// ErrDuplicate is returned when a unique key already exists
	ErrDuplicate = errors.New("duplicate key")

	// ErrExhausted is returned when a counter reached its configured limit
	ErrExhausted = errors.New("counter exhausted")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
