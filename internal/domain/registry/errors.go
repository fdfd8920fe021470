package registry

import "errors"

var (
	// ErrAllocationExhausted indicates the sequence reached its template limit.
	ErrAllocationExhausted = errors.New("registry sequence exhausted")
	// ErrUnknownCategory indicates no numbering template exists for the category.
	ErrUnknownCategory = errors.New("no numbering template for category")
	// ErrInvalidScope indicates an empty or malformed scope key.
	ErrInvalidScope = errors.New("invalid registry scope")
)
