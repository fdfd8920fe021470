package registry

import "context"

// SequenceStore holds registry counters. Next and Release must each be a
// single atomic step; Peek must never advance the counter.
type SequenceStore interface {
	// Next advances the counter and returns the issued value, or
	// repository.ErrExhausted when the counter already reached limit.
	Next(ctx context.Context, tenantID string, key Key, limit int64) (int64, error)
	// Peek returns the last issued value, zero when nothing was issued yet.
	Peek(ctx context.Context, tenantID string, key Key) (int64, error)
	// Release steps the counter back from value to value-1 and reports
	// whether it did. A counter that moved past value is left alone.
	Release(ctx context.Context, tenantID string, key Key, value int64) (bool, error)
}

// Metrics observes allocations.
type Metrics interface {
	IncAllocation(category string)
}
