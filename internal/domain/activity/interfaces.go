package activity

import "context"

// Recorder appends entries to a tenant's activity log. Entries are never
// edited once written.
type Recorder interface {
	Log(ctx context.Context, tenantID string, entry *ActivityEntry) error
}

// Reader lists a tenant's activity, newest first.
type Reader interface {
	List(ctx context.Context, tenantID string, opts ListActivityOptions) ([]ActivityEntry, error)
}

// Repository is the full activity store.
type Repository interface {
	Recorder
	Reader
}
