package routing

import "context"

// Directory is the read-only personnel directory.
type Directory interface {
	FindByID(ctx context.Context, tenantID, id string) (*Person, error)
	FindByRole(ctx context.Context, tenantID string, filter RoleFilter) ([]Person, error)
}

// PolicyStore provides admin-configured routing policies.
type PolicyStore interface {
	PolicyFor(ctx context.Context, tenantID, category string) (*Policy, error)
}
