package document

import (
	"context"

	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/domain/routing"
)

// DocumentRepository provides persistence operations for documents.
type DocumentRepository interface {
	Create(ctx context.Context, tenantID string, doc *Document) error
	Get(ctx context.Context, tenantID, id string) (*Document, error)
	// Commit stores doc if the stored version still equals expectedVersion,
	// appending endorsements not yet persisted and adding new recipients in
	// the same transaction.
	Commit(ctx context.Context, tenantID string, doc *Document, expectedVersion int64) error
	List(ctx context.Context, tenantID string, opts ListDocumentsOptions) ([]DocumentRef, error)
	ListAll(ctx context.Context, tenantID string) ([]Document, error)
}

// SearchRepository provides full-text search.
type SearchRepository interface {
	Search(ctx context.Context, tenantID, query string, opts SearchOptions) ([]SearchResult, error)
}

// TargetResolver answers the routing questions of the engine.
type TargetResolver interface {
	Person(ctx context.Context, tenantID, id string) (*routing.Person, error)
	ResolveTarget(ctx context.Context, tenantID string, filter routing.RoleFilter, requested *string) (*routing.Person, error)
	ResolveDelegate(ctx context.Context, tenantID string, policy *routing.Policy, actorID string, requested *string) (*routing.Person, error)
}

// PolicyResolver extends TargetResolver with policy lookup.
type PolicyResolver interface {
	TargetResolver
	Policy(ctx context.Context, tenantID, category string) (*routing.Policy, error)
}

// NumberedRepository writes a document and issues its registry number in
// one transaction, so a failed write never consumes a number.
type NumberedRepository interface {
	CreateNumbered(ctx context.Context, tenantID string, doc *Document, plan registry.Plan) error
	CommitNumbered(ctx context.Context, tenantID string, doc *Document, expectedVersion int64, plan registry.Plan) error
}

// NumberAllocator issues registry numbers.
type NumberAllocator interface {
	Plan(category, scopeKey string) (registry.Plan, error)
	Reserve(ctx context.Context, tenantID, category, scopeKey string) (registry.Reservation, error)
	Release(ctx context.Context, tenantID string, r registry.Reservation) (bool, error)
	Issued(tenantID, category, number string)
}

// Blob is a write-once payload handed to the blob store.
type Blob struct {
	Kind        string
	ContentType string
	Data        []byte
}

// BlobStore stores attachment and signature payloads and returns opaque
// references.
type BlobStore interface {
	Put(ctx context.Context, tenantID string, blob Blob) (string, error)
}

// EventPublisher announces committed transitions.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Metrics observes document operations.
type Metrics interface {
	IncCreated(category string)
	IncDecision(category, decision string)
	IncConflict(category string)
}
