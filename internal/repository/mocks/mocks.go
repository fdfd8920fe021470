package mocks

import (
	"context"

	"github.com/rpggio/saraban/internal/domain/activity"
	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/domain/routing"
	"github.com/stretchr/testify/mock"
)

// DocumentRepository is a mock for document.DocumentRepository.
type DocumentRepository struct {
	mock.Mock
}

func (m *DocumentRepository) Create(ctx context.Context, tenantID string, doc *document.Document) error {
	args := m.Called(ctx, tenantID, doc)
	return args.Error(0)
}

func (m *DocumentRepository) Get(ctx context.Context, tenantID, id string) (*document.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if doc, ok := args.Get(0).(*document.Document); ok {
		return doc.Clone(), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) Commit(ctx context.Context, tenantID string, doc *document.Document, expectedVersion int64) error {
	args := m.Called(ctx, tenantID, doc, expectedVersion)
	return args.Error(0)
}

func (m *DocumentRepository) List(ctx context.Context, tenantID string, opts document.ListDocumentsOptions) ([]document.DocumentRef, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]document.DocumentRef); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) ListAll(ctx context.Context, tenantID string) ([]document.Document, error) {
	args := m.Called(ctx, tenantID)
	if list, ok := args.Get(0).([]document.Document); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SearchRepository is a mock for document.SearchRepository.
type SearchRepository struct {
	mock.Mock
}

func (m *SearchRepository) Search(ctx context.Context, tenantID, query string, opts document.SearchOptions) ([]document.SearchResult, error) {
	args := m.Called(ctx, tenantID, query, opts)
	if results, ok := args.Get(0).([]document.SearchResult); ok {
		return results, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SequenceStore is a mock for registry.SequenceStore.
type SequenceStore struct {
	mock.Mock
}

func (m *SequenceStore) Next(ctx context.Context, tenantID string, key registry.Key, limit int64) (int64, error) {
	args := m.Called(ctx, tenantID, key, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SequenceStore) Peek(ctx context.Context, tenantID string, key registry.Key) (int64, error) {
	args := m.Called(ctx, tenantID, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SequenceStore) Release(ctx context.Context, tenantID string, key registry.Key, value int64) (bool, error) {
	args := m.Called(ctx, tenantID, key, value)
	return args.Bool(0), args.Error(1)
}

// NumberAllocator is a mock for document.NumberAllocator.
type NumberAllocator struct {
	mock.Mock
}

func (m *NumberAllocator) Plan(category, scopeKey string) (registry.Plan, error) {
	args := m.Called(category, scopeKey)
	return args.Get(0).(registry.Plan), args.Error(1)
}

func (m *NumberAllocator) Reserve(ctx context.Context, tenantID, category, scopeKey string) (registry.Reservation, error) {
	args := m.Called(ctx, tenantID, category, scopeKey)
	return args.Get(0).(registry.Reservation), args.Error(1)
}

func (m *NumberAllocator) Release(ctx context.Context, tenantID string, r registry.Reservation) (bool, error) {
	args := m.Called(ctx, tenantID, r)
	return args.Bool(0), args.Error(1)
}

func (m *NumberAllocator) Issued(tenantID, category, number string) {
	m.Called(tenantID, category, number)
}

// NumberedRepository is a mock for document.NumberedRepository.
type NumberedRepository struct {
	mock.Mock
}

func (m *NumberedRepository) CreateNumbered(ctx context.Context, tenantID string, doc *document.Document, plan registry.Plan) error {
	args := m.Called(ctx, tenantID, doc, plan)
	return args.Error(0)
}

func (m *NumberedRepository) CommitNumbered(ctx context.Context, tenantID string, doc *document.Document, expectedVersion int64, plan registry.Plan) error {
	args := m.Called(ctx, tenantID, doc, expectedVersion, plan)
	return args.Error(0)
}

// Directory is a mock for routing.Directory.
type Directory struct {
	mock.Mock
}

func (m *Directory) FindByID(ctx context.Context, tenantID, id string) (*routing.Person, error) {
	args := m.Called(ctx, tenantID, id)
	if p, ok := args.Get(0).(*routing.Person); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Directory) FindByRole(ctx context.Context, tenantID string, filter routing.RoleFilter) ([]routing.Person, error) {
	args := m.Called(ctx, tenantID, filter)
	if list, ok := args.Get(0).([]routing.Person); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// PolicyStore is a mock for routing.PolicyStore.
type PolicyStore struct {
	mock.Mock
}

func (m *PolicyStore) PolicyFor(ctx context.Context, tenantID, category string) (*routing.Policy, error) {
	args := m.Called(ctx, tenantID, category)
	if p, ok := args.Get(0).(*routing.Policy); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// BlobStore is a mock for document.BlobStore.
type BlobStore struct {
	mock.Mock
}

func (m *BlobStore) Put(ctx context.Context, tenantID string, blob document.Blob) (string, error) {
	args := m.Called(ctx, tenantID, blob)
	return args.String(0), args.Error(1)
}

// EventPublisher is a mock for document.EventPublisher.
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) Publish(ctx context.Context, event document.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
