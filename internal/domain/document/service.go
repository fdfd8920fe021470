package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/saraban/internal/domain/activity"
	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/domain/routing"
	"github.com/rpggio/saraban/internal/repository"
)

const defaultMaxRetries = 5

// Service handles document business logic.
type Service struct {
	documents  DocumentRepository
	numbered   NumberedRepository
	policies   PolicyResolver
	numbers    NumberAllocator
	activities activity.Recorder
	search     SearchRepository
	blobs      BlobStore
	events     EventPublisher
	metrics    Metrics
	engine     *Engine
	calendar   registry.Calendar
	maxRetries int
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures optional collaborators of the service.
type Option func(*Service)

// WithSearch enables full-text search.
func WithSearch(search SearchRepository) Option {
	return func(s *Service) { s.search = search }
}

// WithBlobStore enables attachment and signature uploads.
func WithBlobStore(blobs BlobStore) Option {
	return func(s *Service) { s.blobs = blobs }
}

// WithEventPublisher announces committed transitions.
func WithEventPublisher(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

// WithMetrics records operation counters.
func WithMetrics(metrics Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// WithNumberedRepository issues registry numbers inside document writes.
// Use it only when repo shares its sequences with the number allocator.
func WithNumberedRepository(repo NumberedRepository) Option {
	return func(s *Service) { s.numbered = repo }
}

// WithScopeCalendar sets the calendar used for default scope keys.
func WithScopeCalendar(cal registry.Calendar) Option {
	return func(s *Service) { s.calendar = cal }
}

// WithMaxRetries bounds optimistic retries per operation.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewService creates a new document service.
func NewService(
	documents DocumentRepository,
	policies PolicyResolver,
	numbers NumberAllocator,
	activities activity.Recorder,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		documents:  documents,
		policies:   policies,
		numbers:    numbers,
		activities: activities,
		engine:     NewEngine(policies),
		calendar:   registry.CalendarFiscalBE,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest describes a document creation request.
type CreateRequest struct {
	Category       Category
	Title          string
	OriginMeta     map[string]string
	AttachmentRef  string
	Attachment     *Blob
	CreatedBy      string
	ScopeKey       string
	RegistryNumber *string
}

// SubmitRequest describes a submission of a draft into routing.
type SubmitRequest struct {
	DocumentID   string
	ActorID      string
	NextTargetID *string
}

// DecisionRequest describes one reviewer decision.
type DecisionRequest struct {
	DocumentID     string
	ActorID        string
	Decision       Decision
	Comment        string
	SignatureRef   string
	Signature      []byte
	SignatureType  string
	Placement      *Placement
	NextTargetID   *string
	IdempotencyKey string
}

// Create creates a draft document, assigning a registry number when the
// category numbers at creation or a number was supplied.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Document, error) {
	if err := ValidateCreateRequest(req); err != nil {
		return nil, err
	}

	policy, err := s.policies.Policy(ctx, tenantID, string(req.Category))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	scopeKey := strings.TrimSpace(req.ScopeKey)
	if scopeKey == "" {
		scopeKey = registry.ScopeFor(now, s.calendar)
	}

	attachmentRef := req.AttachmentRef
	if req.Attachment != nil {
		if s.blobs == nil {
			return nil, fmt.Errorf("blob store not configured")
		}
		blob := *req.Attachment
		blob.Kind = "attachment"
		attachmentRef, err = s.blobs.Put(ctx, tenantID, blob)
		if err != nil {
			return nil, fmt.Errorf("storing attachment: %w", err)
		}
	}

	doc := &Document{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		Category:      req.Category,
		Title:         strings.TrimSpace(req.Title),
		OriginMeta:    req.OriginMeta,
		AttachmentRef: attachmentRef,
		Status:        StatusDraft,
		ScopeKey:      scopeKey,
		Recipients:    []string{},
		Endorsements:  []Endorsement{},
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		ModifiedAt:    now,
		Version:       1,
	}

	switch {
	case req.RegistryNumber != nil:
		number := strings.TrimSpace(*req.RegistryNumber)
		doc.RegistryNumber = &number
		err = s.storeNew(ctx, tenantID, doc)
	case policy.Numbering() == routing.NumberAtCreation:
		err = s.storeNumbered(ctx, tenantID, doc, func(d *Document) error {
			return s.storeNew(ctx, tenantID, d)
		}, func(repo NumberedRepository, d *Document, plan registry.Plan) error {
			if err := repo.CreateNumbered(ctx, tenantID, d, plan); err != nil {
				return fmt.Errorf("creating document: %w", err)
			}
			return nil
		})
	default:
		err = s.storeNew(ctx, tenantID, doc)
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncCreated(string(doc.Category))
	}
	s.logActivity(ctx, tenantID, doc, req.CreatedBy, activity.TypeDocumentCreated, fmt.Sprintf("created %s %q", doc.Category, doc.Title))
	s.publish(ctx, eventFor(EventCreated, doc, req.CreatedBy, ""))

	return doc, nil
}

// Submit routes a draft to its first approver. Only the creator may submit.
func (s *Service) Submit(ctx context.Context, tenantID string, req SubmitRequest) (*Document, error) {
	if strings.TrimSpace(req.DocumentID) == "" || strings.TrimSpace(req.ActorID) == "" {
		return nil, ErrInvalidInput
	}

	doc, err := s.commitWithRetry(ctx, tenantID, req.DocumentID, func(current *Document, policy *routing.Policy) (transition, error) {
		if current.CreatedBy != req.ActorID && current.Status == StatusDraft {
			return transition{}, ErrNotAuthorized
		}
		next, err := s.engine.Submit(ctx, current, policy, req.NextTargetID)
		return transition{next: next}, err
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, tenantID, doc, req.ActorID, activity.TypeDocumentSubmitted, fmt.Sprintf("submitted to %s", deref(doc.CurrentApproverID)))
	s.publish(ctx, eventFor(EventSubmitted, doc, req.ActorID, ""))
	return doc, nil
}

// ApplyDecision applies one reviewer decision. A request whose idempotency
// key is already in the ledger returns the current document unchanged.
func (s *Service) ApplyDecision(ctx context.Context, tenantID string, req DecisionRequest) (*Document, error) {
	if err := ValidateDecisionRequest(req); err != nil {
		return nil, err
	}

	signatureRef := req.SignatureRef
	if len(req.Signature) > 0 {
		if s.blobs == nil {
			return nil, fmt.Errorf("blob store not configured")
		}
		ref, err := s.blobs.Put(ctx, tenantID, Blob{Kind: "signature", ContentType: req.SignatureType, Data: req.Signature})
		if err != nil {
			return nil, fmt.Errorf("storing signature: %w", err)
		}
		signatureRef = ref
	}

	replayed := false
	doc, err := s.commitWithRetry(ctx, tenantID, req.DocumentID, func(current *Document, policy *routing.Policy) (transition, error) {
		if prior := current.endorsementByKey(req.IdempotencyKey); prior != nil {
			if prior.SignerID != req.ActorID {
				return transition{}, ErrNotAuthorized
			}
			replayed = true
			return transition{next: current, unchanged: true}, nil
		}

		next, err := s.engine.Apply(ctx, current, policy, Action{
			ActorID:        req.ActorID,
			Decision:       req.Decision,
			Comment:        req.Comment,
			SignatureRef:   signatureRef,
			Placement:      req.Placement,
			NextTargetID:   req.NextTargetID,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			return transition{}, err
		}

		number := next.RegistryNumber == nil && req.Decision != DecisionReject && policy.Numbering() == routing.NumberAtFirstDecision
		return transition{next: next, number: number}, nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		s.logger.Info("duplicate decision ignored", "tenant_id", tenantID, "document_id", doc.ID, "idempotency_key", req.IdempotencyKey)
		s.logActivity(ctx, tenantID, doc, req.ActorID, activity.TypeDuplicateIgnored, fmt.Sprintf("ignored duplicate %s", req.IdempotencyKey))
		return doc, nil
	}

	if s.metrics != nil {
		s.metrics.IncDecision(string(doc.Category), string(req.Decision))
	}
	s.logActivity(ctx, tenantID, doc, req.ActorID, activity.TypeDecisionApplied, fmt.Sprintf("%s by %s, now %s", req.Decision, req.ActorID, doc.Status))
	s.publish(ctx, eventFor(EventDecided, doc, req.ActorID, req.Decision))
	return doc, nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Document, error) {
	doc, err := s.documents.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// List returns document references based on options.
func (s *Service) List(ctx context.Context, tenantID string, opts ListDocumentsOptions) ([]DocumentRef, error) {
	return s.documents.List(ctx, tenantID, opts)
}

// Search runs full-text search over titles and origin metadata.
func (s *Service) Search(ctx context.Context, tenantID, query string, opts SearchOptions) ([]SearchResult, error) {
	if s.search == nil {
		return nil, fmt.Errorf("search repository not configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	return s.search.Search(ctx, tenantID, query, opts)
}

// VerifyLedger checks the endorsement hash chain of a stored document.
func (s *Service) VerifyLedger(ctx context.Context, tenantID, id string) error {
	doc, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := Verify(doc.Endorsements); err != nil {
		s.logger.Error("ledger verification failed", "tenant_id", tenantID, "document_id", id, "error", err)
		return err
	}
	return nil
}

// transition is the outcome of a mutation. number asks the commit to issue
// the document's registry number.
type transition struct {
	next      *Document
	unchanged bool
	number    bool
}

type mutation func(current *Document, policy *routing.Policy) (transition, error)

// commitWithRetry loads the document, applies mutate and commits against the
// loaded version. A lost race reloads and re-evaluates against fresh state.
func (s *Service) commitWithRetry(ctx context.Context, tenantID, id string, mutate mutation) (*Document, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		current, err := s.Get(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		policy, err := s.policies.Policy(ctx, tenantID, string(current.Category))
		if err != nil {
			return nil, err
		}

		t, err := mutate(current, policy)
		if err != nil {
			return nil, err
		}
		if t.unchanged {
			return current, nil
		}
		next := t.next
		next.Version = current.Version + 1

		if t.number {
			err = s.storeNumbered(ctx, tenantID, next, func(d *Document) error {
				return s.documents.Commit(ctx, tenantID, d, current.Version)
			}, func(repo NumberedRepository, d *Document, plan registry.Plan) error {
				return repo.CommitNumbered(ctx, tenantID, d, current.Version, plan)
			})
		} else {
			err = s.documents.Commit(ctx, tenantID, next, current.Version)
		}
		if err == nil {
			return next, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		if !errors.Is(err, repository.ErrConflict) && !errors.Is(err, repository.ErrDuplicate) {
			if errors.Is(err, registry.ErrAllocationExhausted) {
				return nil, err
			}
			return nil, fmt.Errorf("committing document: %w", err)
		}

		s.logger.Debug("document commit lost race", "tenant_id", tenantID, "document_id", id, "attempt", attempt+1)
		if s.metrics != nil {
			s.metrics.IncConflict(string(current.Category))
		}
		s.logActivity(ctx, tenantID, current, "", activity.TypeConflictRetried, fmt.Sprintf("retrying after concurrent update (attempt %d)", attempt+1))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, ErrConcurrentModification
}

func (s *Service) storeNew(ctx context.Context, tenantID string, doc *Document) error {
	if err := s.documents.Create(ctx, tenantID, doc); err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

// storeNumbered writes doc together with a freshly issued registry number.
// A numbered repository issues the number inside its own transaction, and a
// failed write then consumes nothing. Otherwise a number is reserved
// from the allocator first and handed back when the write fails.
func (s *Service) storeNumbered(
	ctx context.Context,
	tenantID string,
	doc *Document,
	write func(*Document) error,
	writeNumbered func(NumberedRepository, *Document, registry.Plan) error,
) error {
	if s.numbers == nil {
		return fmt.Errorf("number allocator not configured")
	}
	category := string(doc.Category)

	if s.numbered != nil {
		plan, err := s.numbers.Plan(category, doc.ScopeKey)
		if err != nil {
			return fmt.Errorf("allocating registry number: %w", err)
		}
		doc.RegistryNumber = nil
		if err := writeNumbered(s.numbered, doc, plan); err != nil {
			if errors.Is(err, repository.ErrExhausted) {
				s.logger.Warn("registry sequence exhausted", "tenant_id", tenantID, "category", category, "scope", doc.ScopeKey)
				return registry.ErrAllocationExhausted
			}
			return err
		}
		s.numberIssued(ctx, tenantID, doc)
		return nil
	}

	r, err := s.numbers.Reserve(ctx, tenantID, category, doc.ScopeKey)
	if err != nil {
		if errors.Is(err, registry.ErrAllocationExhausted) {
			return err
		}
		return fmt.Errorf("allocating registry number: %w", err)
	}
	number := r.Number
	doc.RegistryNumber = &number
	if err := write(doc); err != nil {
		doc.RegistryNumber = nil
		s.releaseNumber(ctx, tenantID, doc, r)
		return err
	}
	s.logActivity(ctx, tenantID, doc, "", activity.TypeNumberAllocated, fmt.Sprintf("allocated %s", number))
	return nil
}

func (s *Service) numberIssued(ctx context.Context, tenantID string, doc *Document) {
	number := deref(doc.RegistryNumber)
	s.numbers.Issued(tenantID, string(doc.Category), number)
	s.logActivity(ctx, tenantID, doc, "", activity.TypeNumberAllocated, fmt.Sprintf("allocated %s", number))
}

// releaseNumber hands back a reservation whose write failed. When a later
// number was already issued the reservation stays consumed and is recorded
// as voided so the registry shows the gap.
func (s *Service) releaseNumber(ctx context.Context, tenantID string, doc *Document, r registry.Reservation) {
	// The write may have failed because ctx ended; cleanup still has to run.
	ctx = context.WithoutCancel(ctx)
	released, err := s.numbers.Release(ctx, tenantID, r)
	if err != nil {
		s.logger.Warn("registry number release failed", "tenant_id", tenantID, "document_id", doc.ID, "number", r.Number, "error", err)
	}
	if released {
		return
	}
	s.logger.Warn("registry number voided", "tenant_id", tenantID, "document_id", doc.ID, "number", r.Number)
	s.logActivity(ctx, tenantID, doc, "", activity.TypeNumberVoided, fmt.Sprintf("voided %s", r.Number))
}

func (s *Service) logActivity(ctx context.Context, tenantID string, doc *Document, actorID string, t activity.ActivityType, summary string) {
	if s.activities == nil {
		return
	}
	entry := &activity.ActivityEntry{
		DocumentID:   &doc.ID,
		ActivityType: t,
		Summary:      summary,
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	if err := s.activities.Log(ctx, tenantID, entry); err != nil {
		s.logger.Warn("activity log failed", "tenant_id", tenantID, "document_id", doc.ID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "tenant_id", event.TenantID, "document_id", event.DocumentID, "type", event.Type, "error", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
