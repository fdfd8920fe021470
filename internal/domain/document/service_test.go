package document_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/saraban/internal/domain/activity"
	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/repository"
	"github.com/rpggio/saraban/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func submittedProposal(t *testing.T) *document.Document {
	t.Helper()
	resolver := testResolver()
	doc := submitted(t, document.NewEngine(resolver), policyFor(t, resolver, document.CategoryInternalProposal), document.CategoryInternalProposal)
	doc.Version = 3
	return doc
}

func quietActivities() *mocks.ActivityRepository {
	activities := &mocks.ActivityRepository{}
	activities.On("Log", mock.Anything, tenantID, mock.Anything).Return(nil)
	return activities
}

func memoPlan() registry.Plan {
	return registry.Plan{
		Key:      registry.Key{Category: "internal_proposal", ScopeKey: "2568"},
		Template: registry.DefaultTemplates()["internal_proposal"],
	}
}

func memoReservation(seq int64) registry.Reservation {
	plan := memoPlan()
	return registry.Reservation{Key: plan.Key, Seq: seq, Number: plan.Format(seq)}
}

func loggedTypes(activities *mocks.ActivityRepository) []activity.ActivityType {
	var types []activity.ActivityType
	for _, call := range activities.Calls {
		if call.Method == "Log" {
			types = append(types, call.Arguments.Get(2).(*activity.ActivityEntry).ActivityType)
		}
	}
	return types
}

func TestDocumentService_ApplyDecision_RetriesAfterConflict(t *testing.T) {
	ctx := context.Background()
	stored := submittedProposal(t)

	docs := &mocks.DocumentRepository{}
	numbers := &mocks.NumberAllocator{}
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	docs.On("Commit", ctx, tenantID, mock.Anything, int64(3)).Return(repository.ErrConflict).Once()
	docs.On("Commit", ctx, tenantID, mock.Anything, int64(3)).Return(nil).Once()
	numbers.On("Reserve", ctx, tenantID, "internal_proposal", "2568").Return(memoReservation(1), nil)
	numbers.On("Release", mock.Anything, tenantID, memoReservation(1)).Return(true, nil).Once()

	svc := document.NewService(docs, testResolver(), numbers, quietActivities(), nil)
	doc, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{
		DocumentID:   stored.ID,
		ActorID:      "head",
		Decision:     document.DecisionApprove,
		NextTargetID: strPtr("deputy-x"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), doc.Version)
	require.Equal(t, "deputy-x", *doc.CurrentApproverID)
	require.Equal(t, "MEMO 0001/2568", *doc.RegistryNumber)
	require.Len(t, doc.Endorsements, 1)

	docs.AssertNumberOfCalls(t, "Commit", 2)
	numbers.AssertNumberOfCalls(t, "Reserve", 2)
	numbers.AssertNumberOfCalls(t, "Release", 1)
}

func TestDocumentService_ApplyDecision_FailedCommitReleasesNumber(t *testing.T) {
	ctx := context.Background()
	stored := submittedProposal(t)

	docs := &mocks.DocumentRepository{}
	numbers := &mocks.NumberAllocator{}
	activities := quietActivities()
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	docs.On("Commit", ctx, tenantID, mock.Anything, int64(3)).Return(repository.ErrConflict)
	numbers.On("Reserve", ctx, tenantID, "internal_proposal", "2568").Return(memoReservation(1), nil)
	numbers.On("Release", mock.Anything, tenantID, memoReservation(1)).Return(true, nil)

	svc := document.NewService(docs, testResolver(), numbers, activities, nil, document.WithMaxRetries(2))
	_, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{
		DocumentID:   stored.ID,
		ActorID:      "head",
		Decision:     document.DecisionApprove,
		NextTargetID: strPtr("deputy-x"),
	})
	require.ErrorIs(t, err, document.ErrConcurrentModification)
	numbers.AssertNumberOfCalls(t, "Reserve", 2)
	numbers.AssertNumberOfCalls(t, "Release", 2)
	require.NotContains(t, loggedTypes(activities), activity.TypeNumberVoided)
	require.NotContains(t, loggedTypes(activities), activity.TypeNumberAllocated)
}

func TestDocumentService_ApplyDecision_UnreleasableNumberIsVoided(t *testing.T) {
	ctx := context.Background()
	stored := submittedProposal(t)

	docs := &mocks.DocumentRepository{}
	numbers := &mocks.NumberAllocator{}
	activities := quietActivities()
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	docs.On("Commit", ctx, tenantID, mock.Anything, int64(3)).Return(errors.New("disk full"))
	numbers.On("Reserve", ctx, tenantID, "internal_proposal", "2568").Return(memoReservation(4), nil)
	numbers.On("Release", mock.Anything, tenantID, memoReservation(4)).Return(false, nil)

	svc := document.NewService(docs, testResolver(), numbers, activities, nil)
	_, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{
		DocumentID:   stored.ID,
		ActorID:      "head",
		Decision:     document.DecisionApprove,
		NextTargetID: strPtr("deputy-x"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Equal(t, []activity.ActivityType{activity.TypeNumberVoided}, loggedTypes(activities))
}

func TestDocumentService_ApplyDecision_ReleaseOutlivesCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stored := submittedProposal(t)
	live := mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil })

	docs := &mocks.DocumentRepository{}
	numbers := &mocks.NumberAllocator{}
	activities := &mocks.ActivityRepository{}
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	docs.On("Commit", ctx, tenantID, mock.Anything, int64(3)).
		Run(func(mock.Arguments) { cancel() }).
		Return(context.Canceled)
	numbers.On("Reserve", ctx, tenantID, "internal_proposal", "2568").Return(memoReservation(2), nil)
	numbers.On("Release", live, tenantID, memoReservation(2)).Return(false, nil).Once()
	activities.On("Log", live, tenantID, mock.Anything).Return(nil).Once()

	svc := document.NewService(docs, testResolver(), numbers, activities, nil)
	_, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{
		DocumentID:   stored.ID,
		ActorID:      "head",
		Decision:     document.DecisionApprove,
		NextTargetID: strPtr("deputy-x"),
	})
	require.ErrorIs(t, err, context.Canceled)
	numbers.AssertExpectations(t)
	require.Equal(t, []activity.ActivityType{activity.TypeNumberVoided}, loggedTypes(activities))
}

func TestDocumentService_ApplyDecision_RejectDoesNotNumber(t *testing.T) {
	ctx := context.Background()
	stored := submittedProposal(t)

	docs := &mocks.DocumentRepository{}
	numbers := &mocks.NumberAllocator{}
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	docs.On("Commit", ctx, tenantID, mock.Anything, int64(3)).Return(nil)

	svc := document.NewService(docs, testResolver(), numbers, nil, nil)
	doc, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{
		DocumentID: stored.ID,
		ActorID:    "head",
		Decision:   document.DecisionReject,
	})
	require.NoError(t, err)
	require.Equal(t, document.StatusRejected, doc.Status)
	require.Nil(t, doc.RegistryNumber)
	numbers.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_ApplyDecision_NumbersInsideCommit(t *testing.T) {
	ctx := context.Background()
	stored := submittedProposal(t)

	docs := &mocks.DocumentRepository{}
	numbered := &mocks.NumberedRepository{}
	numbers := &mocks.NumberAllocator{}
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	numbered.On("CommitNumbered", ctx, tenantID, mock.Anything, int64(3), memoPlan()).
		Return(repository.ErrConflict).Once()
	numbered.On("CommitNumbered", ctx, tenantID, mock.Anything, int64(3), memoPlan()).
		Run(func(args mock.Arguments) {
			number := memoPlan().Format(1)
			args.Get(2).(*document.Document).RegistryNumber = &number
		}).
		Return(nil).Once()
	numbers.On("Plan", "internal_proposal", "2568").Return(memoPlan(), nil)
	numbers.On("Issued", tenantID, "internal_proposal", "MEMO 0001/2568").Return().Once()

	svc := document.NewService(docs, testResolver(), numbers, quietActivities(), nil, document.WithNumberedRepository(numbered))
	doc, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{
		DocumentID:   stored.ID,
		ActorID:      "head",
		Decision:     document.DecisionApprove,
		NextTargetID: strPtr("deputy-x"),
	})
	require.NoError(t, err)
	require.Equal(t, "MEMO 0001/2568", *doc.RegistryNumber)
	docs.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	numbers.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	numbers.AssertNumberOfCalls(t, "Issued", 1)
}

func TestDocumentService_ApplyDecision_RetriesExhausted(t *testing.T) {
	ctx := context.Background()
	stored := submittedProposal(t)
	number := "MEMO 0009/2568"
	stored.RegistryNumber = &number

	docs := &mocks.DocumentRepository{}
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	docs.On("Commit", ctx, tenantID, mock.Anything, int64(3)).Return(repository.ErrConflict)

	svc := document.NewService(docs, testResolver(), nil, nil, nil, document.WithMaxRetries(3))
	_, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{
		DocumentID: stored.ID,
		ActorID:    "head",
		Decision:   document.DecisionReject,
	})
	require.ErrorIs(t, err, document.ErrConcurrentModification)
	docs.AssertNumberOfCalls(t, "Commit", 3)
}

func TestDocumentService_ApplyDecision_IdempotentReplay(t *testing.T) {
	ctx := context.Background()
	resolver := testResolver()
	stored := submittedProposal(t)
	stored, err := document.NewEngine(resolver).Apply(ctx, stored, policyFor(t, resolver, document.CategoryInternalProposal), document.Action{
		ActorID:        "head",
		Decision:       document.DecisionApprove,
		NextTargetID:   strPtr("deputy-x"),
		IdempotencyKey: "req-1",
	})
	require.NoError(t, err)

	docs := &mocks.DocumentRepository{}
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)

	svc := document.NewService(docs, resolver, nil, quietActivities(), nil)
	doc, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{
		DocumentID:     stored.ID,
		ActorID:        "head",
		Decision:       document.DecisionApprove,
		NextTargetID:   strPtr("deputy-x"),
		IdempotencyKey: "req-1",
	})
	require.NoError(t, err)
	require.Len(t, doc.Endorsements, 1)
	require.Equal(t, "deputy-x", *doc.CurrentApproverID)
	docs.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_ApplyDecision_NotFound(t *testing.T) {
	ctx := context.Background()
	docs := &mocks.DocumentRepository{}
	docs.On("Get", ctx, tenantID, "missing").Return(nil, repository.ErrNotFound)

	svc := document.NewService(docs, testResolver(), nil, nil, nil)
	_, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{DocumentID: "missing", ActorID: "head", Decision: document.DecisionApprove})
	require.ErrorIs(t, err, document.ErrDocumentNotFound)
}

func TestDocumentService_ApplyDecision_UploadsSignature(t *testing.T) {
	ctx := context.Background()
	resolver := testResolver()
	stored := submitted(t, document.NewEngine(resolver), policyFor(t, resolver, document.CategoryOrder), document.CategoryOrder)

	docs := &mocks.DocumentRepository{}
	blobs := &mocks.BlobStore{}
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	docs.On("Commit", ctx, tenantID, mock.Anything, int64(1)).Return(nil)
	blobs.On("Put", ctx, tenantID, document.Blob{Kind: "signature", ContentType: "image/png", Data: []byte("png")}).Return("blob:abc", nil)

	svc := document.NewService(docs, resolver, nil, nil, nil, document.WithBlobStore(blobs))
	doc, err := svc.ApplyDecision(ctx, tenantID, document.DecisionRequest{
		DocumentID:    stored.ID,
		ActorID:       "director-y",
		Decision:      document.DecisionApprove,
		Signature:     []byte("png"),
		SignatureType: "image/png",
		Placement:     &document.Placement{XPercent: 70, YPercent: 90, Scale: 1.2},
	})
	require.NoError(t, err)
	require.Equal(t, document.StatusCompleted, doc.Status)
	require.Equal(t, "blob:abc", doc.Endorsements[0].SignatureRef)
}

func TestDocumentService_Create_NumbersAtCreation(t *testing.T) {
	ctx := context.Background()
	docs := &mocks.DocumentRepository{}
	numbers := &mocks.NumberAllocator{}
	events := &mocks.EventPublisher{}
	docs.On("Create", ctx, tenantID, mock.Anything).Return(nil)
	numbers.On("Reserve", ctx, tenantID, "order", "2568").Return(registry.Reservation{
		Key:    registry.Key{Category: "order", ScopeKey: "2568"},
		Seq:    7,
		Number: "ORD 007/2568",
	}, nil)
	events.On("Publish", ctx, mock.Anything).Return(errors.New("nats down"))

	svc := document.NewService(docs, testResolver(), numbers, quietActivities(), nil, document.WithEventPublisher(events))
	doc, err := svc.Create(ctx, tenantID, document.CreateRequest{
		Category:  document.CategoryOrder,
		Title:     "Appoint exam committee",
		CreatedBy: "clerk",
		ScopeKey:  "2568",
	})
	require.NoError(t, err)
	require.Equal(t, document.StatusDraft, doc.Status)
	require.Equal(t, "ORD 007/2568", *doc.RegistryNumber)
	require.Equal(t, int64(1), doc.Version)
	require.Empty(t, doc.Recipients)
	events.AssertNumberOfCalls(t, "Publish", 1)
}

func TestDocumentService_Create_FailedInsertReleasesNumber(t *testing.T) {
	ctx := context.Background()
	docs := &mocks.DocumentRepository{}
	numbers := &mocks.NumberAllocator{}
	reservation := registry.Reservation{
		Key:    registry.Key{Category: "order", ScopeKey: "2568"},
		Seq:    8,
		Number: "ORD 008/2568",
	}
	docs.On("Create", ctx, tenantID, mock.Anything).Return(errors.New("db locked"))
	numbers.On("Reserve", ctx, tenantID, "order", "2568").Return(reservation, nil)
	numbers.On("Release", mock.Anything, tenantID, reservation).Return(true, nil).Once()

	svc := document.NewService(docs, testResolver(), numbers, nil, nil)
	_, err := svc.Create(ctx, tenantID, document.CreateRequest{
		Category:  document.CategoryOrder,
		Title:     "Appoint exam committee",
		CreatedBy: "clerk",
		ScopeKey:  "2568",
	})
	require.Error(t, err)
	numbers.AssertExpectations(t)
}

func TestDocumentService_Create_ExhaustedSequence(t *testing.T) {
	ctx := context.Background()
	docs := &mocks.DocumentRepository{}
	numbered := &mocks.NumberedRepository{}
	numbers := &mocks.NumberAllocator{}
	plan := registry.Plan{Key: registry.Key{Category: "order", ScopeKey: "2568"}, Template: registry.DefaultTemplates()["order"]}
	numbers.On("Plan", "order", "2568").Return(plan, nil)
	numbered.On("CreateNumbered", ctx, tenantID, mock.Anything, plan).Return(repository.ErrExhausted)

	svc := document.NewService(docs, testResolver(), numbers, nil, nil, document.WithNumberedRepository(numbered))
	_, err := svc.Create(ctx, tenantID, document.CreateRequest{
		Category:  document.CategoryOrder,
		Title:     "Appoint exam committee",
		CreatedBy: "clerk",
		ScopeKey:  "2568",
	})
	require.ErrorIs(t, err, registry.ErrAllocationExhausted)
	numbers.AssertNotCalled(t, "Issued", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_Create_PreassignedNumber(t *testing.T) {
	ctx := context.Background()
	docs := &mocks.DocumentRepository{}
	numbers := &mocks.NumberAllocator{}
	docs.On("Create", ctx, tenantID, mock.Anything).Return(nil)

	svc := document.NewService(docs, testResolver(), numbers, nil, nil)
	doc, err := svc.Create(ctx, tenantID, document.CreateRequest{
		Category:       document.CategoryIncomingLetter,
		Title:          "Letter from district office",
		OriginMeta:     map[string]string{"sender": "District Office"},
		CreatedBy:      "clerk",
		ScopeKey:       "2568",
		RegistryNumber: strPtr("EXT 55/2568"),
	})
	require.NoError(t, err)
	require.Equal(t, "EXT 55/2568", *doc.RegistryNumber)
	numbers.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_Create_InvalidInput(t *testing.T) {
	svc := document.NewService(&mocks.DocumentRepository{}, testResolver(), nil, nil, nil)

	_, err := svc.Create(context.Background(), tenantID, document.CreateRequest{Category: "memo", Title: "x", CreatedBy: "clerk"})
	require.ErrorIs(t, err, document.ErrInvalidInput)

	_, err = svc.Create(context.Background(), tenantID, document.CreateRequest{Category: document.CategoryOrder, Title: " ", CreatedBy: "clerk"})
	require.ErrorIs(t, err, document.ErrInvalidInput)
}

func TestDocumentService_Submit(t *testing.T) {
	ctx := context.Background()
	stored := draft(document.CategoryInternalProposal)

	docs := &mocks.DocumentRepository{}
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	docs.On("Commit", ctx, tenantID, mock.Anything, int64(1)).Return(nil)

	svc := document.NewService(docs, testResolver(), nil, nil, nil)

	_, err := svc.Submit(ctx, tenantID, document.SubmitRequest{DocumentID: stored.ID, ActorID: "head"})
	require.ErrorIs(t, err, document.ErrNotAuthorized)

	doc, err := svc.Submit(ctx, tenantID, document.SubmitRequest{DocumentID: stored.ID, ActorID: "clerk"})
	require.NoError(t, err)
	require.Equal(t, document.StatusSubmitted, doc.Status)
	require.Equal(t, "head", *doc.CurrentApproverID)
	require.Equal(t, []string{"head"}, doc.Recipients)
	require.Equal(t, int64(2), doc.Version)
}

func TestDocumentService_VerifyLedger(t *testing.T) {
	ctx := context.Background()
	resolver := testResolver()
	stored := submittedProposal(t)
	stored, err := document.NewEngine(resolver).Apply(ctx, stored, policyFor(t, resolver, document.CategoryInternalProposal), document.Action{
		ActorID: "head", Decision: document.DecisionReject,
	})
	require.NoError(t, err)

	tampered := stored.Clone()
	tampered.ID = "tampered"
	tampered.Endorsements[0].Decision = document.DecisionApprove

	docs := &mocks.DocumentRepository{}
	docs.On("Get", ctx, tenantID, stored.ID).Return(stored, nil)
	docs.On("Get", ctx, tenantID, "tampered").Return(tampered, nil)

	svc := document.NewService(docs, resolver, nil, nil, nil)
	require.NoError(t, svc.VerifyLedger(ctx, tenantID, stored.ID))
	require.ErrorIs(t, svc.VerifyLedger(ctx, tenantID, "tampered"), document.ErrLedgerTampered)
}
