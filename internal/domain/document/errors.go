package document

import (
	"errors"

	"github.com/rpggio/saraban/internal/domain/routing"
)

var (
	// ErrDocumentNotFound indicates the document doesn't exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrNotAuthorized indicates the actor is not the current approver.
	ErrNotAuthorized = errors.New("actor is not the current approver")
	// ErrAlreadyFinalized indicates the document reached a terminal status.
	ErrAlreadyFinalized = errors.New("document already finalized")
	// ErrNotSubmitted indicates a decision on a draft.
	ErrNotSubmitted = errors.New("document not submitted")
	// ErrAlreadySubmitted indicates a second submission.
	ErrAlreadySubmitted = errors.New("document already submitted")
	// ErrInvalidDecision indicates a decision the routing mode does not allow.
	ErrInvalidDecision = errors.New("decision not allowed for routing mode")
	// ErrInvalidPlacement indicates placement coordinates out of range.
	ErrInvalidPlacement = errors.New("invalid endorsement placement")
	// ErrLedgerTampered indicates the endorsement hash chain does not verify.
	ErrLedgerTampered = errors.New("endorsement ledger hash chain broken")
	// ErrConcurrentModification indicates the document kept changing under
	// the caller until retries ran out.
	ErrConcurrentModification = errors.New("document modified concurrently")
	// ErrInvalidInput indicates invalid input for document operations.
	ErrInvalidInput = errors.New("invalid document input")

	ErrAmbiguousTarget    = routing.ErrAmbiguousTarget
	ErrInvalidTarget      = routing.ErrInvalidTarget
	ErrNoEligibleApprover = routing.ErrNoEligibleApprover
)
