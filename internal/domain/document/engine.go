package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/saraban/internal/domain/routing"
)

const delegateRole = "delegate"

// Action is one reviewer decision as seen by the engine.
type Action struct {
	ActorID        string
	Decision       Decision
	Comment        string
	SignatureRef   string
	Placement      *Placement
	NextTargetID   *string
	IdempotencyKey string
}

// Engine computes document transitions. It never mutates its input; every
// call returns a fresh document or an error.
type Engine struct {
	resolver TargetResolver
	now      func() time.Time
	newID    func() string
}

// NewEngine creates a routing engine backed by resolver.
func NewEngine(resolver TargetResolver) *Engine {
	return &Engine{resolver: resolver, now: time.Now, newID: uuid.NewString}
}

// Submit moves a draft to the first approver of its policy.
func (e *Engine) Submit(ctx context.Context, doc *Document, policy *routing.Policy, nextTarget *string) (*Document, error) {
	if doc.Status.Terminal() {
		return nil, ErrAlreadyFinalized
	}
	if doc.Status != StatusDraft {
		return nil, ErrAlreadySubmitted
	}

	target, err := e.resolver.ResolveTarget(ctx, doc.TenantID, policy.EntryFilter(), nextTarget)
	if err != nil {
		return nil, err
	}

	next := doc.Clone()
	next.Status = StatusSubmitted
	next.StageIndex = 0
	next.CurrentApproverID = &target.ID
	next.addRecipient(target.ID)
	next.ModifiedAt = e.now().UTC()
	return next, nil
}

// Apply evaluates one decision against doc under policy.
func (e *Engine) Apply(ctx context.Context, doc *Document, policy *routing.Policy, act Action) (*Document, error) {
	if doc.Status.Terminal() {
		return nil, ErrAlreadyFinalized
	}
	if doc.Status == StatusDraft {
		return nil, ErrNotSubmitted
	}
	if doc.CurrentApproverID == nil || *doc.CurrentApproverID != act.ActorID {
		return nil, ErrNotAuthorized
	}
	if !act.Decision.Valid() {
		return nil, ErrInvalidDecision
	}
	if err := ValidatePlacement(act.Placement); err != nil {
		return nil, err
	}

	signer, err := e.resolver.Person(ctx, doc.TenantID, act.ActorID)
	if err != nil {
		return nil, fmt.Errorf("loading signer: %w", err)
	}

	next := doc.Clone()
	var delegateTarget *string

	switch act.Decision {
	case DecisionReject:
		next.Status = StatusRejected
		next.CurrentApproverID = nil
	case DecisionApprove:
		if err := e.approve(ctx, next, policy, act); err != nil {
			return nil, err
		}
	case DecisionDelegate:
		if policy.Mode != routing.ModeTopDownDelegation {
			return nil, ErrInvalidDecision
		}
		target, err := e.resolver.ResolveDelegate(ctx, doc.TenantID, policy, act.ActorID, act.NextTargetID)
		if err != nil {
			return nil, err
		}
		next.Status = StatusDelegated
		next.StageIndex++
		next.CurrentApproverID = &target.ID
		next.addRecipient(target.ID)
		delegateTarget = &target.ID
	}

	next.addRecipient(act.ActorID)

	ledger, err := Append(next.Endorsements, Endorsement{
		ID:               e.newID(),
		DocumentID:       doc.ID,
		StageIndex:       doc.StageIndex,
		StageRole:        stageRole(doc, policy),
		SignerID:         signer.ID,
		SignerName:       signer.Name,
		SignerPosition:   signer.Position,
		Decision:         act.Decision,
		Comment:          act.Comment,
		SignatureRef:     act.SignatureRef,
		Placement:        act.Placement,
		DelegateTargetID: delegateTarget,
		IdempotencyKey:   act.IdempotencyKey,
		CreatedAt:        e.now(),
	})
	if err != nil {
		return nil, err
	}
	next.Endorsements = ledger
	next.ModifiedAt = ledger[len(ledger)-1].CreatedAt
	return next, nil
}

func (e *Engine) approve(ctx context.Context, next *Document, policy *routing.Policy, act Action) error {
	named := act.NextTargetID != nil && strings.TrimSpace(*act.NextTargetID) != ""

	switch policy.Mode {
	case routing.ModeSequentialFixed:
		if policy.IsLastStage(next.StageIndex) {
			if named {
				return ErrInvalidTarget
			}
			next.Status = StatusCompleted
			next.CurrentApproverID = nil
			return nil
		}
		stage, ok := policy.StageAt(next.StageIndex + 1)
		if !ok {
			return fmt.Errorf("stage %d: %w", next.StageIndex+1, routing.ErrInvalidPolicy)
		}
		target, err := e.resolver.ResolveTarget(ctx, next.TenantID, stage.Filter, act.NextTargetID)
		if err != nil {
			return err
		}
		next.StageIndex++
		next.Status = StatusInProgress
		next.CurrentApproverID = &target.ID
		next.addRecipient(target.ID)
	case routing.ModeTopDownDelegation:
		// Forwarding under delegation is a DELEGATE decision, never an approval.
		if named {
			return ErrInvalidTarget
		}
		if next.Status == StatusDelegated {
			next.Status = StatusDistributed
		} else if policy.DirectApprovalOutcome() == routing.OutcomeDistributed {
			next.Status = StatusDistributed
		} else {
			next.Status = StatusCompleted
		}
		next.CurrentApproverID = nil
	default:
		return routing.ErrInvalidPolicy
	}
	return nil
}

func stageRole(doc *Document, policy *routing.Policy) string {
	if policy.Mode == routing.ModeTopDownDelegation {
		if doc.Status == StatusDelegated {
			return delegateRole
		}
		return policy.TopAuthority.Role
	}
	if stage, ok := policy.StageAt(doc.StageIndex); ok {
		return stage.Role
	}
	return ""
}
