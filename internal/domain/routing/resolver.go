package routing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rpggio/saraban/internal/repository"
)

// Resolver answers routing questions for the engine: which policy applies,
// who is eligible for a stage and whether a requested target is acceptable.
type Resolver struct {
	directory Directory
	policies  PolicyStore
	logger    *slog.Logger
}

// NewResolver creates a new routing resolver.
func NewResolver(directory Directory, policies PolicyStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{directory: directory, policies: policies, logger: logger}
}

// Policy returns the validated policy for a category.
func (r *Resolver) Policy(ctx context.Context, tenantID, category string) (*Policy, error) {
	policy, err := r.policies.PolicyFor(ctx, tenantID, category)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("policy for %s: %w", category, err)
	}
	return policy, nil
}

// Person looks up a directory entry.
func (r *Resolver) Person(ctx context.Context, tenantID, id string) (*Person, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrPersonNotFound
	}
	person, err := r.directory.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("loading person: %w", err)
	}
	return person, nil
}

// Eligible lists the people matching a stage filter.
func (r *Resolver) Eligible(ctx context.Context, tenantID string, filter RoleFilter) ([]Person, error) {
	people, err := r.directory.FindByRole(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing eligible people: %w", err)
	}
	return people, nil
}

// ResolveTarget picks the next approver for a stage. A requested target must
// be among the eligible people; without one, resolution succeeds only when
// exactly one person is eligible.
func (r *Resolver) ResolveTarget(ctx context.Context, tenantID string, filter RoleFilter, requested *string) (*Person, error) {
	eligible, err := r.Eligible(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	if requested != nil && strings.TrimSpace(*requested) != "" {
		for i := range eligible {
			if eligible[i].ID == *requested {
				return &eligible[i], nil
			}
		}
		r.logger.Debug("target not eligible", "target", *requested, "roles", filter.Roles)
		return nil, ErrInvalidTarget
	}

	switch len(eligible) {
	case 0:
		return nil, ErrNoEligibleApprover
	case 1:
		return &eligible[0], nil
	default:
		return nil, ErrAmbiguousTarget
	}
}

// ResolveDelegate validates a delegation target. Delegation always names a
// specific person, who must exist, differ from the delegator and satisfy the
// policy's delegate filter when one is configured.
func (r *Resolver) ResolveDelegate(ctx context.Context, tenantID string, policy *Policy, actorID string, requested *string) (*Person, error) {
	if requested == nil || strings.TrimSpace(*requested) == "" {
		return nil, ErrAmbiguousTarget
	}
	if *requested == actorID {
		return nil, ErrInvalidTarget
	}

	person, err := r.Person(ctx, tenantID, *requested)
	if err != nil {
		if errors.Is(err, ErrPersonNotFound) {
			return nil, ErrInvalidTarget
		}
		return nil, err
	}

	if policy != nil && policy.DelegateFilter != nil && !policy.DelegateFilter.Matches(*person) {
		return nil, ErrInvalidTarget
	}
	return person, nil
}
