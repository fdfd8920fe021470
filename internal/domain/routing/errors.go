package routing

import "errors"

var (
	// ErrPolicyNotFound indicates no routing policy is configured for a category.
	ErrPolicyNotFound = errors.New("routing policy not found")
	// ErrInvalidPolicy indicates a malformed routing policy.
	ErrInvalidPolicy = errors.New("invalid routing policy")
	// ErrPersonNotFound indicates the person is not in the directory.
	ErrPersonNotFound = errors.New("person not found")
	// ErrAmbiguousTarget indicates several people are eligible and none was chosen.
	ErrAmbiguousTarget = errors.New("ambiguous routing target")
	// ErrInvalidTarget indicates the chosen target is not eligible.
	ErrInvalidTarget = errors.New("invalid routing target")
	// ErrNoEligibleApprover indicates nobody matches the stage filter.
	ErrNoEligibleApprover = errors.New("no eligible approver")
)
