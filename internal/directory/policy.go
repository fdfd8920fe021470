package directory

import (
	"context"
	"fmt"
	"os"

	"github.com/rpggio/saraban/internal/domain/routing"
	"github.com/rpggio/saraban/internal/repository"
	"gopkg.in/yaml.v3"
)

type policyFile struct {
	Policies []routing.Policy `yaml:"policies"`
}

// Policies is an in-memory routing policy store keyed by category.
type Policies struct {
	byCategory map[string]routing.Policy
}

// NewPolicies creates a store from a list of policies. Later entries replace
// earlier ones for the same category.
func NewPolicies(policies []routing.Policy) *Policies {
	byCategory := make(map[string]routing.Policy, len(policies))
	for _, p := range policies {
		byCategory[p.Category] = p
	}
	return &Policies{byCategory: byCategory}
}

// DefaultPolicies returns the routing used by schools that have not
// configured their own: proposals climb head → deputy → director, while
// correspondence and orders go to the director, who may delegate.
func DefaultPolicies() []routing.Policy {
	return []routing.Policy{
		{
			Category: "internal_proposal",
			Mode:     routing.ModeSequentialFixed,
			Stages: []routing.Stage{
				{Role: "head", Filter: routing.RoleFilter{Roles: []string{"head"}}},
				{Role: "deputy", Filter: routing.RoleFilter{Roles: []string{"deputy"}}},
				{Role: "director", Filter: routing.RoleFilter{Roles: []string{"director"}}},
			},
			NumberAt: routing.NumberAtFirstDecision,
		},
		{
			Category:       "incoming_letter",
			Mode:           routing.ModeTopDownDelegation,
			TopAuthority:   routing.Stage{Role: "director", Filter: routing.RoleFilter{Roles: []string{"director"}}},
			NumberAt:       routing.NumberAtCreation,
			DirectApproval: routing.OutcomeDistributed,
		},
		{
			Category:       "order",
			Mode:           routing.ModeTopDownDelegation,
			TopAuthority:   routing.Stage{Role: "director", Filter: routing.RoleFilter{Roles: []string{"director"}}},
			NumberAt:       routing.NumberAtCreation,
			DirectApproval: routing.OutcomeCompleted,
		},
		{
			Category: "outgoing_letter",
			Mode:     routing.ModeSequentialFixed,
			Stages: []routing.Stage{
				{Role: "director", Filter: routing.RoleFilter{Roles: []string{"director"}}},
			},
			NumberAt: routing.NumberAtFirstDecision,
		},
	}
}

// LoadPolicies reads a policy YAML file on top of the defaults.
func LoadPolicies(path string) (*Policies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	for _, p := range file.Policies {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("policy %q: %w", p.Category, err)
		}
	}
	return NewPolicies(append(DefaultPolicies(), file.Policies...)), nil
}

// PolicyFor returns the policy for category. Policies are shared by all tenants.
func (s *Policies) PolicyFor(_ context.Context, _ string, category string) (*routing.Policy, error) {
	p, ok := s.byCategory[category]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}
