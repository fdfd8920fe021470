package routing

import "slices"

// ChainMode is the routing topology a category follows.
type ChainMode string

const (
	ModeSequentialFixed   ChainMode = "sequential_fixed"
	ModeTopDownDelegation ChainMode = "top_down_delegation"
)

// NumberingPoint controls when a document receives its registry number.
type NumberingPoint string

const (
	NumberAtCreation      NumberingPoint = "creation"
	NumberAtFirstDecision NumberingPoint = "first_decision"
	NumberManual          NumberingPoint = "manual"
)

// DirectOutcome is the terminal status reached when the top authority of a
// delegation policy approves without delegating.
type DirectOutcome string

const (
	OutcomeCompleted   DirectOutcome = "completed"
	OutcomeDistributed DirectOutcome = "distributed"
)

// Person is a read-only personnel directory entry.
type Person struct {
	ID         string   `json:"id" yaml:"id"`
	TenantID   string   `json:"tenant_id,omitempty" yaml:"tenant,omitempty"`
	Name       string   `json:"name" yaml:"name"`
	Position   string   `json:"position" yaml:"position"`
	Department string   `json:"department,omitempty" yaml:"department,omitempty"`
	Roles      []string `json:"roles" yaml:"roles"`
}

// HasRole reports whether the person holds role.
func (p Person) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// RoleFilter selects the people eligible for a stage.
type RoleFilter struct {
	Roles      []string `json:"roles" yaml:"roles"`
	Department string   `json:"department,omitempty" yaml:"department,omitempty"`
}

// Matches reports whether p satisfies the filter. A person matches when they
// hold any of the listed roles and, if set, belong to the department.
func (f RoleFilter) Matches(p Person) bool {
	if f.Department != "" && f.Department != p.Department {
		return false
	}
	for _, role := range f.Roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// Empty reports whether the filter names no roles.
func (f RoleFilter) Empty() bool {
	return len(f.Roles) == 0
}

// Stage is one step of a routing chain.
type Stage struct {
	Role   string     `json:"role" yaml:"role"`
	Filter RoleFilter `json:"filter" yaml:"filter"`
}

// Policy is the routing configuration of one document category.
type Policy struct {
	Category       string         `json:"category" yaml:"category"`
	Mode           ChainMode      `json:"mode" yaml:"mode"`
	Stages         []Stage        `json:"stages,omitempty" yaml:"stages,omitempty"`
	TopAuthority   Stage          `json:"top_authority,omitempty" yaml:"top_authority,omitempty"`
	DelegateFilter *RoleFilter    `json:"delegate_filter,omitempty" yaml:"delegate_filter,omitempty"`
	NumberAt       NumberingPoint `json:"number_at" yaml:"number_at"`
	DirectApproval DirectOutcome  `json:"direct_approval,omitempty" yaml:"direct_approval,omitempty"`
}

// Validate checks that the policy is usable by the engine.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeSequentialFixed:
		if len(p.Stages) == 0 {
			return ErrInvalidPolicy
		}
		for _, stage := range p.Stages {
			if stage.Filter.Empty() {
				return ErrInvalidPolicy
			}
		}
	case ModeTopDownDelegation:
		if p.TopAuthority.Filter.Empty() {
			return ErrInvalidPolicy
		}
		switch p.DirectApproval {
		case "", OutcomeCompleted, OutcomeDistributed:
		default:
			return ErrInvalidPolicy
		}
	default:
		return ErrInvalidPolicy
	}
	switch p.NumberAt {
	case "", NumberAtCreation, NumberAtFirstDecision, NumberManual:
	default:
		return ErrInvalidPolicy
	}
	return nil
}

// StageAt returns the sequential stage at index i.
func (p Policy) StageAt(i int) (Stage, bool) {
	if i < 0 || i >= len(p.Stages) {
		return Stage{}, false
	}
	return p.Stages[i], true
}

// IsLastStage reports whether i is the final sequential stage.
func (p Policy) IsLastStage(i int) bool {
	return i >= len(p.Stages)-1
}

// EntryFilter returns the filter for whoever receives a freshly submitted
// document.
func (p Policy) EntryFilter() RoleFilter {
	if p.Mode == ModeTopDownDelegation {
		return p.TopAuthority.Filter
	}
	if len(p.Stages) == 0 {
		return RoleFilter{}
	}
	return p.Stages[0].Filter
}

// DirectApprovalOutcome returns the configured outcome, defaulting to completed.
func (p Policy) DirectApprovalOutcome() DirectOutcome {
	if p.DirectApproval == "" {
		return OutcomeCompleted
	}
	return p.DirectApproval
}

// Numbering returns the configured numbering point, defaulting to creation.
func (p Policy) Numbering() NumberingPoint {
	if p.NumberAt == "" {
		return NumberAtCreation
	}
	return p.NumberAt
}
