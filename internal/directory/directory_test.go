package directory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rpggio/saraban/internal/directory"
	"github.com/rpggio/saraban/internal/domain/routing"
	"github.com/rpggio/saraban/internal/repository"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPersonnel(t *testing.T) {
	path := writeFile(t, "personnel.yaml", `
people:
  - id: director-y
    name: Wilai
    position: Director
    roles: [director]
  - id: head-sci
    tenant: school1
    name: Malee
    position: Head of Science
    department: science
    roles: [head, teacher]
  - id: head-math
    tenant: school2
    name: Narong
    position: Head of Maths
    department: maths
    roles: [head]
`)
	dir, err := directory.LoadPersonnel(path)
	require.NoError(t, err)
	ctx := context.Background()

	person, err := dir.FindByID(ctx, "school1", "head-sci")
	require.NoError(t, err)
	require.Equal(t, "Head of Science", person.Position)

	_, err = dir.FindByID(ctx, "school1", "head-math")
	require.ErrorIs(t, err, repository.ErrNotFound)

	shared, err := dir.FindByID(ctx, "school2", "director-y")
	require.NoError(t, err)
	require.Equal(t, "Wilai", shared.Name)

	heads, err := dir.FindByRole(ctx, "school1", routing.RoleFilter{Roles: []string{"head"}})
	require.NoError(t, err)
	require.Len(t, heads, 1)
	require.Equal(t, "head-sci", heads[0].ID)

	none, err := dir.FindByRole(ctx, "school1", routing.RoleFilter{Roles: []string{"head"}, Department: "maths"})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestLoadPersonnel_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing id":   "people:\n  - name: Nobody\n    roles: [clerk]\n",
		"duplicate id": "people:\n  - id: a\n    roles: [clerk]\n  - id: a\n    roles: [head]\n",
		"bad yaml":     "people: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := directory.LoadPersonnel(writeFile(t, "personnel.yaml", content))
			require.Error(t, err)
		})
	}

	_, err := directory.LoadPersonnel(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestDefaultPolicies(t *testing.T) {
	store := directory.NewPolicies(directory.DefaultPolicies())
	ctx := context.Background()

	for _, category := range []string{"internal_proposal", "incoming_letter", "order", "outgoing_letter"} {
		policy, err := store.PolicyFor(ctx, "school1", category)
		require.NoError(t, err, category)
		require.NoError(t, policy.Validate(), category)
	}

	proposal, err := store.PolicyFor(ctx, "school1", "internal_proposal")
	require.NoError(t, err)
	require.Equal(t, routing.ModeSequentialFixed, proposal.Mode)
	require.Len(t, proposal.Stages, 3)
	require.Equal(t, routing.NumberAtFirstDecision, proposal.Numbering())

	incoming, err := store.PolicyFor(ctx, "school1", "incoming_letter")
	require.NoError(t, err)
	require.Equal(t, routing.OutcomeDistributed, incoming.DirectApprovalOutcome())

	_, err = store.PolicyFor(ctx, "school1", "circular")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLoadPolicies_OverridesDefaults(t *testing.T) {
	path := writeFile(t, "policies.yaml", `
policies:
  - category: order
    mode: top_down_delegation
    top_authority:
      role: director
      filter:
        roles: [director]
    delegate_filter:
      roles: [officer]
    number_at: first_decision
    direct_approval: distributed
`)
	store, err := directory.LoadPolicies(path)
	require.NoError(t, err)

	order, err := store.PolicyFor(context.Background(), "school1", "order")
	require.NoError(t, err)
	require.Equal(t, routing.NumberAtFirstDecision, order.Numbering())
	require.Equal(t, routing.OutcomeDistributed, order.DirectApprovalOutcome())
	require.NotNil(t, order.DelegateFilter)

	_, err = store.PolicyFor(context.Background(), "school1", "internal_proposal")
	require.NoError(t, err)
}

func TestLoadPolicies_RejectsInvalid(t *testing.T) {
	path := writeFile(t, "policies.yaml", `
policies:
  - category: memo
    mode: sequential_fixed
`)
	_, err := directory.LoadPolicies(path)
	require.ErrorIs(t, err, routing.ErrInvalidPolicy)
}
