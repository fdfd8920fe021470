// Package directory provides read-only personnel and routing policy data
// loaded from YAML files maintained by school administrators.
package directory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rpggio/saraban/internal/domain/routing"
	"github.com/rpggio/saraban/internal/repository"
	"gopkg.in/yaml.v3"
)

type personnelFile struct {
	People []routing.Person `yaml:"people"`
}

// Personnel is an in-memory personnel directory.
type Personnel struct {
	mu     sync.RWMutex
	people []routing.Person
}

// NewPersonnel creates a directory from a fixed list of people.
func NewPersonnel(people []routing.Person) *Personnel {
	cp := make([]routing.Person, len(people))
	copy(cp, people)
	return &Personnel{people: cp}
}

// LoadPersonnel reads a personnel YAML file.
func LoadPersonnel(path string) (*Personnel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personnel file: %w", err)
	}
	var file personnelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse personnel file: %w", err)
	}
	seen := make(map[string]bool, len(file.People))
	for _, p := range file.People {
		if p.ID == "" {
			return nil, fmt.Errorf("personnel entry %q has no id", p.Name)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate personnel id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return NewPersonnel(file.People), nil
}

// FindByID returns a person visible to the tenant.
func (d *Personnel) FindByID(_ context.Context, tenantID, id string) (*routing.Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.people {
		if p.ID == id && visible(p, tenantID) {
			person := p
			return &person, nil
		}
	}
	return nil, repository.ErrNotFound
}

// FindByRole returns every person visible to the tenant matching filter, in
// file order.
func (d *Personnel) FindByRole(_ context.Context, tenantID string, filter routing.RoleFilter) ([]routing.Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matches []routing.Person
	for _, p := range d.people {
		if visible(p, tenantID) && filter.Matches(p) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// People entries without a tenant are shared across tenants.
func visible(p routing.Person, tenantID string) bool {
	return p.TenantID == "" || p.TenantID == tenantID
}
