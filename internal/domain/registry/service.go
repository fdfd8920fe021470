package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rpggio/saraban/internal/repository"
)

// Service allocates and previews registry numbers.
type Service struct {
	store     SequenceStore
	templates map[string]Template
	metrics   Metrics
	logger    *slog.Logger
}

// NewService creates a new registry service. Missing templates fall back to
// DefaultTemplates.
func NewService(store SequenceStore, templates map[string]Template, metrics Metrics, logger *slog.Logger) *Service {
	merged := DefaultTemplates()
	for category, tmpl := range templates {
		merged[category] = tmpl
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, templates: merged, metrics: metrics, logger: logger}
}

// Template returns the numbering template for category.
func (s *Service) Template(category string) (Template, error) {
	tmpl, ok := s.templates[category]
	if !ok {
		return Template{}, ErrUnknownCategory
	}
	return tmpl, nil
}

// Allocate issues the next registry number for (category, scopeKey).
func (s *Service) Allocate(ctx context.Context, tenantID, category, scopeKey string) (string, error) {
	r, err := s.Reserve(ctx, tenantID, category, scopeKey)
	if err != nil {
		return "", err
	}
	return r.Number, nil
}

// Reserve advances the sequence for (category, scopeKey) and returns the
// issued value. A reservation the caller cannot use should be handed back
// with Release.
func (s *Service) Reserve(ctx context.Context, tenantID, category, scopeKey string) (Reservation, error) {
	plan, err := s.Plan(category, scopeKey)
	if err != nil {
		return Reservation{}, err
	}

	seq, err := s.store.Next(ctx, tenantID, plan.Key, plan.Template.Limit())
	if err != nil {
		if errors.Is(err, repository.ErrExhausted) {
			s.logger.Warn("registry sequence exhausted", "tenant_id", tenantID, "category", category, "scope", scopeKey)
			return Reservation{}, ErrAllocationExhausted
		}
		return Reservation{}, fmt.Errorf("advancing sequence: %w", err)
	}

	r := Reservation{Key: plan.Key, Seq: seq, Number: plan.Format(seq)}
	s.Issued(tenantID, category, r.Number)
	return r, nil
}

// Release hands back an unused reservation. The counter steps back only
// while r is still the last issued value; false means a later number was
// issued meanwhile and r stays consumed.
func (s *Service) Release(ctx context.Context, tenantID string, r Reservation) (bool, error) {
	released, err := s.store.Release(ctx, tenantID, r.Key, r.Seq)
	if err != nil {
		return false, fmt.Errorf("releasing sequence: %w", err)
	}
	s.logger.Debug("registry number released", "tenant_id", tenantID, "number", r.Number, "released", released)
	return released, nil
}

// Issued records a number handed out, including numbers issued by a
// document store inside its own transaction.
func (s *Service) Issued(tenantID, category, number string) {
	if s.metrics != nil {
		s.metrics.IncAllocation(category)
	}
	s.logger.Debug("registry number allocated", "tenant_id", tenantID, "category", category, "number", number)
}

// Preview returns the number Allocate would issue next without consuming it.
func (s *Service) Preview(ctx context.Context, tenantID, category, scopeKey string) (string, error) {
	plan, err := s.Plan(category, scopeKey)
	if err != nil {
		return "", err
	}

	last, err := s.store.Peek(ctx, tenantID, plan.Key)
	if err != nil {
		return "", fmt.Errorf("reading sequence: %w", err)
	}
	if last >= plan.Template.Limit() {
		return "", ErrAllocationExhausted
	}
	return plan.Format(last + 1), nil
}

// Plan validates category and scopeKey and returns the sequence key and
// template a number for them is issued from.
func (s *Service) Plan(category, scopeKey string) (Plan, error) {
	tmpl, err := s.Template(category)
	if err != nil {
		return Plan{}, err
	}
	scopeKey = strings.TrimSpace(scopeKey)
	if scopeKey == "" || strings.ContainsAny(scopeKey, " \t\n") {
		return Plan{}, ErrInvalidScope
	}
	return Plan{Key: Key{Category: category, ScopeKey: scopeKey}, Template: tmpl}, nil
}
