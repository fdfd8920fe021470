package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service is the tenant activity log. It implements Recorder so the document
// service can write through it.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Log stamps and stores one entry.
func (s *Service) Log(ctx context.Context, tenantID string, entry *ActivityEntry) error {
	if strings.TrimSpace(tenantID) == "" || entry == nil || entry.ActivityType == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.repo.Log(ctx, tenantID, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	s.logger.Debug("activity", "tenant_id", tenantID, "type", entry.ActivityType, "summary", entry.Summary)
	return nil
}

// GetRecentActivity lists activity entries with filtering, newest first.
func (s *Service) GetRecentActivity(ctx context.Context, tenantID string, opts ListActivityOptions) ([]ActivityEntry, error) {
	if opts.Offset < 0 {
		return nil, ErrInvalidInput
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = defaultListLimit
	case opts.Limit > maxListLimit:
		opts.Limit = maxListLimit
	}
	entries, err := s.repo.List(ctx, tenantID, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}
