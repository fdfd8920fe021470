package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rpggio/saraban/internal/domain/document"
)

// ErrInvalidViewer indicates an empty viewer id.
var ErrInvalidViewer = errors.New("viewer id required")

// DocumentSource loads the full document set of a tenant.
type DocumentSource interface {
	ListAll(ctx context.Context, tenantID string) ([]document.Document, error)
}

// Service computes task views on demand from committed state.
type Service struct {
	documents DocumentSource
	logger    *slog.Logger
}

// NewService creates a new task projection service.
func NewService(documents DocumentSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{documents: documents, logger: logger}
}

// PendingForViewer lists documents where viewerID must act next.
func (s *Service) PendingForViewer(ctx context.Context, tenantID, viewerID string) ([]document.Document, error) {
	return s.project(ctx, tenantID, viewerID, PendingFor)
}

// HistoryForViewer lists documents viewerID has signed.
func (s *Service) HistoryForViewer(ctx context.Context, tenantID, viewerID string) ([]document.Document, error) {
	return s.project(ctx, tenantID, viewerID, HistoryFor)
}

// InboxForViewer lists documents addressed to viewerID.
func (s *Service) InboxForViewer(ctx context.Context, tenantID, viewerID string) ([]document.Document, error) {
	return s.project(ctx, tenantID, viewerID, InboxFor)
}

func (s *Service) project(ctx context.Context, tenantID, viewerID string, view func([]document.Document, string) []document.Document) ([]document.Document, error) {
	if strings.TrimSpace(viewerID) == "" {
		return nil, ErrInvalidViewer
	}
	docs, err := s.documents.ListAll(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	out := view(docs, viewerID)
	s.logger.Debug("task projection", "tenant_id", tenantID, "viewer_id", viewerID, "total", len(docs), "matched", len(out))
	return out, nil
}
