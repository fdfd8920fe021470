package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/saraban/internal/domain/activity"
	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/transport"
)

// DocumentService defines document operations needed by MCP.
type DocumentService interface {
	Create(ctx context.Context, tenantID string, req document.CreateRequest) (*document.Document, error)
	Submit(ctx context.Context, tenantID string, req document.SubmitRequest) (*document.Document, error)
	ApplyDecision(ctx context.Context, tenantID string, req document.DecisionRequest) (*document.Document, error)
	Get(ctx context.Context, tenantID, id string) (*document.Document, error)
	List(ctx context.Context, tenantID string, opts document.ListDocumentsOptions) ([]document.DocumentRef, error)
	Search(ctx context.Context, tenantID, query string, opts document.SearchOptions) ([]document.SearchResult, error)
	VerifyLedger(ctx context.Context, tenantID, id string) error
}

// RegistryService defines numbering operations needed by MCP.
type RegistryService interface {
	Allocate(ctx context.Context, tenantID, category, scopeKey string) (string, error)
	Preview(ctx context.Context, tenantID, category, scopeKey string) (string, error)
}

// TaskService defines viewer projections needed by MCP.
type TaskService interface {
	PendingForViewer(ctx context.Context, tenantID, viewerID string) ([]document.Document, error)
	HistoryForViewer(ctx context.Context, tenantID, viewerID string) ([]document.Document, error)
	InboxForViewer(ctx context.Context, tenantID, viewerID string) ([]document.Document, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Documents DocumentService
	Registry  RegistryService
	Tasks     TaskService
	Activity  ActivityService
}

// Handler dispatches MCP commands.
type Handler struct {
	services Services
	logger   *slog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{services: services, logger: logger}
}

// Handle dispatches MCP requests to domain services.
func (h *Handler) Handle(ctx context.Context, tenantID, requestID, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, tenantID, method, params)
	if err != nil {
		h.logger.Debug("mcp call failed", "method", method, "tenant_id", tenantID, "request_id", requestID, "error", err)
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, tenantID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "ping":
		return map[string]string{"message": "pong"}, nil
	case "create_document":
		var req CreateDocumentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		create := document.CreateRequest{
			Category:       req.Category,
			Title:          req.Title,
			OriginMeta:     req.OriginMeta,
			AttachmentRef:  req.AttachmentRef,
			CreatedBy:      req.CreatedBy,
			ScopeKey:       req.ScopeKey,
			RegistryNumber: req.RegistryNumber,
		}
		if len(req.Attachment) > 0 {
			create.Attachment = &document.Blob{Kind: "attachment", ContentType: req.AttachmentType, Data: req.Attachment}
		}
		return h.services.Documents.Create(ctx, tenantID, create)
	case "submit_document":
		var req SubmitDocumentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.services.Documents.Submit(ctx, tenantID, document.SubmitRequest{
			DocumentID:   req.DocumentID,
			ActorID:      req.ActorID,
			NextTargetID: req.NextTargetID,
		})
	case "apply_decision":
		var req ApplyDecisionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.services.Documents.ApplyDecision(ctx, tenantID, document.DecisionRequest{
			DocumentID:     req.DocumentID,
			ActorID:        req.ActorID,
			Decision:       req.Decision,
			Comment:        req.Comment,
			SignatureRef:   req.SignatureRef,
			Signature:      req.Signature,
			SignatureType:  req.SignatureType,
			Placement:      req.Placement,
			NextTargetID:   req.NextTargetID,
			IdempotencyKey: req.IdempotencyKey,
		})
	case "get_document":
		var req DocumentIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.services.Documents.Get(ctx, tenantID, req.ID)
	case "list_documents":
		var req ListDocumentsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		refs, err := h.services.Documents.List(ctx, tenantID, document.ListDocumentsOptions{
			Category: req.Category,
			Statuses: req.Statuses,
			ScopeKey: req.ScopeKey,
			Limit:    req.Limit,
			Offset:   req.Offset,
		})
		if err != nil {
			return nil, err
		}
		if refs == nil {
			refs = []document.DocumentRef{}
		}
		return ListDocumentsResponse{Documents: refs}, nil
	case "search_documents":
		var req SearchDocumentsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		results, err := h.services.Documents.Search(ctx, tenantID, req.Query, document.SearchOptions{
			Categories: req.Categories,
			Statuses:   req.Statuses,
			Limit:      req.Limit,
			Offset:     req.Offset,
		})
		if err != nil {
			return nil, err
		}
		if results == nil {
			results = []document.SearchResult{}
		}
		return SearchDocumentsResponse{Results: results}, nil
	case "verify_ledger":
		var req DocumentIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		err := h.services.Documents.VerifyLedger(ctx, tenantID, req.ID)
		if errors.Is(err, document.ErrLedgerTampered) {
			return VerifyLedgerResponse{DocumentID: req.ID, Valid: false, Problem: err.Error()}, nil
		}
		if err != nil {
			return nil, err
		}
		return VerifyLedgerResponse{DocumentID: req.ID, Valid: true}, nil
	case "allocate_number", "preview_number":
		var req NumberParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		next := h.services.Registry.Allocate
		if method == "preview_number" {
			next = h.services.Registry.Preview
		}
		number, err := next(ctx, tenantID, req.Category, req.ScopeKey)
		if err != nil {
			return nil, err
		}
		return NumberResponse{Category: req.Category, ScopeKey: req.ScopeKey, RegistryNumber: number}, nil
	case "pending_for_viewer":
		return h.viewerDocuments(ctx, tenantID, params, h.services.Tasks.PendingForViewer)
	case "history_for_viewer":
		return h.viewerDocuments(ctx, tenantID, params, h.services.Tasks.HistoryForViewer)
	case "inbox_for_viewer":
		return h.viewerDocuments(ctx, tenantID, params, h.services.Tasks.InboxForViewer)
	case "get_document_activity":
		var req GetActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.services.Activity.GetRecentActivity(ctx, tenantID, activity.ListActivityOptions{
			DocumentID:   req.DocumentID,
			ActorID:      req.ActorID,
			ActivityType: req.Type,
			Limit:        req.Limit,
			Offset:       req.Offset,
		})
		if err != nil {
			return nil, err
		}
		resp := ActivityResponse{Activity: make([]ActivityEntryResponse, 0, len(entries))}
		for _, entry := range entries {
			resp.Activity = append(resp.Activity, ActivityEntryResponse{
				Timestamp:  entry.CreatedAt,
				Type:       entry.ActivityType,
				DocumentID: entry.DocumentID,
				ActorID:    entry.ActorID,
				Summary:    entry.Summary,
				Details:    entry.Details,
			})
		}
		return resp, nil
	default:
		return nil, fmt.Errorf("%w: %s", transport.ErrUnknownMethod, method)
	}
}

type viewerQuery func(ctx context.Context, tenantID, viewerID string) ([]document.Document, error)

func (h *Handler) viewerDocuments(ctx context.Context, tenantID string, params json.RawMessage, query viewerQuery) (any, error) {
	var req ViewerParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	docs, err := query(ctx, tenantID, req.ViewerID)
	if err != nil {
		return nil, err
	}
	resp := ViewerDocumentsResponse{ViewerID: req.ViewerID, Documents: make([]document.DocumentRef, 0, len(docs))}
	for i := range docs {
		resp.Documents = append(resp.Documents, docs[i].Ref())
	}
	return resp, nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", document.ErrInvalidInput, err)
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
