package mcp

import (
	"time"

	"github.com/rpggio/saraban/internal/domain/activity"
	"github.com/rpggio/saraban/internal/domain/document"
)

type CreateDocumentParams struct {
	Category       document.Category `json:"category"`
	Title          string            `json:"title"`
	OriginMeta     map[string]string `json:"origin_meta,omitempty"`
	AttachmentRef  string            `json:"attachment_ref,omitempty"`
	Attachment     []byte            `json:"attachment,omitempty"`
	AttachmentType string            `json:"attachment_type,omitempty"`
	CreatedBy      string            `json:"created_by"`
	ScopeKey       string            `json:"scope_key,omitempty"`
	RegistryNumber *string           `json:"registry_number,omitempty"`
}

type SubmitDocumentParams struct {
	DocumentID   string  `json:"document_id"`
	ActorID      string  `json:"actor_id"`
	NextTargetID *string `json:"next_target_id,omitempty"`
}

type ApplyDecisionParams struct {
	DocumentID     string              `json:"document_id"`
	ActorID        string              `json:"actor_id"`
	Decision       document.Decision   `json:"decision"`
	Comment        string              `json:"comment,omitempty"`
	SignatureRef   string              `json:"signature_ref,omitempty"`
	Signature      []byte              `json:"signature,omitempty"`
	SignatureType  string              `json:"signature_type,omitempty"`
	Placement      *document.Placement `json:"placement,omitempty"`
	NextTargetID   *string             `json:"next_target_id,omitempty"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
}

type DocumentIDParams struct {
	ID string `json:"id"`
}

type ListDocumentsParams struct {
	Category *document.Category `json:"category,omitempty"`
	Statuses []document.Status  `json:"statuses,omitempty"`
	ScopeKey *string            `json:"scope_key,omitempty"`
	Limit    int                `json:"limit,omitempty"`
	Offset   int                `json:"offset,omitempty"`
}

type SearchDocumentsParams struct {
	Query      string              `json:"query"`
	Categories []document.Category `json:"categories,omitempty"`
	Statuses   []document.Status   `json:"statuses,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
	Offset     int                 `json:"offset,omitempty"`
}

type NumberParams struct {
	Category string `json:"category"`
	ScopeKey string `json:"scope_key"`
}

type ViewerParams struct {
	ViewerID string `json:"viewer_id"`
}

type GetActivityParams struct {
	DocumentID *string                `json:"document_id,omitempty"`
	ActorID    *string                `json:"actor_id,omitempty"`
	Type       *activity.ActivityType `json:"type,omitempty"`
	Limit      int                    `json:"limit,omitempty"`
	Offset     int                    `json:"offset,omitempty"`
}

type ListDocumentsResponse struct {
	Documents []document.DocumentRef `json:"documents"`
}

type SearchDocumentsResponse struct {
	Results []document.SearchResult `json:"results"`
}

type VerifyLedgerResponse struct {
	DocumentID string `json:"document_id"`
	Valid      bool   `json:"valid"`
	Problem    string `json:"problem,omitempty"`
}

type NumberResponse struct {
	Category       string `json:"category"`
	ScopeKey       string `json:"scope_key"`
	RegistryNumber string `json:"registry_number"`
}

type ViewerDocumentsResponse struct {
	ViewerID  string                 `json:"viewer_id"`
	Documents []document.DocumentRef `json:"documents"`
}

type ActivityResponse struct {
	Activity []ActivityEntryResponse `json:"activity"`
}

type ActivityEntryResponse struct {
	Timestamp  time.Time             `json:"timestamp"`
	Type       activity.ActivityType `json:"type"`
	DocumentID *string               `json:"document_id,omitempty"`
	ActorID    *string               `json:"actor_id,omitempty"`
	Summary    string                `json:"summary"`
	Details    string                `json:"details,omitempty"`
}
