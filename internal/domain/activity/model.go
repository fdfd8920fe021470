package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeDocumentCreated   ActivityType = "document_created"
	TypeDocumentSubmitted ActivityType = "document_submitted"
	TypeDecisionApplied   ActivityType = "decision_applied"
	TypeNumberAllocated   ActivityType = "number_allocated"
	TypeNumberVoided      ActivityType = "number_voided"
	TypeConflictRetried   ActivityType = "conflict_retried"
	TypeDuplicateIgnored  ActivityType = "duplicate_ignored"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TenantID     string       `json:"tenant_id"`
	DocumentID   *string      `json:"document_id,omitempty"`
	ActorID      *string      `json:"actor_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
