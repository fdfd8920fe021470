package document

import "time"

// EventType names a committed document transition.
type EventType string

const (
	EventCreated   EventType = "created"
	EventSubmitted EventType = "submitted"
	EventDecided   EventType = "decided"
)

// Event is published after a transition is committed.
type Event struct {
	Type              EventType `json:"type"`
	TenantID          string    `json:"tenant_id"`
	DocumentID        string    `json:"document_id"`
	Category          Category  `json:"category"`
	Status            Status    `json:"status"`
	ActorID           string    `json:"actor_id"`
	Decision          Decision  `json:"decision,omitempty"`
	CurrentApproverID *string   `json:"current_approver_id,omitempty"`
	RegistryNumber    *string   `json:"registry_number,omitempty"`
	Version           int64     `json:"version"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func eventFor(t EventType, doc *Document, actorID string, decision Decision) Event {
	return Event{
		Type:              t,
		TenantID:          doc.TenantID,
		DocumentID:        doc.ID,
		Category:          doc.Category,
		Status:            doc.Status,
		ActorID:           actorID,
		Decision:          decision,
		CurrentApproverID: doc.CurrentApproverID,
		RegistryNumber:    doc.RegistryNumber,
		Version:           doc.Version,
		OccurredAt:        doc.ModifiedAt,
	}
}
