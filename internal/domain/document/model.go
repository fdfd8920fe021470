package document

import (
	"maps"
	"slices"
	"time"
)

// Category selects the routing topology and numbering template of a document.
type Category string

const (
	CategoryIncomingLetter   Category = "incoming_letter"
	CategoryOutgoingLetter   Category = "outgoing_letter"
	CategoryOrder            Category = "order"
	CategoryInternalProposal Category = "internal_proposal"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryIncomingLetter,
	CategoryOutgoingLetter,
	CategoryOrder,
	CategoryInternalProposal,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Status is where a document sits in its routing lifecycle.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSubmitted   Status = "SUBMITTED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusDelegated   Status = "DELEGATED"
	StatusCompleted   Status = "COMPLETED"
	StatusDistributed Status = "DISTRIBUTED"
	StatusRejected    Status = "REJECTED"
)

// Terminal reports whether no further decisions are accepted.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDistributed, StatusRejected:
		return true
	}
	return false
}

// Awaiting reports whether someone must act on the document.
func (s Status) Awaiting() bool {
	switch s {
	case StatusSubmitted, StatusInProgress, StatusDelegated:
		return true
	}
	return false
}

// Decision is a reviewer's action.
type Decision string

const (
	DecisionApprove  Decision = "APPROVE"
	DecisionReject   Decision = "REJECT"
	DecisionDelegate Decision = "DELEGATE"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionDelegate:
		return true
	}
	return false
}

// Placement anchors an endorsement on the rendered document. Coordinates are
// percentages of the page; the engine stores them verbatim.
type Placement struct {
	XPercent float64 `json:"x_percent"`
	YPercent float64 `json:"y_percent"`
	Scale    float64 `json:"scale"`
}

// Endorsement is one immutable reviewer decision.
type Endorsement struct {
	ID               string     `json:"id"`
	DocumentID       string     `json:"document_id"`
	Seq              int        `json:"seq"`
	StageIndex       int        `json:"stage_index"`
	StageRole        string     `json:"stage_role"`
	SignerID         string     `json:"signer_id"`
	SignerName       string     `json:"signer_name"`
	SignerPosition   string     `json:"signer_position"`
	Decision         Decision   `json:"decision"`
	Comment          string     `json:"comment,omitempty"`
	SignatureRef     string     `json:"signature_ref,omitempty"`
	Placement        *Placement `json:"placement,omitempty"`
	DelegateTargetID *string    `json:"delegate_target_id,omitempty"`
	IdempotencyKey   string     `json:"idempotency_key,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	PrevHash         string     `json:"prev_hash,omitempty"`
	Hash             string     `json:"hash"`
}

// Document is the unit being routed.
type Document struct {
	ID                string            `json:"id"`
	TenantID          string            `json:"tenant_id"`
	Category          Category          `json:"category"`
	Title             string            `json:"title"`
	OriginMeta        map[string]string `json:"origin_meta,omitempty"`
	AttachmentRef     string            `json:"attachment_ref,omitempty"`
	Status            Status            `json:"status"`
	StageIndex        int               `json:"stage_index"`
	CurrentApproverID *string           `json:"current_approver_id,omitempty"`
	RegistryNumber    *string           `json:"registry_number,omitempty"`
	ScopeKey          string            `json:"scope_key"`
	Recipients        []string          `json:"recipients"`
	Endorsements      []Endorsement     `json:"endorsements"`
	CreatedBy         string            `json:"created_by"`
	CreatedAt         time.Time         `json:"created_at"`
	ModifiedAt        time.Time         `json:"modified_at"`
	Version           int64             `json:"version"`
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	c.OriginMeta = maps.Clone(d.OriginMeta)
	c.CurrentApproverID = clonePtr(d.CurrentApproverID)
	c.RegistryNumber = clonePtr(d.RegistryNumber)
	c.Recipients = slices.Clone(d.Recipients)
	c.Endorsements = make([]Endorsement, len(d.Endorsements))
	for i, e := range d.Endorsements {
		c.Endorsements[i] = e.clone()
	}
	return &c
}

// HasRecipient reports whether personID is in the recipient set.
func (d *Document) HasRecipient(personID string) bool {
	return slices.Contains(d.Recipients, personID)
}

// SignedBy reports whether personID appears as a signer in the ledger.
func (d *Document) SignedBy(personID string) bool {
	for _, e := range d.Endorsements {
		if e.SignerID == personID {
			return true
		}
	}
	return false
}

// AwaitingOn reports whether personID must act next.
func (d *Document) AwaitingOn(personID string) bool {
	return d.Status.Awaiting() && d.CurrentApproverID != nil && *d.CurrentApproverID == personID
}

// Ref returns the lightweight reference of the document.
func (d *Document) Ref() DocumentRef {
	return DocumentRef{
		ID:                d.ID,
		Category:          d.Category,
		Title:             d.Title,
		Status:            d.Status,
		StageIndex:        d.StageIndex,
		CurrentApproverID: d.CurrentApproverID,
		RegistryNumber:    d.RegistryNumber,
		ScopeKey:          d.ScopeKey,
		EndorsementCount:  len(d.Endorsements),
		ModifiedAt:        d.ModifiedAt,
	}
}

func (d *Document) addRecipient(personID string) {
	if personID == "" || d.HasRecipient(personID) {
		return
	}
	d.Recipients = append(d.Recipients, personID)
}

func (d *Document) endorsementByKey(key string) *Endorsement {
	if key == "" {
		return nil
	}
	for i := range d.Endorsements {
		if d.Endorsements[i].IdempotencyKey == key {
			return &d.Endorsements[i]
		}
	}
	return nil
}

func (e Endorsement) clone() Endorsement {
	c := e
	c.DelegateTargetID = clonePtr(e.DelegateTargetID)
	if e.Placement != nil {
		p := *e.Placement
		c.Placement = &p
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// DocumentRef is a lightweight reference to a document.
type DocumentRef struct {
	ID                string    `json:"id"`
	Category          Category  `json:"category"`
	Title             string    `json:"title"`
	Status            Status    `json:"status"`
	StageIndex        int       `json:"stage_index"`
	CurrentApproverID *string   `json:"current_approver_id,omitempty"`
	RegistryNumber    *string   `json:"registry_number,omitempty"`
	ScopeKey          string    `json:"scope_key"`
	EndorsementCount  int       `json:"endorsement_count"`
	ModifiedAt        time.Time `json:"modified_at"`
}

// SearchResult represents a search hit with relevance.
type SearchResult struct {
	Document DocumentRef `json:"document"`
	Rank     float64     `json:"rank"`
	Snippet  string      `json:"snippet,omitempty"`
}
