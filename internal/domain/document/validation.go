package document

import "strings"

// ValidateCreateRequest validates fields required to create a document.
func ValidateCreateRequest(req CreateRequest) error {
	if !req.Category.Valid() {
		return ErrInvalidInput
	}
	if strings.TrimSpace(req.Title) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(req.CreatedBy) == "" {
		return ErrInvalidInput
	}
	if req.RegistryNumber != nil && strings.TrimSpace(*req.RegistryNumber) == "" {
		return ErrInvalidInput
	}
	if req.Attachment != nil && len(req.Attachment.Data) == 0 {
		return ErrInvalidInput
	}
	return nil
}

// ValidateDecisionRequest validates a decision before the document is loaded.
func ValidateDecisionRequest(req DecisionRequest) error {
	if strings.TrimSpace(req.DocumentID) == "" || strings.TrimSpace(req.ActorID) == "" {
		return ErrInvalidInput
	}
	if !req.Decision.Valid() {
		return ErrInvalidDecision
	}
	if req.SignatureRef != "" && len(req.Signature) > 0 {
		return ErrInvalidInput
	}
	return ValidatePlacement(req.Placement)
}
