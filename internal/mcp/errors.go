package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/domain/tasks"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, document.ErrDocumentNotFound):
		return &APIError{Code: "DOCUMENT_NOT_FOUND", Message: "document not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, document.ErrNotAuthorized):
		return &APIError{Code: "NOT_AUTHORIZED", Message: "actor is not the current approver", RecoveryHint: "Reload the document and check current_approver_id"}
	case errors.Is(err, document.ErrAlreadyFinalized):
		return &APIError{Code: "ALREADY_FINALIZED", Message: "document is in a terminal status"}
	case errors.Is(err, document.ErrNotSubmitted):
		return &APIError{Code: "NOT_SUBMITTED", Message: "document is still a draft", RecoveryHint: "Call submit_document first"}
	case errors.Is(err, document.ErrAlreadySubmitted):
		return &APIError{Code: "ALREADY_SUBMITTED", Message: "document has already been submitted"}
	case errors.Is(err, document.ErrInvalidDecision):
		return &APIError{Code: "INVALID_DECISION", Message: err.Error(), RecoveryHint: "Delegation is only available under top-down routing"}
	case errors.Is(err, document.ErrAmbiguousTarget):
		return &APIError{Code: "AMBIGUOUS_TARGET", Message: "several people are eligible for the next stage", RecoveryHint: "Pass next_target_id"}
	case errors.Is(err, document.ErrInvalidTarget):
		return &APIError{Code: "INVALID_TARGET", Message: err.Error()}
	case errors.Is(err, document.ErrNoEligibleApprover):
		return &APIError{Code: "NO_ELIGIBLE_APPROVER", Message: "no one holds the role required by the next stage", RecoveryHint: "Update the personnel directory"}
	case errors.Is(err, document.ErrInvalidPlacement):
		return &APIError{Code: "INVALID_PLACEMENT", Message: err.Error()}
	case errors.Is(err, document.ErrLedgerTampered):
		return &APIError{Code: "LEDGER_TAMPERED", Message: err.Error()}
	case errors.Is(err, document.ErrConcurrentModification):
		return &APIError{Code: "CONCURRENT_MODIFICATION", Message: "document kept changing while the decision was applied", RecoveryHint: "Reload and retry"}
	case errors.Is(err, registry.ErrAllocationExhausted):
		return &APIError{Code: "ALLOCATION_EXHAUSTED", Message: "registry sequence is exhausted for this scope"}
	case errors.Is(err, registry.ErrUnknownCategory):
		return &APIError{Code: "UNKNOWN_CATEGORY", Message: err.Error()}
	case errors.Is(err, registry.ErrInvalidScope), errors.Is(err, document.ErrInvalidInput), errors.Is(err, tasks.ErrInvalidViewer):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}
