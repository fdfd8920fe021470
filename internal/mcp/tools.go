package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/saraban/internal/domain/document"
)

type toolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []toolDefinition {
	categories := enumOf(document.Categories)
	statuses := enumOf([]document.Status{
		document.StatusDraft, document.StatusSubmitted, document.StatusInProgress, document.StatusDelegated,
		document.StatusCompleted, document.StatusDistributed, document.StatusRejected,
	})

	documentID := object([]string{"id"}, map[string]*jsonschema.Schema{
		"id": str("Document ID"),
	})
	viewer := object([]string{"viewer_id"}, map[string]*jsonschema.Schema{
		"viewer_id": str("Person ID of the viewer"),
	})
	number := object([]string{"category", "scope_key"}, map[string]*jsonschema.Schema{
		"category":  withEnum(str("Registry category"), categories),
		"scope_key": str("Numbering scope, usually the Buddhist-era fiscal year (e.g. 2568)"),
	})

	return []toolDefinition{
		{
			Name:        "ping",
			Description: "Check that the server is reachable",
			InputSchema: object(nil, nil),
		},

		// Documents
		{
			Name:        "create_document",
			Description: "Create a draft document. Categories that number at creation receive their registry number immediately",
			InputSchema: object([]string{"category", "title", "created_by"}, map[string]*jsonschema.Schema{
				"category":        withEnum(str("Document category"), categories),
				"title":           str("Document title"),
				"origin_meta":     {Type: "object", Description: "Free-form origin metadata such as sender or reference number", AdditionalProperties: str("")},
				"attachment_ref":  str("Reference to an already stored attachment"),
				"attachment":      str("Base64 attachment payload to store"),
				"attachment_type": str("MIME type of the attachment payload"),
				"created_by":      str("Person ID of the creator"),
				"scope_key":       str("Numbering scope (defaults to the current fiscal year)"),
				"registry_number": str("Pre-assigned registry number"),
			}),
		},
		{
			Name:        "submit_document",
			Description: "Submit a draft into routing, assigning the first approver",
			InputSchema: object([]string{"document_id", "actor_id"}, map[string]*jsonschema.Schema{
				"document_id":    str("Document ID"),
				"actor_id":       str("Person ID of the submitter (must be the creator)"),
				"next_target_id": str("First approver when several people are eligible"),
			}),
		},
		{
			Name:        "apply_decision",
			Description: "Approve, reject or delegate a document as its current approver",
			InputSchema: object([]string{"document_id", "actor_id", "decision"}, map[string]*jsonschema.Schema{
				"document_id":     str("Document ID"),
				"actor_id":        str("Person ID of the current approver"),
				"decision":        withEnum(str("Decision"), enumOf([]document.Decision{document.DecisionApprove, document.DecisionReject, document.DecisionDelegate})),
				"comment":         str("Free-text comment stored in the endorsement"),
				"signature_ref":   str("Reference to an already stored signature image"),
				"signature":       str("Base64 signature image to store"),
				"signature_type":  str("MIME type of the signature image"),
				"placement":       placementSchema(),
				"next_target_id":  str("Next approver or delegate when several people are eligible"),
				"idempotency_key": str("Client key making retries of the same decision safe"),
			}),
		},
		{
			Name:        "get_document",
			Description: "Get a document with its recipients and endorsement ledger",
			InputSchema: documentID,
		},
		{
			Name:        "list_documents",
			Description: "List document references filtered by category, status and scope",
			InputSchema: object(nil, map[string]*jsonschema.Schema{
				"category":  withEnum(str("Document category"), categories),
				"statuses":  array("Filter by status", withEnum(str(""), statuses)),
				"scope_key": str("Numbering scope"),
				"limit":     integer("Maximum number of results"),
				"offset":    integer("Offset for pagination"),
			}),
		},
		{
			Name:        "search_documents",
			Description: "Full-text search over titles, registry numbers and origin metadata",
			InputSchema: object([]string{"query"}, map[string]*jsonschema.Schema{
				"query":      str("Search query text"),
				"categories": array("Filter by category", withEnum(str(""), categories)),
				"statuses":   array("Filter by status", withEnum(str(""), statuses)),
				"limit":      integer("Maximum number of results"),
				"offset":     integer("Offset for pagination"),
			}),
		},
		{
			Name:        "verify_ledger",
			Description: "Check the endorsement hash chain of a document",
			InputSchema: documentID,
		},

		// Registry
		{
			Name:        "allocate_number",
			Description: "Allocate the next registry number for a category and scope",
			InputSchema: number,
		},
		{
			Name:        "preview_number",
			Description: "Show the registry number the next allocation would return, without consuming it",
			InputSchema: number,
		},

		// Viewer projections
		{
			Name:        "pending_for_viewer",
			Description: "Documents awaiting the viewer's decision",
			InputSchema: viewer,
		},
		{
			Name:        "history_for_viewer",
			Description: "Documents the viewer has signed",
			InputSchema: viewer,
		},
		{
			Name:        "inbox_for_viewer",
			Description: "Documents the viewer has received",
			InputSchema: viewer,
		},

		{
			Name:        "get_document_activity",
			Description: "Get recent activity entries, optionally for one document or actor",
			InputSchema: object(nil, map[string]*jsonschema.Schema{
				"document_id": str("Document ID to filter by"),
				"actor_id":    str("Person ID to filter by"),
				"type":        str("Activity type to filter by"),
				"limit":       integer("Maximum number of activity entries"),
				"offset":      integer("Offset for pagination"),
			}),
		},
	}
}

func registerTools(server *sdkmcp.Server, handler *Handler) {
	for _, tool := range buildToolCatalog() {
		server.AddTool(&sdkmcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, toolHandler(handler, tool.Name))
	}
}

func toolHandler(handler *Handler, name string) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}

		result, err := handler.Handle(ctx, getTenantID(ctx), getRequestID(ctx), name, args)
		if err != nil {
			return errorResult(err), nil
		}

		data, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		}, nil
	}
}

// errorResult reports domain failures as tool errors so the model can read
// the code and recovery hint.
func errorResult(err error) *sdkmcp.CallToolResult {
	payload := &APIError{Code: "INTERNAL", Message: err.Error()}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		payload = apiErr
	}
	data, _ := json.Marshal(payload)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func integer(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

func array(description string, items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: description, Items: items}
}

func withEnum(s *jsonschema.Schema, values []any) *jsonschema.Schema {
	s.Enum = values
	return s
}

func enumOf[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func placementSchema() *jsonschema.Schema {
	pct := func(desc string) *jsonschema.Schema {
		lo, hi := 0.0, 100.0
		return &jsonschema.Schema{Type: "number", Description: desc, Minimum: &lo, Maximum: &hi}
	}
	s := object([]string{"x_percent", "y_percent", "scale"}, map[string]*jsonschema.Schema{
		"x_percent": pct("Horizontal anchor as a percentage of page width"),
		"y_percent": pct("Vertical anchor as a percentage of page height"),
		"scale":     {Type: "number", Description: "Signature scale factor"},
	})
	s.Description = "Where the endorsement is drawn on the rendered document"
	return s
}
