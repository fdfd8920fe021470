package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `saraban routes school documents through approval chains and keeps the official registry.

Core concepts:
- Document: a letter, order or proposal with a category, a status and exactly one current approver while it is routed.
- Endorsement: an immutable signed decision (APPROVE, REJECT, DELEGATE). Endorsements form a hash-chained ledger per document.
- Routing policy: per category. Proposals climb a fixed chain of roles; letters and orders go to the director, who may delegate.
- Registry number: a per-category, per-scope sequence such as "ORD 012/2568". Numbers are never reused.

Typical workflow:
1) create_document as the clerk, then submit_document to place it with the first approver.
2) pending_for_viewer shows what a person must act on.
3) apply_decision as the current approver. Pass next_target_id when the response is AMBIGUOUS_TARGET.
4) Use idempotency_key when retrying a decision after a timeout.
5) get_document and verify_ledger to audit a document.

Docs:
- saraban://docs/index
- saraban://docs/routing
- saraban://docs/registry
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "saraban://docs/index",
		Name:        "docs_index",
		Title:       "saraban docs index",
		Description: "Entry point: tools, error codes and where to read more.",
		Content: `# saraban: Agent Docs Index

## Tools

- ` + "`create_document`" + `, ` + "`submit_document`" + `, ` + "`apply_decision`" + ` move documents through routing.
- ` + "`get_document`" + `, ` + "`list_documents`" + `, ` + "`search_documents`" + ` read documents.
- ` + "`verify_ledger`" + ` checks the endorsement hash chain.
- ` + "`allocate_number`" + ` and ` + "`preview_number`" + ` work the registry directly.
- ` + "`pending_for_viewer`" + `, ` + "`history_for_viewer`" + `, ` + "`inbox_for_viewer`" + ` are per-person task lists.
- ` + "`get_document_activity`" + ` returns the audit trail.

## Error codes

| Code | Meaning |
|------|---------|
| NOT_AUTHORIZED | actor is not the current approver |
| ALREADY_FINALIZED | document is COMPLETED, DISTRIBUTED or REJECTED |
| NOT_SUBMITTED | decision on a DRAFT |
| INVALID_DECISION | DELEGATE under sequential routing |
| AMBIGUOUS_TARGET | several eligible approvers, pass next_target_id |
| INVALID_TARGET | next_target_id is not eligible |
| NO_ELIGIBLE_APPROVER | nobody holds the next role |
| CONCURRENT_MODIFICATION | retries exhausted, reload and retry |
| ALLOCATION_EXHAUSTED | registry sequence full for the scope |
`,
	},
	{
		URI:         "saraban://docs/routing",
		Name:        "docs_routing",
		Title:       "Routing and decisions",
		Description: "How sequential and top-down delegation chains behave.",
		Content: `# Routing and decisions

## Sequential chains (internal proposals)

Each APPROVE hands the document to the holder of the next stage role, and the status becomes IN_PROGRESS.
APPROVE at the last stage COMPLETES the document. REJECT at any stage ends it. DELEGATE is not allowed.

## Top-down delegation (letters and orders)

The director receives the document. APPROVE finishes it directly (COMPLETED or DISTRIBUTED depending on category).
DELEGATE hands it to a subordinate and the status becomes DELEGATED. A delegate may delegate further or APPROVE,
which DISTRIBUTES the document.

## Recipients

Every signer and every person the document was handed to is a recipient and sees it in ` + "`inbox_for_viewer`" + `.
`,
	},
	{
		URI:         "saraban://docs/registry",
		Name:        "docs_registry",
		Title:       "Registry numbering",
		Description: "Numbering templates, scopes and when numbers are assigned.",
		Content: `# Registry numbering

Numbers are allocated per tenant, category and scope key. The default scope is the Buddhist-era fiscal year,
which starts on 1 October. A number is formatted from the category template, e.g. ` + "`IN 0042/2568`" + `.

Letters and orders are numbered at creation. Proposals are numbered on their first decision.
` + "`preview_number`" + ` shows the next number without consuming it. Allocated numbers are never reused,
even when the document is later rejected.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
