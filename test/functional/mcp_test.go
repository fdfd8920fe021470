package functional_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/testserver"
	"github.com/rpggio/saraban/internal/transport"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, ts *testserver.TestServer, method string, params any, out any) {
	t.Helper()
	resp := ts.Call(t, method, params)
	require.Nil(t, resp.Error, "%s failed: %+v", method, resp.Error)
	if out != nil {
		testserver.Decode(t, resp.Result, out)
	}
}

func TestFunctional_OrderLifecycle(t *testing.T) {
	ts := testserver.New(t, "clerk-token", "school1")

	var preview struct {
		RegistryNumber string `json:"registry_number"`
	}
	call(t, ts, "preview_number", map[string]any{"category": "order", "scope_key": "2568"}, &preview)
	require.Equal(t, "ORD 001/2568", preview.RegistryNumber)

	var doc document.Document
	call(t, ts, "create_document", map[string]any{
		"category":    "order",
		"title":       "Appoint graduation committee",
		"created_by":  "clerk",
		"scope_key":   "2568",
		"origin_meta": map[string]string{"drafted_by": "academic office"},
		"attachment":  []byte("%PDF-1.7"),
	}, &doc)
	require.Equal(t, document.StatusDraft, doc.Status)
	require.Equal(t, "ORD 001/2568", *doc.RegistryNumber)
	require.Contains(t, doc.AttachmentRef, "sha256:")

	call(t, ts, "submit_document", map[string]any{"document_id": doc.ID, "actor_id": "clerk"}, &doc)
	require.Equal(t, "director-y", *doc.CurrentApproverID)

	var pending struct {
		Documents []document.DocumentRef `json:"documents"`
	}
	call(t, ts, "pending_for_viewer", map[string]any{"viewer_id": "director-y"}, &pending)
	require.Len(t, pending.Documents, 1)

	resp := ts.Call(t, "apply_decision", map[string]any{"document_id": doc.ID, "actor_id": "clerk", "decision": "APPROVE"})
	require.NotNil(t, resp.Error)
	require.Equal(t, transport.ErrApplication, resp.Error.Code)
	require.Equal(t, "NOT_AUTHORIZED", resp.Error.Data.(map[string]any)["code"])

	call(t, ts, "apply_decision", map[string]any{
		"document_id":     doc.ID,
		"actor_id":        "director-y",
		"decision":        "APPROVE",
		"comment":         "Approved",
		"signature":       []byte("png-bytes"),
		"signature_type":  "image/png",
		"placement":       map[string]any{"x_percent": 70, "y_percent": 90, "scale": 1},
		"idempotency_key": "director-tablet-1",
	}, &doc)
	require.Equal(t, document.StatusCompleted, doc.Status)
	require.Len(t, doc.Endorsements, 1)
	require.Contains(t, doc.Endorsements[0].SignatureRef, "sha256:")

	var verify struct {
		Valid bool `json:"valid"`
	}
	call(t, ts, "verify_ledger", map[string]any{"id": doc.ID}, &verify)
	require.True(t, verify.Valid)

	var found struct {
		Results []document.SearchResult `json:"results"`
	}
	call(t, ts, "search_documents", map[string]any{"query": "graduation"}, &found)
	require.Len(t, found.Results, 1)

	var activity struct {
		Activity []map[string]any `json:"activity"`
	}
	call(t, ts, "get_document_activity", map[string]any{"document_id": doc.ID}, &activity)
	require.GreaterOrEqual(t, len(activity.Activity), 3)
}

func TestFunctional_TenantIsolation(t *testing.T) {
	ts := testserver.New(t, "token-a", "school-a")
	require.NoError(t, ts.AddAPIKey("token-b", "school-b"))

	var doc document.Document
	call(t, ts, "create_document", map[string]any{"category": "incoming_letter", "title": "Budget circular", "created_by": "clerk"}, &doc)

	ts.Token = "token-b"
	resp := ts.Call(t, "get_document", map[string]any{"id": doc.ID})
	require.NotNil(t, resp.Error)
	require.Equal(t, "DOCUMENT_NOT_FOUND", resp.Error.Data.(map[string]any)["code"])
}

func TestFunctional_Unauthorized(t *testing.T) {
	ts := testserver.New(t, "good-token", "school1")

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewBufferString(`{"jsonrpc":"2.0","method":"ping","id":1}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer bad-token")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
