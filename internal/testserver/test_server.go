package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/saraban/internal/directory"
	"github.com/rpggio/saraban/internal/domain/activity"
	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/domain/routing"
	"github.com/rpggio/saraban/internal/domain/tasks"
	"github.com/rpggio/saraban/internal/mcp"
	"github.com/rpggio/saraban/internal/sqlite"
	"github.com/rpggio/saraban/internal/transport"
	"github.com/stretchr/testify/require"
)

// Staff is the personnel every test server starts with.
func Staff() []routing.Person {
	return []routing.Person{
		{ID: "clerk", Name: "Somchai", Position: "Registry clerk", Roles: []string{"clerk"}},
		{ID: "head", Name: "Malee", Position: "Head of Science", Department: "science", Roles: []string{"head"}},
		{ID: "deputy-x", Name: "Prasert", Position: "Deputy Director", Roles: []string{"deputy"}},
		{ID: "director-y", Name: "Wilai", Position: "Director", Roles: []string{"director"}},
		{ID: "officer-a", Name: "Anan", Position: "Academic Officer", Roles: []string{"officer"}},
		{ID: "officer-b", Name: "Busaba", Position: "Finance Officer", Roles: []string{"officer"}},
	}
}

type TestServer struct {
	Server    *httptest.Server
	Keys      *sqlite.APIKeyRepository
	DB        *sqlite.DB
	Token     string
	TenantID  string
	Documents *document.Service
	Registry  *registry.Service
	Tasks     *tasks.Service
}

func New(t *testing.T, token, tenantID string) *TestServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	resolver := routing.NewResolver(directory.NewPersonnel(Staff()), directory.NewPolicies(directory.DefaultPolicies()), nil)

	documentRepo := sqlite.NewDocumentRepository(db)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	registrySvc := registry.NewService(sqlite.NewSequenceRepository(db), nil, nil, nil)
	documentSvc := document.NewService(documentRepo, resolver, registrySvc, activitySvc, nil,
		document.WithSearch(sqlite.NewSearchRepository(db)),
		document.WithBlobStore(sqlite.NewBlobRepository(db)),
		document.WithNumberedRepository(documentRepo),
	)
	taskSvc := tasks.NewService(documentRepo, nil)

	handler := mcp.NewHandler(mcp.Services{
		Documents: documentSvc,
		Registry:  registrySvc,
		Tasks:     taskSvc,
		Activity:  activitySvc,
	}, nil)

	keys := sqlite.NewAPIKeyRepository(db)
	server := httptest.NewServer(transport.NewServer(handler, transport.AuthMiddleware(keys)))

	ts := &TestServer{
		Server:    server,
		Keys:      keys,
		DB:        db,
		Token:     token,
		TenantID:  tenantID,
		Documents: documentSvc,
		Registry:  registrySvc,
		Tasks:     taskSvc,
	}

	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey registers another bearer token.
func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.Keys.Add(context.Background(), token, tenantID, "test")
}

// Call posts one JSON-RPC request and decodes the response.
func (ts *TestServer) Call(t *testing.T, method string, params any) transport.Response {
	t.Helper()

	raw, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(transport.Request{JSONRPC: "2.0", Method: method, Params: raw, ID: 1})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ts.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out transport.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// Decode re-marshals a result into out.
func Decode(t *testing.T, result any, out any) {
	t.Helper()
	data, err := json.Marshal(result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}
