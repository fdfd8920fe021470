package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MCPHandler handles MCP method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, tenantID, requestID, method string, params json.RawMessage) (any, error)
}

// codedError is implemented by application errors that carry a stable code.
type codedError interface {
	CodeValue() string
	MessageValue() string
	RecoveryHintValue() string
}

// Server wires HTTP handlers.
type Server struct {
	handler MCPHandler
}

// NewServer creates an HTTP router serving plain JSON-RPC on /rpc. The
// tenant middleware authenticates the caller or injects a default tenant.
func NewServer(handler MCPHandler, tenantMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	srv := &Server{handler: handler}

	r.Get("/health", srv.handleHealth)
	r.Group(func(r chi.Router) {
		if tenantMiddleware != nil {
			r.Use(tenantMiddleware)
		}
		r.Use(RequestIDMiddleware)
		r.Post("/rpc", srv.handleRPC)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		code := ErrInvalidReq
		if errors.Is(err, ErrParse) {
			code = ErrParseCode
		}
		WriteError(w, nil, code, err.Error(), nil)
		return
	}

	tenantID, ok := TenantFromContext(r.Context())
	if !ok || tenantID == "" {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	requestID, _ := RequestIDFromContext(r.Context())

	result, err := s.handler.Handle(r.Context(), tenantID, requestID, req.Method, req.Params)
	if req.IsNotification() && !errors.Is(err, ErrUnauthorized) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		var coded codedError
		switch {
		case errors.Is(err, ErrUnauthorized):
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		case errors.Is(err, ErrUnknownMethod):
			WriteError(w, req.ID, ErrMethodNotFound, err.Error(), nil)
		case errors.As(err, &coded):
			WriteError(w, req.ID, ErrApplication, coded.MessageValue(), map[string]string{
				"code":          coded.CodeValue(),
				"recovery_hint": coded.RecoveryHintValue(),
			})
		default:
			WriteError(w, req.ID, ErrInternal, err.Error(), nil)
		}
		return
	}

	WriteResult(w, req.ID, result)
}
