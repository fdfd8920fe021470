package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/saraban/internal/transport"
)

type contextKey int

const (
	tenantIDKey contextKey = iota
	requestIDKey
)

func getTenantID(ctx context.Context) string {
	v, _ := ctx.Value(tenantIDKey).(string)
	return v
}

func getRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// TenantResolver resolves a school tenant from an API key.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, token string) (string, error)
}

// Methods a client may call before presenting an API key.
var publicMethods = map[string]bool{
	"initialize":                true,
	"notifications/initialized": true,
	"ping":                      true,
}

// authMiddleware resolves the tenant from the bearer API key on every
// non-handshake call.
func authMiddleware(resolver TenantResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if publicMethods[method] {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("%w: missing headers", transport.ErrUnauthorized)
			}
			token := transport.BearerToken(extra.Header)
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", transport.ErrUnauthorized)
			}

			tenantID, err := resolver.ResolveTenant(ctx, token)
			if err != nil || tenantID == "" {
				return nil, fmt.Errorf("%w: unknown API key", transport.ErrUnauthorized)
			}

			return next(context.WithValue(ctx, tenantIDKey, tenantID), method, req)
		}
	}
}

// noAuthMiddleware serves every call as defaultTenant.
func noAuthMiddleware(defaultTenant string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(context.WithValue(ctx, tenantIDKey, defaultTenant), method, req)
		}
	}
}

// requestIDMiddleware picks up the correlation id the same way the JSON-RPC
// transport does: X-Request-Id, then Mcp-Session-Id over HTTP, or the
// request_id meta field over stdio.
func requestIDMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if id := requestIDOf(req); id != "" {
				ctx = context.WithValue(ctx, requestIDKey, id)
			}
			return next(ctx, method, req)
		}
	}
}

func requestIDOf(req sdkmcp.Request) (id string) {
	if extra := req.GetExtra(); extra != nil && extra.Header != nil {
		if id = extra.Header.Get(transport.RequestIDHeader); id != "" {
			return id
		}
		if id = extra.Header.Get("Mcp-Session-Id"); id != "" {
			return id
		}
	}

	// Notifications such as "initialized" may carry a typed nil params value
	// whose GetMeta panics.
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	if params := req.GetParams(); params != nil {
		if meta := params.GetMeta(); meta != nil {
			id, _ = meta["request_id"].(string)
		}
	}
	return id
}
