package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const (
	userIDKey contextKey = iota
	editorKeyKey
)

// defaultEditorKey names the editor of a client whose transport has no
// session id (stdio, in-memory).
const defaultEditorKey = "default"

// IdentitySource reports the acting user, if any.
type IdentitySource interface {
	CurrentUserID() (string, error)
}

// getUserID extracts the user ID stamped by identityMiddleware.
func getUserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// getEditorKey extracts the editor key stamped by sessionMiddleware.
func getEditorKey(ctx context.Context) string {
	if v, _ := ctx.Value(editorKeyKey).(string); v != "" {
		return v
	}
	return defaultEditorKey
}

// identityMiddleware stamps the signed-in user, if any, on the context. It
// never rejects: tools that need an identity check for themselves.
func identityMiddleware(source IdentitySource) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if userID, err := source.CurrentUserID(); err == nil {
				ctx = context.WithValue(ctx, userIDKey, userID)
			}
			return next(ctx, method, req)
		}
	}
}

// sessionMiddleware picks the editor key: the transport session id, then
// the Mcp-Session-Id header, then _meta.session_id.
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			key := safeSessionID(req)

			if key == "" {
				extra := req.GetExtra()
				if extra != nil && extra.Header != nil {
					key = extra.Header.Get("Mcp-Session-Id")
				}
			}

			// Notifications like "initialized" carry nil params.
			if key == "" {
				if params := req.GetParams(); params != nil {
					func() {
						defer func() { recover() }()
						if meta := params.GetMeta(); meta != nil {
							if sid, ok := meta["session_id"].(string); ok {
								key = sid
							}
						}
					}()
				}
			}

			if key != "" {
				ctx = context.WithValue(ctx, editorKeyKey, key)
			}
			return next(ctx, method, req)
		}
	}
}
