package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// redactedKeys are payload keys whose values never reach the log.
var redactedKeys = map[string]bool{
	"password":      true,
	"access_token":  true,
	"refresh_token": true,
	"address":       true,
	"authorize_url": true,
}

// trafficLoggingMiddleware logs requests and results at debug level with
// credentials redacted.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			attrs := []any{
				"direction", direction,
				"method", method,
				"session_id", safeSessionID(req),
				"user_id", getUserID(ctx),
			}
			logger.Debug("mcp traffic", append(attrs, "stage", "request", "params", formatPayload(safeParams(req)))...)

			result, err := next(ctx, method, req)
			if !strings.HasPrefix(method, "notifications/") {
				attrs = append(attrs, "stage", "response", "result", formatPayload(result))
				if err != nil {
					attrs = append(attrs, "error", err)
				}
				logger.Debug("mcp traffic", attrs...)
			}

			return result, err
		}
	}
}

func safeSessionID(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	defer func() { recover() }()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) any {
	if req == nil {
		return nil
	}
	defer func() { recover() }()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return string(data)
	}
	data, err = json.Marshal(redact(tree))
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}

func redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if redactedKeys[k] {
				t[k] = "[redacted]"
				continue
			}
			t[k] = redact(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = redact(child)
		}
		return t
	case string:
		// Tool arguments arrive as raw JSON text inside params.
		if strings.HasPrefix(t, "{") {
			var inner any
			if json.Unmarshal([]byte(t), &inner) == nil {
				if out, err := json.Marshal(redact(inner)); err == nil {
					return string(out)
				}
			}
		}
		return t
	default:
		return v
	}
}
