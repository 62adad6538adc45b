package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type userKey struct{}

// IdentityResolver resolves a user ID from a bearer token.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (string, error)
}

// UserFromContext returns the authenticated user ID, if present.
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey{}).(string)
	return userID, ok
}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver IdentityResolver) func(http.Handler) http.Handler {
	return bearer(resolver, true)
}

// OptionalAuthMiddleware lets guests through but rejects a bearer token
// that fails to resolve.
func OptionalAuthMiddleware(resolver IdentityResolver) func(http.Handler) http.Handler {
	return bearer(resolver, false)
}

func bearer(resolver IdentityResolver, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				if required {
					writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if resolver == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "bearer tokens are not accepted")
				return
			}
			userID, err := resolver.ResolveIdentity(r.Context(), token)
			if err != nil || userID == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}
