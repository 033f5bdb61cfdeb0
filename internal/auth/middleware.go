package auth

import (
	"context"
	"net/http"
	"strings"

	"librarydesk/internal/httpx"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	MsgNotAuthenticated = "Authentication credentials were not provided."
	msgInvalidToken     = "Invalid token."
	msgForbidden        = "You do not have permission to perform this action."
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by Authenticate.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Authenticate rejects requests without a valid bearer token.
func Authenticate(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
				httpx.Detail(w, http.StatusUnauthorized, MsgNotAuthenticated)
				return
			}

			id, err := tokens.Parse(strings.TrimSpace(header[7:]))
			if err != nil {
				httpx.Detail(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects authenticated callers whose role differs from role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				httpx.Detail(w, http.StatusUnauthorized, MsgNotAuthenticated)
				return
			}
			if id.Role != role {
				httpx.Detail(w, http.StatusForbidden, msgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
