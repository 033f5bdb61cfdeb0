package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	id := Identity{UserID: uuid.New(), Email: "reader@example.com", Role: RoleMember}

	signed, err := tokens.Issue(id)
	require.NoError(t, err)

	got, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.False(t, got.IsAdmin())
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret", time.Hour).Issue(Identity{UserID: uuid.New(), Role: RoleMember})
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issuedAt }

	signed, err := tokens.Issue(Identity{UserID: uuid.New(), Role: RoleMember})
	require.NoError(t, err)

	tokens.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateMiddleware(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	id := Identity{UserID: uuid.New(), Email: "a@b.c", Role: RoleAdmin}
	signed, err := tokens.Issue(id)
	require.NoError(t, err)

	var seen Identity
	h := Authenticate(tokens)(RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + signed, http.StatusNoContent},
		{"lowercase scheme", "bearer " + signed, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
	assert.Equal(t, id, seen)
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	h := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithIdentity(r.Context(), Identity{UserID: uuid.New(), Role: RoleMember}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
