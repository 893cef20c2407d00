package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	s := NewService(nil, "test-secret")
	token, err := s.issueToken("user_42")
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		header string
		status int
		user   string
	}{
		{name: "missing", target: "/api/me", status: http.StatusUnauthorized},
		{name: "wrong scheme", target: "/api/me", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage token", target: "/api/me", header: "Bearer abc", status: http.StatusUnauthorized},
		{name: "header", target: "/api/me", header: "Bearer " + token, status: http.StatusNoContent, user: "user_42"},
		{name: "query", target: "/api/me?token=" + token, status: http.StatusNoContent, user: "user_42"},
		{name: "header wins over query", target: "/api/me?token=" + token, header: "Bearer abc", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, seen)
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/project/proj_1", nil)
	_, err := TokenFromRequest(req)
	assert.ErrorIs(t, err, errNoToken)

	req = httptest.NewRequest(http.MethodGet, "/ws/project/proj_1?token=abc", nil)
	token, err := TokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}
