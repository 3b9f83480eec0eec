package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractree/fractree/internal/auth"
)

func TestIssueAndValidate(t *testing.T) {
	svc := auth.NewService("secret", time.Hour)

	token, err := svc.IssueEditToken("tree_a")
	require.NoError(t, err)

	treeID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "tree_a", treeID)

	assert.True(t, svc.CanEdit(token, "tree_a"))
	assert.False(t, svc.CanEdit(token, "tree_b"))
	assert.False(t, svc.CanEdit("", "tree_a"))
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := auth.NewService("secret", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := auth.NewService("other", time.Hour).IssueEditToken("tree_a")
		require.NoError(t, err)
		_, err = svc.ValidateToken(other)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old, err := auth.NewService("secret", -time.Minute).IssueEditToken("tree_a")
		require.NoError(t, err)
		_, err = svc.ValidateToken(old)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong scope", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "tree_a", "scope": "view"})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(signed)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestRequireEditToken(t *testing.T) {
	svc := auth.NewService("secret", 0)
	token, err := svc.IssueEditToken("tree_a")
	require.NoError(t, err)

	r := mux.NewRouter()
	r.Handle("/trees/{treeId}", svc.RequireEditToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(auth.TreeIDFromContext(r.Context())))
	})))

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no token", "/trees/tree_a", "", http.StatusUnauthorized},
		{"bad token", "/trees/tree_a", "Bearer nope", http.StatusUnauthorized},
		{"other tree", "/trees/tree_b", "Bearer " + token, http.StatusForbidden},
		{"header", "/trees/tree_a", "Bearer " + token, http.StatusOK},
		{"query", "/trees/tree_a?token=" + token, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "tree_a", rec.Body.String())
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?token=q", nil)
	assert.Equal(t, "q", auth.TokenFromRequest(req))

	req.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", auth.TokenFromRequest(req))

	req.Header.Set("Authorization", "Basic h")
	assert.Empty(t, auth.TokenFromRequest(req))
}
