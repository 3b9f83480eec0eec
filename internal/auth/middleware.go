package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type contextKey string

const TreeIDKey contextKey = "treeID"

// TokenFromRequest reads a bearer token from the Authorization header, then
// from the token query parameter. WebSocket clients can only use the latter.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// RequireEditToken rejects requests that do not carry an edit token for the
// {treeId} route variable.
func (s *Service) RequireEditToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing edit token"})
			return
		}

		treeID, err := s.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		if want := mux.Vars(r)["treeId"]; want != treeID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": ErrForbidden.Error()})
			return
		}

		ctx := context.WithValue(r.Context(), TreeIDKey, treeID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TreeIDFromContext(ctx context.Context) string {
	treeID, _ := ctx.Value(TreeIDKey).(string)
	return treeID
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
