package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionAuth validates the bearer token and attaches the resolved live
// session to the request context.
func SessionAuth(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Authorization header required"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid authorization header format"))
				return
			}

			s, err := manager.Authenticate(parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession extracts the live session from context.
func GetSession(ctx context.Context) *session.Session {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	if !ok {
		return nil
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
