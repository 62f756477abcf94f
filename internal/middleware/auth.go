package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/laibashaikh28/twee-webapp/internal/auth"
	"github.com/laibashaikh28/twee-webapp/internal/models"
)

type contextKey string

const userKey contextKey = "user"

// Authenticate requires a bearer token and stores the verified user in the
// request context.
func Authenticate(verifier auth.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Authorization header required"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid authorization header format"))
				return
			}

			user, err := verifier.Verify(r.Context(), parts[1])
			if err != nil || user == nil || user.UID == "" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), *user)))
		})
	}
}

func WithUser(ctx context.Context, u auth.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// GetUser returns the authenticated user, if any.
func GetUser(ctx context.Context) (auth.User, bool) {
	u, ok := ctx.Value(userKey).(auth.User)
	return u, ok
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	u, _ := GetUser(ctx)
	return u.UID
}

func GetUserEmail(ctx context.Context) string {
	u, _ := GetUser(ctx)
	return u.Email
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
