package auth

import (
	"context"
	"net/http"

	"github.com/lulusspp/lulus-api/internal/models"
	pkghttp "github.com/lulusspp/lulus-api/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing admin session claims in context
	SessionContextKey contextKey = "admin_session"
)

// RequireAdmin rejects requests without a valid admin session cookie and
// injects the verified claims into the request context.
func RequireAdmin(sessions SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := GetSessionCookie(r)
			if err != nil || token == "" {
				pkghttp.WriteUnauthorized(w, r, "Unauthorized")
				return
			}

			claims, ok := sessions.Verify(token)
			if !ok {
				pkghttp.WriteUnauthorized(w, r, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext extracts admin claims placed by RequireAdmin
func SessionFromContext(ctx context.Context) *models.SessionClaims {
	claims, ok := ctx.Value(SessionContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
