package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/groom-booking/backend/internal/auth"
)

type ctxKey struct{}

// AdminAuth rejects requests without a valid admin bearer token. With an empty
// secret every request is rejected.
func AdminAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Admin access is not configured")
				return
			}

			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Missing bearer token")
				return
			}

			claims, err := auth.ParseToken(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Invalid token")
				return
			}
			if claims.Role != auth.RoleAdmin {
				WriteError(w, http.StatusForbidden, ErrForbidden, "Admin role required")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
		})
	}
}

// ClaimsFrom returns the admin claims attached by AdminAuth.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*auth.Claims)
	return c, ok
}
