package middleware

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/kisanmart/pkg/auth"
	"github.com/shashiranjanraj/kisanmart/pkg/response"
)

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Authenticate requires a valid bearer token and stores the caller's
// identity in the request context.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			response.Unauthorized(w, "Not authorized, no token")
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Unauthorized(w, "Not authorized, token failed")
			return
		}

		ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: claims.UserID, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RoleFromCtx returns the authenticated caller's role.
func RoleFromCtx(r *http.Request) (string, bool) {
	id, ok := auth.FromCtx(r.Context())
	return id.Role, ok
}

// UserIDFromCtx returns the authenticated caller's user id.
func UserIDFromCtx(r *http.Request) (string, bool) {
	id, ok := auth.FromCtx(r.Context())
	return id.UserID, ok
}
