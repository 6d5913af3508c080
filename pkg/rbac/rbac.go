// Package rbac provides role-based access control middleware.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/kisanmart/pkg/middleware"
	"github.com/shashiranjanraj/kisanmart/pkg/response"
)

// HasRole allows access only to callers with one of roles. Authenticate
// must run first; without an identity the caller gets a 401.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Unauthorized(w, "Not authorized, no token")
				return
			}
			if !allowed[role] {
				response.Error(w, http.StatusForbidden, "Not authorized as admin")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
