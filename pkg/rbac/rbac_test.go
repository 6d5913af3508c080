package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shashiranjanraj/kisanmart/pkg/auth"
	"github.com/stretchr/testify/assert"
)

func TestHasRole(t *testing.T) {
	h := HasRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name string
		id   *auth.Identity
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &auth.Identity{UserID: "u1", Role: "user"}, http.StatusForbidden},
		{"admin", &auth.Identity{UserID: "a1", Role: "admin"}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
			if tc.id != nil {
				req = req.WithContext(auth.WithIdentity(req.Context(), *tc.id))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
