package middleware

import (
	"net/http"

	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/http/response"
)

// RequireRole lets the request through only when the gate's identity carries
// every bit of role. It must run after AuthGate.
func RequireRole(role int64, code, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
				return
			}
			if id.Roles&role != role {
				response.Error(w, r, http.StatusForbidden, code, message, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireVerified(next http.Handler) http.Handler {
	return RequireRole(domain.RoleVerified, "EMAIL_NOT_VERIFIED", "Email address is not verified")(next)
}
