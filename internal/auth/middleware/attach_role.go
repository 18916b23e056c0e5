package auth

import (
	"net/http"

	"github.com/mind-engage/mindengage-readiness/internal/rbac"
)

// AttachRole makes the configured operator account authoritative: its tokens
// always carry the admin role. Tokens for any other subject keep their claimed
// role only when allowClaimFallback is set (offline mode); otherwise they are
// refused, so renaming ADMIN_USER revokes outstanding tokens.
func AttachRole(creds Credentials, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			switch {
			case sub != "" && sub == creds.User:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, rbac.RoleAdmin)))
			case allowClaimFallback && rbac.RoleFromContext(ctx) != "":
				next.ServeHTTP(w, r)
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
