package rbac

import (
	"log"
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Require rejects requests whose role lacks perm.
func Require(perm string) func(http.Handler) http.Handler {
	return RequireAny(perm)
}

// RequireAny lets the request through when the role holds at least one of perms.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !defaultChecker.Any(role, perms...) {
				log.Printf("WARN: [RBAC] role %q denied %v on %s", role, perms, r.URL.Path)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
