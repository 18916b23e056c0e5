package rbac

import (
	"context"
	"strings"
)

type Checker struct {
	policy map[string][]string
}

// NewChecker builds a checker over policy, or over RolePermissions when nil.
func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	return &Checker{policy: policy}
}

func (c *Checker) Has(role, perm string) bool {
	for _, granted := range c.policy[role] {
		if grants(granted, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func grants(granted, perm string) bool {
	if granted == "*" || granted == perm {
		return true
	}
	prefix, ok := strings.CutSuffix(granted, "*")
	return ok && strings.HasPrefix(perm, prefix)
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
