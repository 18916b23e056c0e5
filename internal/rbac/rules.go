package rbac

const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"

	PermResultsList = "results:list"
	PermEventsList  = "events:list"
	PermReportsRead = "reports:read"
)

// RolePermissions is the default policy. A trailing "*" matches any suffix.
var RolePermissions = map[string][]string{
	RoleAdmin:   {"*"},
	RoleAnalyst: {"results:*", PermReportsRead},
}
