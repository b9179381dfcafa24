// Package tenant carries the per-request tenancy context.
package tenant

import "strings"

// Known caller roles, most to least privileged.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleViewer = "viewer"
)

// DefaultRole is assumed when the caller supplies no role header.
const DefaultRole = RoleStaff

// Context identifies the tenant, role and timezone of one request.
// It is derived once from inbound metadata and never mutated afterwards;
// every backend call and authorization decision is scoped by it.
type Context struct {
	TenantID string
	Role     string
	Timezone string
}

// NormalizeRole lowercases and validates a role header value.
// Unknown roles collapse to viewer so a bad header can only reduce access.
func NormalizeRole(raw string) string {
	role := strings.ToLower(strings.TrimSpace(raw))
	switch role {
	case "":
		return DefaultRole
	case RoleAdmin, RoleStaff, RoleViewer:
		return role
	default:
		return RoleViewer
	}
}

// IsAdmin reports whether the caller holds the administrative role.
func (c Context) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanCreate reports whether the caller may create or update events.
// Viewer is read-only; every other role can write.
func (c Context) CanCreate() bool {
	return c.Role != RoleViewer
}
