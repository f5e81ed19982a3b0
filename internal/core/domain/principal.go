package domain

import "slices"

// Principal is the identity reconstructed from a validated token. It lives for
// one request and is never persisted.
type Principal struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the principal holds role. Admin satisfies every
// role check; roles are a flat set, not a hierarchy.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role) || slices.Contains(p.Roles, RoleAdmin)
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return slices.Contains(p.Roles, RoleAdmin)
}

// CanAccess reports whether the principal may act on a resource owned by ownerID.
func (p Principal) CanAccess(ownerID string) bool {
	return p.UserID != "" && (p.UserID == ownerID || p.IsAdmin())
}
