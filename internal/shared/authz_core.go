package shared

import "sort"

// Role is an account-wide role tag.
type Role string

// Global roles.
const (
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleAstronomer    Role = "ASTRONOMER"
	RoleOperator      Role = "OPERATOR"
	RoleActiveUser    Role = "ACTIVE_USER"
)

// Permission is an account-wide capability tag.
type Permission string

// Global permissions.
const (
	PermSubmitAnyProposal    Permission = "SUBMIT_ANY_PROPOSAL"
	PermViewAnyProposal      Permission = "VIEW_ANY_PROPOSAL"
	PermViewAnyUserDetails   Permission = "VIEW_ANY_USER_DETAILS"
	PermUpdateAnyUserDetails Permission = "UPDATE_ANY_USER_DETAILS"
	PermUpdatePermissions    Permission = "UPDATE_PERMISSIONS"
)

// AllRoles lists every known role.
func AllRoles() []Role {
	return []Role{RoleAdministrator, RoleAstronomer, RoleOperator, RoleActiveUser}
}

// AllPermissions lists every known permission.
func AllPermissions() []Permission {
	return []Permission{
		PermSubmitAnyProposal,
		PermViewAnyProposal,
		PermViewAnyUserDetails,
		PermUpdateAnyUserDetails,
		PermUpdatePermissions,
	}
}

// ParseRole returns the role with the given name.
func ParseRole(name string) (Role, bool) {
	for _, r := range AllRoles() {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}

// RoleSet is a set of roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether the set contains r.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports whether the set contains any of roles.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Strings returns the role names in sorted order.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// PermissionSet is a set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the set contains p.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAny reports whether the set intersects perms.
func (s PermissionSet) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// Strings returns the permission names in sorted order.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}
