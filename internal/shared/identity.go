package shared

import "strings"

// ScopeAuthenticated is granted to every principal that presented a valid token.
const ScopeAuthenticated = "authenticated"

// Identity is a SALT user as resolved for the lifetime of one request.
type Identity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// DisplayName returns the user's full name.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Principal describes the authenticated actor: the identity plus the roles,
// permissions and scopes resolved for it.
type Principal struct {
	Identity    Identity
	Roles       RoleSet
	Permissions PermissionSet
	Scopes      []string
}

// Clone returns a deep copy of p.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	c := &Principal{
		Identity:    p.Identity,
		Roles:       make(RoleSet, len(p.Roles)),
		Permissions: make(PermissionSet, len(p.Permissions)),
		Scopes:      append([]string(nil), p.Scopes...),
	}
	for r := range p.Roles {
		c.Roles[r] = struct{}{}
	}
	for perm := range p.Permissions {
		c.Permissions[perm] = struct{}{}
	}
	return c
}

// HasRole reports whether the principal holds r.
func (p *Principal) HasRole(r Role) bool {
	return p != nil && p.Roles.Has(r)
}

// HasPermission reports whether the principal holds perm.
func (p *Principal) HasPermission(perm Permission) bool {
	return p != nil && p.Permissions.Has(perm)
}

// HasAnyRole reports whether the principal holds any of roles.
func (p *Principal) HasAnyRole(roles ...Role) bool {
	return p != nil && p.Roles.HasAny(roles...)
}

// HasAnyPermission reports whether the principal holds any of perms.
func (p *Principal) HasAnyPermission(perms ...Permission) bool {
	return p != nil && p.Permissions.HasAny(perms...)
}

// HasScope reports whether scope was granted to the principal.
func (p *Principal) HasScope(scope string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
