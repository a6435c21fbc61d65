// Package rbactest provides test doubles for role resolution and delegated
// authority.
package rbactest

import (
	"context"
	"sync"

	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
)

// StaticResolver resolves roles from a fixed map.
type StaticResolver struct {
	Roles map[int64]shared.RoleSet
	Err   error
}

// RolesFor returns the configured roles of userID.
func (s StaticResolver) RolesFor(ctx context.Context, userID int64) (shared.RoleSet, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	roles := make(shared.RoleSet)
	for r := range s.Roles[userID] {
		roles[r] = struct{}{}
	}
	return roles, nil
}

// PermissionsFor derives permissions from the configured roles.
func (s StaticResolver) PermissionsFor(ctx context.Context, userID int64) (shared.PermissionSet, error) {
	roles, err := s.RolesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rbac.PermissionsFor(roles), nil
}

// Authority answers delegated authority lookups from a fixed table keyed by
// proposal code, and counts the lookups made.
type Authority struct {
	Investigators map[string]string
	Contacts      map[string]string
	Err           error

	mu    sync.Mutex
	calls int
}

// Lookup reports whether username is the PI and/or PC of proposalCode.
func (a *Authority) Lookup(ctx context.Context, username, proposalCode string) (rbac.Authority, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.Err != nil {
		return rbac.Authority{}, a.Err
	}
	return rbac.Authority{
		Investigator: matches(a.Investigators, proposalCode, username),
		Contact:      matches(a.Contacts, proposalCode, username),
	}, nil
}

func matches(table map[string]string, code, username string) bool {
	got, ok := table[code]
	return ok && got == username
}

// Calls returns the number of lookups made so far.
func (a *Authority) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Principal builds an authenticated principal holding roles.
func Principal(id int64, username string, roles ...shared.Role) *shared.Principal {
	set := shared.NewRoleSet(roles...)
	return &shared.Principal{
		Identity:    shared.Identity{ID: id, Username: username},
		Roles:       set,
		Permissions: rbac.PermissionsFor(set),
		Scopes:      []string{shared.ScopeAuthenticated},
	}
}

var (
	_ rbac.Resolver           = StaticResolver{}
	_ rbac.DelegatedAuthority = (*Authority)(nil)
)
