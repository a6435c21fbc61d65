package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalContextIsolation(t *testing.T) {
	original := &Principal{
		Identity:    Identity{ID: 7, Username: "pi"},
		Roles:       NewRoleSet(RoleActiveUser),
		Permissions: PermissionSet{},
		Scopes:      []string{ScopeAuthenticated},
	}
	ctx := ContextWithPrincipal(context.Background(), original)

	original.Roles[RoleAdministrator] = struct{}{}
	original.Permissions[PermUpdatePermissions] = struct{}{}

	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.False(t, got.HasRole(RoleAdministrator))
	assert.False(t, got.HasPermission(PermUpdatePermissions))

	got.Roles[RoleAdministrator] = struct{}{}
	got.Scopes[0] = "tampered"

	again, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.False(t, again.HasRole(RoleAdministrator))
	assert.True(t, again.HasScope(ScopeAuthenticated))
	assert.Equal(t, int64(7), again.Identity.ID)
}

func TestPrincipalContextAnonymous(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithPrincipal(context.Background(), nil)
	_, ok = PrincipalFromContext(ctx)
	assert.False(t, ok)
}
