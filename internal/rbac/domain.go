package rbac

import (
	"strings"

	"github.com/saltastro/saltapi/internal/shared"
)

// Setting is one raw per-user settings row from the user store.
type Setting struct {
	Key    string
	Value  string
	Active bool
}

// Settings keys that map to global roles.
const (
	SettingRightAdmin      = "RightAdmin"
	SettingRightAstronomer = "RightAstronomer"
	SettingRightOperator   = "RightOperator"
)

type settingRule struct {
	key   string
	value string
	role  shared.Role
}

var settingRules = []settingRule{
	{key: SettingRightAdmin, value: "2", role: shared.RoleAdministrator},
	{key: SettingRightAstronomer, value: "1", role: shared.RoleAstronomer},
	{key: SettingRightOperator, value: "1", role: shared.RoleOperator},
}

var rolePermissions = map[shared.Role][]shared.Permission{
	shared.RoleAdministrator: {
		shared.PermSubmitAnyProposal,
		shared.PermViewAnyProposal,
		shared.PermViewAnyUserDetails,
		shared.PermUpdateAnyUserDetails,
		shared.PermUpdatePermissions,
	},
	shared.RoleAstronomer: {
		shared.PermViewAnyProposal,
		shared.PermViewAnyUserDetails,
	},
	shared.RoleOperator: {
		shared.PermViewAnyProposal,
	},
	shared.RoleActiveUser: nil,
}

// PermissionsFor derives the permissions implied by roles. It is a pure
// function of the role set.
func PermissionsFor(roles shared.RoleSet) shared.PermissionSet {
	perms := make(shared.PermissionSet)
	for role := range roles {
		for _, p := range rolePermissions[role] {
			perms[p] = struct{}{}
		}
	}
	return perms
}

// RolesFromSettings maps raw settings rows to global roles. An account
// without rows, or with any row flagged inactive, holds no role at all.
func RolesFromSettings(rows []Setting) shared.RoleSet {
	roles, _ := rolesFromSettings(rows)
	return roles
}

// rolesFromSettings also returns the rows that did not match any rule.
func rolesFromSettings(rows []Setting) (shared.RoleSet, []Setting) {
	roles := make(shared.RoleSet)
	if len(rows) == 0 {
		return roles, nil
	}
	for _, row := range rows {
		if !row.Active {
			return make(shared.RoleSet), nil
		}
	}
	roles[shared.RoleActiveUser] = struct{}{}
	var ignored []Setting
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		value := strings.TrimSpace(row.Value)
		matched := false
		for _, rule := range settingRules {
			if rule.key == key && rule.value == value {
				roles[rule.role] = struct{}{}
				matched = true
			}
		}
		if !matched {
			ignored = append(ignored, row)
		}
	}
	return roles, ignored
}
