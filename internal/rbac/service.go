package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saltastro/saltapi/internal/shared"
)

// SettingsSource provides the raw role settings of a user.
type SettingsSource interface {
	FindUserRoleSettings(ctx context.Context, userID int64) ([]Setting, error)
}

// Resolver derives the global roles and permissions of a user.
type Resolver interface {
	RolesFor(ctx context.Context, userID int64) (shared.RoleSet, error)
	PermissionsFor(ctx context.Context, userID int64) (shared.PermissionSet, error)
}

// SettingsResolver resolves roles from the user store's settings rows.
type SettingsResolver struct {
	source SettingsSource
	logger *slog.Logger
}

// NewSettingsResolver constructs a SettingsResolver.
func NewSettingsResolver(source SettingsSource, logger *slog.Logger) *SettingsResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsResolver{source: source, logger: logger}
}

// RolesFor fetches the settings of userID and maps them to roles.
func (r *SettingsResolver) RolesFor(ctx context.Context, userID int64) (shared.RoleSet, error) {
	rows, err := r.source.FindUserRoleSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: role settings for user %d: %w", userID, err)
	}
	roles, ignored := rolesFromSettings(rows)
	for _, row := range ignored {
		r.logger.Debug("rbac ignored setting",
			slog.Int64("user_id", userID),
			slog.String("key", row.Key),
			slog.String("value", row.Value))
	}
	return roles, nil
}

// PermissionsFor resolves the roles of userID and derives their permissions.
func (r *SettingsResolver) PermissionsFor(ctx context.Context, userID int64) (shared.PermissionSet, error) {
	roles, err := r.RolesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return PermissionsFor(roles), nil
}

var _ Resolver = (*SettingsResolver)(nil)
