package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saltastro/saltapi/internal/platform/httpx"
	"github.com/saltastro/saltapi/internal/shared"
)

// PermissionsHandler exposes the role catalogue.
type PermissionsHandler struct {
	rbac Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/", h.listPermissions)
	})
}

type roleEntry struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	roles := shared.AllRoles()
	entries := make([]roleEntry, 0, len(roles))
	for _, role := range roles {
		entries = append(entries, roleEntry{
			Role:        string(role),
			Permissions: PermissionsFor(shared.NewRoleSet(role)).Strings(),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": entries})
}
