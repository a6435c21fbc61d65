package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saltastro/saltapi/internal/platform/httpx"
	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
)

// Handler manages user detail endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.OpViewUserDetails, rbac.UserIDParam("id")))
		r.Get("/{id}", h.getUser)
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	oc, err := rbac.UserIDParam("id")(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id := oc.UserID
	user, err := h.service.User(r.Context(), id)
	if err != nil {
		if shared.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("get user failed", slog.Int64("user_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
