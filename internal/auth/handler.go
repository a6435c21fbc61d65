package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/saltastro/saltapi/internal/platform/httpx"
	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
)

// PublicKeySource exposes the PEM encoded token verification key.
type PublicKeySource interface {
	PublicKeyPEM() []byte
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	keys      PublicKeySource
	rbac      rbac.Middleware
	validator *validator.Validate
	loginRate int
}

// NewHandler constructs a Handler instance. loginRate caps token requests
// per client IP and minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, keys PublicKeySource, rbac rbac.Middleware, loginRate int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		keys:      keys,
		rbac:      rbac,
		validator: validator.New(),
		loginRate: loginRate,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginRate > 0 {
			r.Use(httprate.LimitByIP(h.loginRate, time.Minute))
		}
		r.Post("/token", h.handleToken)
	})
	r.Get("/public-key", h.handlePublicKey)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/whoami", h.handleWhoAmI)
	})
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := httpx.DecodeJSON(r, &creds); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed request body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(creds); err != nil {
		httpx.RespondError(w, shared.ErrMissingCredentials)
		return
	}
	raw, err := h.service.IssueToken(r.Context(), creds)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidCredentials):
			h.logger.Info("token request rejected", slog.Any("credentials", creds))
		case shared.StatusFor(err) == http.StatusInternalServerError:
			h.logger.Error("issue token", slog.Any("credentials", creds), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tokenResponse{Token: raw})
}

func (h *Handler) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	var key []byte
	if h.keys != nil {
		key = h.keys.PublicKeyPEM()
	}
	if len(key) == 0 {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "no public key configured")
		return
	}
	httpx.Text(w, http.StatusOK, key)
}

type whoAmIResponse struct {
	User        shared.Identity `json:"user"`
	Roles       []string        `json:"roles"`
	Permissions []string        `json:"permissions"`
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, whoAmIResponse{
		User:        principal.Identity,
		Roles:       principal.Roles.Strings(),
		Permissions: principal.Permissions.Strings(),
	})
}
