package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/saltastro/saltapi/internal/platform/httpx"
	"github.com/saltastro/saltapi/internal/shared"
)

// ContextFunc extracts the operation arguments from a request.
type ContextFunc func(r *http.Request) (OperationContext, error)

// Middleware applies the authorization policy to HTTP handlers.
type Middleware struct {
	Policy *Policy
	Logger *slog.Logger
}

// Require ensures the current principal may perform op. A nil fn means the
// operation takes no arguments.
func (m Middleware) Require(op Operation, fn ContextFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var oc OperationContext
			if fn != nil {
				var err error
				oc, err = fn(r)
				if err != nil {
					httpx.RespondError(w, err)
					return
				}
			}
			principal, _ := shared.PrincipalFromContext(r.Context())
			err := m.Policy.Require(r.Context(), principal, op, oc)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}
			if shared.StatusFor(err) == http.StatusInternalServerError && m.Logger != nil {
				m.Logger.Error("rbac require", slog.String("operation", string(op)), slog.Any("error", err))
			}
			httpx.RespondError(w, err)
		})
	}
}

// RequireAuthenticated rejects anonymous requests.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return m.Require(OpAuthenticated, nil)
}

// ProposalCodeParam reads the proposal code from a chi URL parameter.
func ProposalCodeParam(name string) ContextFunc {
	return func(r *http.Request) (OperationContext, error) {
		code := strings.TrimSpace(chi.URLParam(r, name))
		if code == "" {
			return OperationContext{}, fmt.Errorf("%w: proposal code required", httpx.ErrValidation)
		}
		return OperationContext{ProposalCode: code}, nil
	}
}

// UserIDParam reads the subject user id from a chi URL parameter.
func UserIDParam(name string) ContextFunc {
	return func(r *http.Request) (OperationContext, error) {
		raw := strings.TrimSpace(chi.URLParam(r, name))
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return OperationContext{}, fmt.Errorf("%w: invalid user id %q", httpx.ErrValidation, raw)
		}
		return OperationContext{UserID: id}, nil
	}
}
