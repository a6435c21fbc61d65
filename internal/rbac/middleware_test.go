package rbac_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/rbac/rbactest"
	"github.com/saltastro/saltapi/internal/shared"
)

func serveAs(p *shared.Principal, mount func(r chi.Router), req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if p != nil {
				req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
			}
			next.ServeHTTP(w, req)
		})
	})
	mount(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareRequire(t *testing.T) {
	mw := rbac.Middleware{Policy: rbac.NewPolicy(newAuthority(), nil)}
	mount := func(r chi.Router) {
		r.With(mw.Require(rbac.OpViewProposal, rbac.ProposalCodeParam("code"))).
			Get("/proposals/{code}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		r.With(mw.Require(rbac.OpViewUserDetails, rbac.UserIDParam("id"))).
			Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
	}
	cases := []struct {
		name      string
		principal *shared.Principal
		path      string
		status    int
	}{
		{name: "investigator views proposal", principal: rbactest.Principal(2, "pi"), path: "/proposals/2020-1-SCI-042", status: http.StatusNoContent},
		{name: "unrelated user", principal: rbactest.Principal(4, "other"), path: "/proposals/2020-1-SCI-042", status: http.StatusForbidden},
		{name: "anonymous", path: "/proposals/2020-1-SCI-042", status: http.StatusUnauthorized},
		{name: "own details", principal: rbactest.Principal(4, "other"), path: "/users/4", status: http.StatusNoContent},
		{name: "other details", principal: rbactest.Principal(4, "other"), path: "/users/5", status: http.StatusForbidden},
		{name: "malformed user id", principal: rbactest.Principal(4, "other"), path: "/users/abc", status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serveAs(tc.principal, mount, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusForbidden {
				assert.Contains(t, rr.Body.String(), "not authorized")
				assert.NotContains(t, rr.Body.String(), "VIEW_ANY")
			}
		})
	}
}

func TestPermissionsHandler(t *testing.T) {
	h := rbac.NewPermissionsHandler(rbac.Middleware{Policy: rbac.NewPolicy(nil, nil)})
	mount := func(r chi.Router) { r.Route("/permissions", h.MountRoutes) }

	rr := serveAs(nil, mount, httptest.NewRequest(http.MethodGet, "/permissions/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serveAs(rbactest.Principal(4, "other", shared.RoleActiveUser), mount, httptest.NewRequest(http.MethodGet, "/permissions/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Roles []struct {
			Role        string   `json:"role"`
			Permissions []string `json:"permissions"`
		} `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Roles, 4)
	byRole := make(map[string][]string)
	for _, entry := range body.Roles {
		byRole[entry.Role] = entry.Permissions
	}
	assert.Len(t, byRole["ADMINISTRATOR"], 5)
	assert.Equal(t, []string{"VIEW_ANY_PROPOSAL"}, byRole["OPERATOR"])
	assert.Empty(t, byRole["ACTIVE_USER"])
}
