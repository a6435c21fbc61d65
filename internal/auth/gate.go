package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/saltastro/saltapi/internal/platform/httpx"
	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
	"github.com/saltastro/saltapi/internal/token"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// Authentication outcomes reported to the AuthnRecorder.
const (
	OutcomeAnonymous       = "anonymous"
	OutcomeAuthenticated   = "authenticated"
	OutcomeMalformedHeader = "malformed_header"
	OutcomeInvalidToken    = "invalid_token"
	OutcomeExpiredToken    = "expired_token"
	OutcomeUnknownUser     = "unknown_user"
	OutcomeError           = "error"
)

// TokenParser decodes and validates tokens.
type TokenParser interface {
	Parse(raw string, alg token.Algorithm) (token.Payload, error)
}

// UserFinder finds users by id.
type UserFinder interface {
	FindUserByID(ctx context.Context, id int64) (*shared.Identity, error)
}

// AuthnRecorder observes authentication outcomes.
type AuthnRecorder interface {
	RecordAuthentication(outcome string)
}

// Gate authenticates requests carrying a bearer token. It does not decide
// whether anonymous access is acceptable; the policy does.
type Gate struct {
	parser   TokenParser
	users    UserFinder
	resolver rbac.Resolver
	alg      token.Algorithm
	logger   *slog.Logger
	recorder AuthnRecorder
}

// NewGate constructs a Gate verifying tokens signed with alg.
func NewGate(parser TokenParser, users UserFinder, resolver rbac.Resolver, alg token.Algorithm, logger *slog.Logger, recorder AuthnRecorder) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{parser: parser, users: users, resolver: resolver, alg: alg, logger: logger, recorder: recorder}
}

// Authenticate resolves the principal for the request headers. A request
// without Authorization header is anonymous: (nil, nil).
func (g *Gate) Authenticate(ctx context.Context, header http.Header) (*shared.Principal, error) {
	p, outcome, err := g.authenticate(ctx, header)
	if g.recorder != nil {
		g.recorder.RecordAuthentication(outcome)
	}
	return p, err
}

func (g *Gate) authenticate(ctx context.Context, header http.Header) (*shared.Principal, string, error) {
	values := header.Values(authorizationHeader)
	if len(values) == 0 {
		return nil, OutcomeAnonymous, nil
	}
	value := values[0]
	if !strings.HasPrefix(value, bearerPrefix) {
		return nil, OutcomeMalformedHeader, shared.ErrMalformedHeader
	}

	payload, err := g.parser.Parse(value[len(bearerPrefix):], g.alg)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrConfiguration):
		return nil, OutcomeError, err
	case errors.Is(err, token.ErrExpiredToken):
		return nil, OutcomeExpiredToken, fmt.Errorf("%w: %v", shared.ErrUnauthenticated, err)
	default:
		return nil, OutcomeInvalidToken, fmt.Errorf("%w: %v", shared.ErrUnauthenticated, err)
	}

	user, err := g.users.FindUserByID(ctx, payload.UserID)
	if err != nil {
		return nil, OutcomeError, fmt.Errorf("auth: find user %d: %w", payload.UserID, err)
	}
	if user == nil {
		return nil, OutcomeUnknownUser, fmt.Errorf("%w: no user found for user id", shared.ErrUnauthenticated)
	}

	roles, err := g.resolver.RolesFor(ctx, user.ID)
	if err != nil {
		return nil, OutcomeError, fmt.Errorf("auth: resolve roles: %w", err)
	}
	return &shared.Principal{
		Identity:    *user,
		Roles:       roles,
		Permissions: rbac.PermissionsFor(roles),
		Scopes:      []string{shared.ScopeAuthenticated},
	}, OutcomeAuthenticated, nil
}

// Middleware attaches the authenticated principal to the request context.
// Anonymous requests pass through untouched.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.Authenticate(r.Context(), r.Header)
		if err != nil {
			if shared.StatusFor(err) == http.StatusInternalServerError {
				g.logger.Error("authenticate request", slog.String("path", r.URL.Path), slog.Any("error", err))
			} else {
				g.logger.Debug("authentication rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		if principal == nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}
