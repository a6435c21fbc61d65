package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
	"github.com/saltastro/saltapi/internal/token"
)

// Credentials are a username and password submitted for a token. They are
// only held for the duration of the request.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LogValue keeps the password out of logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username))
}

// CredentialStore finds users by username and password. The store applies
// its own password hashing.
type CredentialStore interface {
	FindUserByCredentials(ctx context.Context, username, password string) (*shared.Identity, error)
}

// TokenIssuer signs tokens.
type TokenIssuer interface {
	Issue(userID int64, roles []string, expiry time.Duration, alg token.Algorithm) (string, error)
}

// TokenPolicy selects the algorithm and lifetime of user tokens. A zero
// Lifetime issues tokens without expiry.
type TokenPolicy struct {
	Algorithm token.Algorithm
	Lifetime  time.Duration
}

// Service wraps credential verification and token issuance.
type Service struct {
	store    CredentialStore
	resolver rbac.Resolver
	issuer   TokenIssuer
	policy   TokenPolicy
}

// NewService constructs a new Service.
func NewService(store CredentialStore, resolver rbac.Resolver, issuer TokenIssuer, policy TokenPolicy) *Service {
	if policy.Algorithm == "" {
		policy.Algorithm = token.HS256
	}
	return &Service{store: store, resolver: resolver, issuer: issuer, policy: policy}
}

// Verify checks username and password against the user store. No match is
// not an error: it returns (nil, nil).
func (s *Service) Verify(ctx context.Context, username, password string) (*shared.Identity, error) {
	user, err := s.store.FindUserByCredentials(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("auth: verify credentials: %w", err)
	}
	return user, nil
}

// IssueToken verifies creds and returns a signed token for the user.
func (s *Service) IssueToken(ctx context.Context, creds Credentials) (string, error) {
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return "", shared.ErrMissingCredentials
	}
	user, err := s.Verify(ctx, creds.Username, creds.Password)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", shared.ErrInvalidCredentials
	}
	roles, err := s.resolver.RolesFor(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("auth: resolve roles: %w", err)
	}
	raw, err := s.issuer.Issue(user.ID, roles.Strings(), s.policy.Lifetime, s.policy.Algorithm)
	if err != nil {
		return "", fmt.Errorf("auth: issue token: %w", err)
	}
	return raw, nil
}
