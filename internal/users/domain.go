package users

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
)

// ProposalContacts names the Principal Investigator and the Principal
// Contact of a proposal. Empty fields mean nobody holds the role.
type ProposalContacts struct {
	Investigator string `json:"investigator"`
	Contact      string `json:"contact"`
}

// ContactsFinder looks up the contacts of a proposal.
type ContactsFinder interface {
	FindProposalContacts(ctx context.Context, proposalCode string) (ProposalContacts, error)
}

// Store is the data access interface of the user database. The user
// lookups return (nil, nil) when nothing matches.
type Store interface {
	ContactsFinder
	FindUserByCredentials(ctx context.Context, username, password string) (*shared.Identity, error)
	FindUserByID(ctx context.Context, id int64) (*shared.Identity, error)
	FindUserRoleSettings(ctx context.Context, id int64) ([]rbac.Setting, error)
}

// NormalizeUsername trims and NFKC-normalizes a username so that visually
// identical names compare equal.
func NormalizeUsername(username string) string {
	return norm.NFKC.String(strings.TrimSpace(username))
}
