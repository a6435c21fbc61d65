package users

import (
	"context"

	"github.com/saltastro/saltapi/internal/rbac"
)

// DelegatedAuthority answers Principal Investigator and Principal Contact
// questions from the proposal contacts.
type DelegatedAuthority struct {
	finder ContactsFinder
}

// NewDelegatedAuthority constructs a DelegatedAuthority.
func NewDelegatedAuthority(finder ContactsFinder) *DelegatedAuthority {
	return &DelegatedAuthority{finder: finder}
}

// Lookup checks both relations with a single contacts lookup.
func (a *DelegatedAuthority) Lookup(ctx context.Context, username, proposalCode string) (rbac.Authority, error) {
	contacts, err := a.finder.FindProposalContacts(ctx, proposalCode)
	if err != nil {
		return rbac.Authority{}, err
	}
	username = NormalizeUsername(username)
	if username == "" {
		return rbac.Authority{}, nil
	}
	return rbac.Authority{
		Investigator: NormalizeUsername(contacts.Investigator) == username,
		Contact:      NormalizeUsername(contacts.Contact) == username,
	}, nil
}

// IsPrincipalInvestigator reports whether username leads the proposal.
func (a *DelegatedAuthority) IsPrincipalInvestigator(ctx context.Context, username, proposalCode string) (bool, error) {
	auth, err := a.Lookup(ctx, username, proposalCode)
	return auth.Investigator, err
}

// IsPrincipalContact reports whether username is the proposal's contact.
func (a *DelegatedAuthority) IsPrincipalContact(ctx context.Context, username, proposalCode string) (bool, error) {
	auth, err := a.Lookup(ctx, username, proposalCode)
	return auth.Contact, err
}

var _ rbac.DelegatedAuthority = (*DelegatedAuthority)(nil)
