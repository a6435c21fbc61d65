package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFinder struct {
	contacts map[string]ProposalContacts
	err      error
	calls    int
}

func (f *countingFinder) FindProposalContacts(ctx context.Context, code string) (ProposalContacts, error) {
	f.calls++
	if f.err != nil {
		return ProposalContacts{}, f.err
	}
	return f.contacts[code], nil
}

func TestDelegatedAuthority(t *testing.T) {
	finder := &countingFinder{contacts: map[string]ProposalContacts{
		"2020-1-SCI-042": {Investigator: "pi", Contact: "pc"},
		"2020-1-SCI-043": {Investigator: "both", Contact: "both"},
		"2020-1-SCI-044": {Investigator: "pi"},
	}}
	authority := NewDelegatedAuthority(finder)
	ctx := context.Background()

	cases := []struct {
		username     string
		code         string
		investigator bool
		contact      bool
	}{
		{username: "pi", code: "2020-1-SCI-042", investigator: true},
		{username: "pc", code: "2020-1-SCI-042", contact: true},
		{username: "both", code: "2020-1-SCI-043", investigator: true, contact: true},
		{username: "other", code: "2020-1-SCI-042"},
		{username: "", code: "2020-1-SCI-044"},
		{username: "pi", code: "2099-1-SCI-001"},
	}
	for _, tc := range cases {
		auth, err := authority.Lookup(ctx, tc.username, tc.code)
		require.NoError(t, err)
		assert.Equal(t, tc.investigator, auth.Investigator, "%s/%s", tc.username, tc.code)
		assert.Equal(t, tc.contact, auth.Contact, "%s/%s", tc.username, tc.code)
	}
	assert.Equal(t, len(cases), finder.calls)

	ok, err := authority.IsPrincipalInvestigator(ctx, "pi", "2020-1-SCI-042")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = authority.IsPrincipalContact(ctx, "pi", "2020-1-SCI-042")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelegatedAuthorityPropagatesErrors(t *testing.T) {
	boom := errors.New("timeout")
	_, err := NewDelegatedAuthority(&countingFinder{err: boom}).Lookup(context.Background(), "pi", "2020-1-SCI-042")
	assert.ErrorIs(t, err, boom)
}
