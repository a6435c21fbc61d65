package rbac

import (
	"context"
	"fmt"

	"github.com/saltastro/saltapi/internal/shared"
)

// Operation names a protected API operation.
type Operation string

// Protected operations.
const (
	OpAuthenticated     Operation = "authenticated"
	OpSubmitProposal    Operation = "submit_proposal"
	OpViewProposal      Operation = "view_proposal"
	OpViewUserDetails   Operation = "view_user_details"
	OpUpdateUserDetails Operation = "update_user_details"
	OpUpdatePermissions Operation = "update_permissions"
)

// Rule lists the roles and permissions that grant an operation outright.
type Rule struct {
	Roles       []shared.Role
	Permissions []shared.Permission
}

// Rules declares the global requirements of every protected operation.
var Rules = map[Operation]Rule{
	OpAuthenticated: {},
	OpSubmitProposal: {
		Roles:       []shared.Role{shared.RoleAdministrator},
		Permissions: []shared.Permission{shared.PermSubmitAnyProposal},
	},
	OpViewProposal: {
		Roles:       []shared.Role{shared.RoleAdministrator},
		Permissions: []shared.Permission{shared.PermViewAnyProposal},
	},
	OpViewUserDetails: {
		Roles:       []shared.Role{shared.RoleAdministrator},
		Permissions: []shared.Permission{shared.PermViewAnyUserDetails},
	},
	OpUpdateUserDetails: {
		Roles:       []shared.Role{shared.RoleAdministrator},
		Permissions: []shared.Permission{shared.PermUpdateAnyUserDetails},
	},
	OpUpdatePermissions: {
		Roles:       []shared.Role{shared.RoleAdministrator},
		Permissions: []shared.Permission{shared.PermUpdatePermissions},
	},
}

// OperationContext carries the arguments of the operation being authorized.
type OperationContext struct {
	// ProposalCode is empty when a new proposal is being created.
	ProposalCode string
	// UserID is the subject of user-details operations.
	UserID int64
}

// Authority tells whether a user is the Principal Investigator and/or the
// Principal Contact of a proposal.
type Authority struct {
	Investigator bool
	Contact      bool
}

// DelegatedAuthority looks up per-proposal authority. Both relations are
// answered by a single lookup.
type DelegatedAuthority interface {
	Lookup(ctx context.Context, username, proposalCode string) (Authority, error)
}

// DecisionRecorder observes authorization outcomes.
type DecisionRecorder interface {
	RecordDecision(op string, allowed bool)
}

// Policy decides whether a principal may perform an operation.
type Policy struct {
	authority DelegatedAuthority
	recorder  DecisionRecorder
	rules     map[Operation]Rule
}

// NewPolicy constructs a Policy using the default Rules table.
func NewPolicy(authority DelegatedAuthority, recorder DecisionRecorder) *Policy {
	return &Policy{authority: authority, recorder: recorder, rules: Rules}
}

// Authorize reports whether p may perform op. Global permissions and roles
// are checked first; delegated authority is only looked up when they fail.
func (pol *Policy) Authorize(ctx context.Context, p *shared.Principal, op Operation, oc OperationContext) (bool, error) {
	allowed, err := pol.authorize(ctx, p, op, oc)
	if pol.recorder != nil && err == nil {
		pol.recorder.RecordDecision(string(op), allowed)
	}
	return allowed, err
}

func (pol *Policy) authorize(ctx context.Context, p *shared.Principal, op Operation, oc OperationContext) (bool, error) {
	rule, ok := pol.rules[op]
	if !ok {
		return false, fmt.Errorf("rbac: unknown operation %q", op)
	}
	if p == nil || !p.HasScope(shared.ScopeAuthenticated) {
		return false, nil
	}
	if PermissionsFor(p.Roles).HasAny(rule.Permissions...) {
		return true, nil
	}
	if p.HasAnyRole(rule.Roles...) {
		return true, nil
	}

	switch op {
	case OpAuthenticated:
		return true, nil
	case OpSubmitProposal:
		if oc.ProposalCode == "" {
			return true, nil
		}
		return pol.delegated(ctx, p, oc.ProposalCode)
	case OpViewProposal:
		if oc.ProposalCode == "" {
			return false, nil
		}
		return pol.delegated(ctx, p, oc.ProposalCode)
	case OpViewUserDetails, OpUpdateUserDetails:
		return oc.UserID != 0 && oc.UserID == p.Identity.ID, nil
	}
	return false, nil
}

func (pol *Policy) delegated(ctx context.Context, p *shared.Principal, code string) (bool, error) {
	if pol.authority == nil {
		return false, nil
	}
	auth, err := pol.authority.Lookup(ctx, p.Identity.Username, code)
	if err != nil {
		return false, fmt.Errorf("rbac: delegated authority for %s: %w", code, err)
	}
	return auth.Investigator || auth.Contact, nil
}

// Require is the gate form of Authorize. Anonymous callers get
// shared.ErrUnauthenticated, everybody else shared.ErrNotAuthorized; the
// error never says what would have granted access.
func (pol *Policy) Require(ctx context.Context, p *shared.Principal, op Operation, oc OperationContext) error {
	allowed, err := pol.Authorize(ctx, p, op, oc)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	if p == nil {
		return shared.ErrUnauthenticated
	}
	return shared.ErrNotAuthorized
}
