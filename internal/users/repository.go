package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saltastro/saltapi/internal/platform/db"
	"github.com/saltastro/saltapi/internal/rbac"
	"github.com/saltastro/saltapi/internal/shared"
)

// Repository provides PostgreSQL backed access to the user database.
// Passwords are compared by the database's own hashing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FindUserByCredentials returns the user with the given username and password.
func (r *Repository) FindUserByCredentials(ctx context.Context, username, password string) (*shared.Identity, error) {
	var user *shared.Identity
	err := db.ReadOnly(ctx, r.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, findUserByCredentials, NormalizeUsername(username), password).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		user, err = findUserByIDWith(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("users: find by credentials: %w", err)
	}
	return user, nil
}

// FindUserByID returns the user with the given id.
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*shared.Identity, error) {
	user, err := findUserByIDWith(ctx, r.pool, id)
	if err != nil {
		return nil, fmt.Errorf("users: find by id: %w", err)
	}
	return user, nil
}

func findUserByIDWith(ctx context.Context, q rowQuerier, id int64) (*shared.Identity, error) {
	var user shared.Identity
	err := q.QueryRow(ctx, findUserByID, id).Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindUserRoleSettings returns the raw settings rows of a user. A user
// without settings yields a single row with empty key and value.
func (r *Repository) FindUserRoleSettings(ctx context.Context, id int64) ([]rbac.Setting, error) {
	rows, err := r.pool.Query(ctx, findUserRoleSettings, id)
	if err != nil {
		return nil, fmt.Errorf("users: role settings: %w", err)
	}
	defer rows.Close()
	var settings []rbac.Setting
	for rows.Next() {
		var key, value pgtype.Text
		var active bool
		if err := rows.Scan(&key, &value, &active); err != nil {
			return nil, fmt.Errorf("users: scan role setting: %w", err)
		}
		settings = append(settings, rbac.Setting{Key: key.String, Value: value.String, Active: active})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: role settings: %w", err)
	}
	return settings, nil
}

// FindProposalContacts returns the PI and PC usernames of a proposal in one query.
func (r *Repository) FindProposalContacts(ctx context.Context, proposalCode string) (ProposalContacts, error) {
	var leader, contact pgtype.Text
	err := r.pool.QueryRow(ctx, findProposalContacts, proposalCode).Scan(&leader, &contact)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProposalContacts{}, nil
		}
		return ProposalContacts{}, fmt.Errorf("users: proposal contacts: %w", err)
	}
	return ProposalContacts{Investigator: leader.String, Contact: contact.String}, nil
}

var _ Store = (*Repository)(nil)
