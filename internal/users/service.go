package users

import (
	"context"

	"github.com/saltastro/saltapi/internal/shared"
)

// Service handles user lookups for the API.
type Service struct {
	store Store
}

// NewService builds Service instance.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// User returns the user with the given id or shared.ErrNotFound.
func (s *Service) User(ctx context.Context, id int64) (*shared.Identity, error) {
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.ErrNotFound
	}
	return user, nil
}
