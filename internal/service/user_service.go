package service

import (
	"context"
	"errors"

	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/internal/repository"
	"github.com/spec-kit/ticket-ai/pkg/util"
)

// UpdateUserInput changes a user's role and/or skills. Nil fields are kept.
type UpdateUserInput struct {
	Email  string
	Role   *domain.Role
	Skills *[]string
}

// UserService serves the admin user-management operations.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// ListUsers returns accounts oldest first.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users, err := s.users.List(ctx, repository.UserFilter{Limit: limit, Offset: offset})
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return users, nil
}

// UpdateUser persists role and skill changes for the account with the
// given email.
func (s *UserService) UpdateUser(ctx context.Context, input UpdateUserInput) (*domain.User, error) {
	if input.Role != nil && !input.Role.Valid() {
		return nil, util.NewValidationError("invalid role", map[string]any{"role": string(*input.Role)})
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, util.NewNotFound("user", map[string]any{"email": input.Email})
		}
		return nil, util.NewInternalError(err)
	}

	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Skills != nil {
		user.Skills = domain.CleanSkills(*input.Skills)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, util.MapError(err)
	}
	return user, nil
}
