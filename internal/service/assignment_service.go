package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/internal/repository"
)

// AssignmentService picks who handles a triaged ticket.
type AssignmentService struct {
	users repository.UserRepository
}

// NewAssignmentService constructs the service.
func NewAssignmentService(users repository.UserRepository) *AssignmentService {
	return &AssignmentService{users: users}
}

// SelectAssignee returns a moderator sharing one of skills, else an admin,
// else nil. Among several candidates the choice depends only on ticketID,
// so repeated runs pick the same user.
func (s *AssignmentService) SelectAssignee(ctx context.Context, ticketID string, skills []string) (*domain.User, error) {
	if len(skills) > 0 {
		moderator := domain.RoleModerator
		candidates, err := s.users.List(ctx, repository.UserFilter{Role: &moderator, AnySkills: skills})
		if err != nil {
			return nil, fmt.Errorf("list moderators: %w", err)
		}
		if len(candidates) > 0 {
			return &candidates[selectIndex(ticketID, len(candidates))], nil
		}
	}

	admin := domain.RoleAdmin
	candidates, err := s.users.List(ctx, repository.UserFilter{Role: &admin})
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[selectIndex(ticketID, len(candidates))], nil
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}
