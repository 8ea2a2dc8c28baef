package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-ai/internal/api/dto"
	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/internal/service"
)

// UsersHandler serves admin account management.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// ListUsers GET /api/auth/users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	limit, offset := page(c)
	users, err := h.users.ListUsers(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateUser POST /api/auth/update-user.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	input := service.UpdateUserInput{Email: req.Email}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}
	if req.Skills != nil {
		skills := []string(*req.Skills)
		input.Skills = &skills
	}

	user, err := h.users.UpdateUser(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
