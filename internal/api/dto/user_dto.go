package dto

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

// SignupRequest payload for new accounts.
type SignupRequest struct {
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=6,max=72"`
	Skills   SkillList `json:"skills"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest changes the role and/or skills of the account with Email.
type UpdateUserRequest struct {
	Email  string     `json:"email" validate:"required,email"`
	Role   *string    `json:"role" validate:"omitempty,oneof=user moderator admin"`
	Skills *SkillList `json:"skills"`
}

// SkillList decodes either a JSON array of strings or a comma-separated string.
type SkillList []string

var errSkillList = errors.New("skills must be an array of strings or a comma-separated string")

func (s *SkillList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = domain.CleanSkills(list)
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return errSkillList
	}
	*s = domain.CleanSkills(strings.Split(joined, ","))
	return nil
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public shape of an account. The password hash is never
// part of it.
type UserResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Skills    []string    `json:"skills"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	return UserResponse{ID: u.ID, Email: u.Email, Role: u.Role, Skills: skills, CreatedAt: u.CreatedAt}
}
