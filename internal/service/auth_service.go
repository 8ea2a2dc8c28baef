package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ai/internal/auth"
	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/internal/events"
	"github.com/spec-kit/ticket-ai/internal/repository"
	"github.com/spec-kit/ticket-ai/pkg/util"
)

// Publisher enqueues domain events.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// SignupInput carries registration fields.
type SignupInput struct {
	Email    string
	Password string
	Skills   []string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	publisher  Publisher
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, publisher Publisher, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		publisher:  publisher,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Signup creates a user account with the default role.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, util.NewValidationError("email and password are required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, util.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, util.NewInternalError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, util.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Skills:       domain.CleanSkills(input.Skills),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, util.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, util.NewInternalError(err)
	}

	s.publishSignup(ctx, user.Email)
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, util.NewDomainError("NOT_FOUND", "no account found for this email", http.StatusNotFound, nil)
		}
		return nil, util.NewInternalError(err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, util.NewInternalError(fmt.Errorf("check password: %w", err))
	}
	if !ok {
		return nil, util.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// Verify validates a token and returns its claims.
func (s *AuthService) Verify(token string) (*auth.Claims, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, util.NewUnauthorized("invalid token")
	}
	return claims, nil
}

// Logout checks the token signature. Tokens are stateless, so nothing is
// revoked; the client discards its copy.
func (s *AuthService) Logout(token string) error {
	_, err := s.Verify(token)
	return err
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, util.NewInternalError(fmt.Errorf("sign token: %w", err))
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) publishSignup(ctx context.Context, email string) {
	if s.publisher == nil {
		return
	}
	event, err := events.NewEvent(events.EventUserSignup, events.UserSignupPayload{Email: email})
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		s.logger.Warn("publish signup event failed", zap.String("email", email), zap.Error(err))
	}
}
