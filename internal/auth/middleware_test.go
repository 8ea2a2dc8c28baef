package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/pkg/util"
)

type stubUsers map[string]*domain.User

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func newTestApp(t *testing.T, users stubUsers, guards ...fiber.Handler) (*fiber.App, *TokenManager) {
	t.Helper()
	tokens := NewTokenManager("secret", time.Hour)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := util.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	handlers := []fiber.Handler{NewAuthMiddleware(tokens, users).Handle}
	handlers = append(handlers, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(string(p.Role()))
	})
	app.Get("/me", handlers...)
	return app, tokens
}

func doGet(t *testing.T, app *fiber.App, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestAuthMiddleware_UsesStoredRole(t *testing.T) {
	users := stubUsers{"u1": {ID: "u1", Role: domain.RoleAdmin}}
	app, tokens := newTestApp(t, users)

	// token still says "user"; the account was promoted since
	token, _, err := tokens.GenerateToken("u1", domain.RoleUser)
	require.NoError(t, err)

	status, body := doGet(t, app, token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin", body)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	users := stubUsers{"u1": {ID: "u1", Role: domain.RoleUser}}
	app, tokens := newTestApp(t, users)
	ghost, _, err := tokens.GenerateToken("gone", domain.RoleUser)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"bad token":      "garbage",
		"deleted user":   ghost,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := doGet(t, app, token)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "UNAUTHORIZED", body)
		})
	}
}

func TestRequireRole(t *testing.T) {
	users := stubUsers{
		"user":  {ID: "user", Role: domain.RoleUser},
		"admin": {ID: "admin", Role: domain.RoleAdmin},
	}
	app, tokens := newTestApp(t, users, RequireRole(domain.RoleAdmin))

	userToken, _, err := tokens.GenerateToken("user", domain.RoleUser)
	require.NoError(t, err)
	adminToken, _, err := tokens.GenerateToken("admin", domain.RoleAdmin)
	require.NoError(t, err)

	status, body := doGet(t, app, userToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body)

	status, _ = doGet(t, app, adminToken)
	assert.Equal(t, http.StatusOK, status)
}
