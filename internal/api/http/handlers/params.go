package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-ai/internal/api/dto"
	"github.com/spec-kit/ticket-ai/internal/auth"
	"github.com/spec-kit/ticket-ai/internal/domain"
	"github.com/spec-kit/ticket-ai/pkg/util"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	// maxPage bounds (page-1)*page_size well below int overflow.
	maxPage = 1 << 20
)

// page reads limit/offset from page and page_size query parameters.
func page(c *fiber.Ctx) (limit, offset int) {
	p := min(parseInt(c.Query("page"), 1), maxPage)
	size := min(parseInt(c.Query("page_size"), defaultPageSize), maxPageSize)
	return size, (p - 1) * size
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// bind parses the JSON body into req and validates it.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return util.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	return dto.Validate(req)
}

func caller(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, util.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}
