package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found sentinel", fmt.Errorf("get ticket: %w", domain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"conflict sentinel", domain.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"unauthorized sentinel", domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden sentinel", domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"domain error passthrough", NewValidationError("bad", nil), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"fiber not found", fiber.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"fiber method", fiber.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"unknown", errors.New("pq: something broke"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			assert.Equal(t, tc.status, de.HTTPStatus)
			assert.Equal(t, tc.code, de.Code)
		})
	}
}

func TestToDomainError_HidesInternalDetail(t *testing.T) {
	de := ToDomainError(errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.Equal(t, "internal server error", de.Message)
	assert.NotContains(t, de.Message, "10.0.0.5")
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
}
