package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughWrapped(t *testing.T) {
	err := fmt.Errorf("login: %w", NewUnauthorized("invalid email or password"))

	de := ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, CodeUnauthorized, de.Code)
	assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	assert.True(t, Is(err, CodeUnauthorized))
}

func TestToDomainError_HidesInternalDetail(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:5432: connection refused")

	de := ToDomainError(cause)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "internal server error", de.Message)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.ErrorIs(t, de, cause)
}

func TestToDomainError_FiberErrors(t *testing.T) {
	de := ToDomainError(fiber.ErrNotFound)
	assert.Equal(t, CodeNotFound, de.Code)

	de = ToDomainError(fiber.NewError(http.StatusRequestEntityTooLarge, "too large"))
	assert.Equal(t, CodeBadRequest, de.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, de.HTTPStatus)

	de = ToDomainError(fiber.ErrBadGateway)
	assert.Equal(t, CodeInternal, de.Code)
}

func TestNewValidationError_Fields(t *testing.T) {
	fields := FieldErrors{}
	fields.Add("password", "Password must be at least 8 characters")
	fields.Add("password", "Password must contain at least one number")

	de := ToDomainError(NewValidationError(fields))
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, CodeValidationFailed, de.Code)
	assert.Len(t, de.Details["fields"].(FieldErrors)["password"], 2)
	assert.Nil(t, ToDomainError(nil))
}
