package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "FORBIDDEN: Forbidden", Forbidden().Error())
	assert.Equal(t,
		"VALIDATION_FAILED: Validation failed (email is required; password is too short)",
		Validation([]string{"email is required", "password is too short"}).Error(),
	)

	var nilErr *APIError
	assert.Equal(t, "", nilErr.Error())
}

func TestAuthErrorsHaveFixedShape(t *testing.T) {
	t.Parallel()

	wrong := WrongCredentials()
	assert.Equal(t, http.StatusBadRequest, wrong.HTTPStatus)
	assert.Equal(t, "Wrong credentials", wrong.Message)

	forbidden := Forbidden()
	assert.Equal(t, http.StatusForbidden, forbidden.HTTPStatus)
	assert.Equal(t, "Forbidden", forbidden.Message)

	notFound := RouteNotFound()
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)
	assert.Equal(t, "Route not found", notFound.Message)
}

func TestAPIError_SurvivesWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("login: %w", WrongCredentials())

	var apiErr *APIError
	require.True(t, errors.As(wrapped, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
}
