package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithInternalKeepsOriginalUntouched(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := ErrUnauthorized.WithInternal(cause)

	require.Nil(t, ErrUnauthorized.Internal)
	require.Equal(t, cause, wrapped.Internal)
	require.Equal(t, ErrUnauthorized.Message, wrapped.Message)
	require.ErrorIs(t, wrapped, cause)
}

func TestWithMessageKeepsStatus(t *testing.T) {
	custom := ErrNotFound.WithMessage("route /x not found")
	require.Equal(t, http.StatusNotFound, custom.StatusCode)
	require.Equal(t, "route /x not found", custom.Message)
	require.Equal(t, "Resource not found", ErrNotFound.Message)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrForbidden)
	require.Equal(t, http.StatusForbidden, appErr.StatusCode)

	generic := FromError(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, generic.StatusCode)
	require.Equal(t, "Internal server error", generic.Message)
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	appErr := Wrap(cause, "Internal server error")

	require.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	require.Equal(t, "Internal server error", appErr.Message)
	require.ErrorIs(t, appErr, cause)
	require.Contains(t, appErr.Error(), "dial tcp")
}

func TestErrorString(t *testing.T) {
	require.Equal(t, "Authentication required", ErrUnauthorized.Error())
	var nilErr *AppError
	require.Equal(t, "<nil>", nilErr.Error())
}
