package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("invalid input")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Nil(t, err.Cause)
	assert.NotNil(t, err.Context)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Contains(t, err.Error(), "validation")
	assert.Contains(t, err.Error(), "invalid input")
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("not_found")

	assert.Equal(t, TypeNotFound, err.Type)
	assert.Equal(t, "not_found", err.Message)
	assert.Nil(t, err.Cause)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
}

func TestInternalError(t *testing.T) {
	cause := fmt.Errorf("database connection failed")
	err := InternalError("failed to save item", cause)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, "failed to save item", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Contains(t, err.Error(), "internal")
	assert.Contains(t, err.Error(), "database connection failed")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := InternalError("wrapper", cause)

	assert.ErrorIs(t, err, cause)
}

func TestWithContext(t *testing.T) {
	err := ValidationError("bad field").
		WithContext("field", "text").
		WithField("value", "")

	assert.Equal(t, "text", err.Context["field"])
	assert.Equal(t, "", err.Context["value"])
}

func TestToResponse_Envelope(t *testing.T) {
	resp := ValidationError("text must be a non-empty string").ToResponse()

	assert.False(t, resp.OK)
	assert.Equal(t, "text must be a non-empty string", resp.Error)
}

func TestToResponse_InternalHidesCause(t *testing.T) {
	resp := InternalError("failed to list items", errors.New("pq: connection reset")).ToResponse()

	assert.False(t, resp.OK)
	assert.Equal(t, "internal server error", resp.Error)
	assert.NotContains(t, resp.Error, "pq:")
}

func TestAsStructuredError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsStructuredError(nil))
	})

	t.Run("already structured", func(t *testing.T) {
		orig := NotFoundError("not_found")
		assert.Same(t, orig, AsStructuredError(orig))
	})

	t.Run("wrapped structured", func(t *testing.T) {
		orig := ValidationError("bad input")
		wrapped := fmt.Errorf("handler: %w", orig)
		assert.Same(t, orig, AsStructuredError(wrapped))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		err := AsStructuredError(errors.New("boom"))
		require.NotNil(t, err)
		assert.Equal(t, TypeInternal, err.Type)
		assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	})
}
