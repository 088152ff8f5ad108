package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation", NewValidationError("name is required"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError(""), http.StatusUnauthorized},
		{"recipe not found", NewRecipeNotFoundError("r1"), http.StatusNotFound},
		{"item not found", NewShoppingItemNotFoundError("i1"), http.StatusNotFound},
		{"not manual", NewItemNotManualError("i1"), http.StatusUnprocessableEntity},
		{"list conflict", NewListConflictError("u1"), http.StatusConflict},
		{"database", NewDatabaseError("save list", stderrors.New("boom")), http.StatusInternalServerError},
		{"unavailable", NewAppError(CodeServiceUnavailable, "down", ""), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestWrapAndInspect(t *testing.T) {
	cause := stderrors.New("connection refused")

	wrapped := Wrap(cause, "failed to load list")
	require.NotNil(t, wrapped)
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.ErrorIs(t, wrapped, cause)

	notFound := NewShoppingItemNotFoundError("abc")
	assert.Same(t, notFound, Wrap(notFound, "ignored"))
	assert.Same(t, notFound, Wrap(fmt.Errorf("handler: %w", notFound), "ignored"))
	assert.True(t, Is(fmt.Errorf("ctx: %w", notFound), CodeShoppingItemNotFound))
	assert.Equal(t, CodeInternal, GetCode(cause))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestNewNotFoundError(t *testing.T) {
	assert.Equal(t, "Recipe not found", NewNotFoundError("recipe").Message)
	assert.Equal(t, "Resource not found", NewNotFoundError("").Message)
}

func TestToErrorResponse(t *testing.T) {
	err := NewShoppingItemNotFoundError("abc")

	resp := ToErrorResponse(err, "req-1")

	assert.Equal(t, CodeShoppingItemNotFound, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, "abc", resp.Error.Metadata["item_id"])
	assert.NotEmpty(t, resp.Error.Timestamp)
}

func TestValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "name", Tag: "required", Message: "name is required"},
		{Field: "quantity", Tag: "gte", Message: "quantity must be >= 0"},
	})

	assert.Equal(t, CodeValidationFailed, err.Code)
	assert.Equal(t, "name is required; quantity must be >= 0", err.Details)
}
