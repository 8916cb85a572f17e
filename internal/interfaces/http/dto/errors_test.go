package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{"not found maps to 404", ErrCodeNotFound, http.StatusNotFound},
		{"already exists maps to 409", ErrCodeAlreadyExists, http.StatusConflict},
		{"concurrency conflict maps to 409", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"insufficient stock maps to 422", ErrCodeInsufficientStock, http.StatusUnprocessableEntity},
		{"replay stock conflict maps to 409", ErrCodeStockConflict, http.StatusConflict},
		{"unmapped ingredient maps to 422", ErrCodeUnmappedIngredient, http.StatusUnprocessableEntity},
		{"foreign mapping maps to 422", ErrCodeForeignMapping, http.StatusUnprocessableEntity},
		{"unit mismatch maps to 422", ErrCodeUnitMismatch, http.StatusUnprocessableEntity},
		{"bad request maps to 400", ErrCodeBadRequest, http.StatusBadRequest},
		{"unauthorized maps to 401", ErrCodeUnauthorized, http.StatusUnauthorized},
		{"unknown code maps to 500", "ERR_SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	t.Run("maps known domain codes", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("RECIPE_NOT_FOUND"))
		assert.Equal(t, ErrCodeStockConflict, NormalizeErrorCode("INSUFFICIENT_STOCK_AT_COMMIT"))
		assert.Equal(t, ErrCodeUnmappedIngredient, NormalizeErrorCode("UNMAPPED_INGREDIENT"))
		assert.Equal(t, ErrCodeForeignMapping, NormalizeErrorCode("FOREIGN_MAPPING"))
		assert.Equal(t, ErrCodeUnitMismatch, NormalizeErrorCode("UNIT_MISMATCH"))
	})

	t.Run("collapses INVALID_ codes to invalid input", func(t *testing.T) {
		assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_QUANTITY"))
		assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_TRANSFER"))
		assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_UNIT"))
	})

	t.Run("INVALID_STATE keeps its own mapping", func(t *testing.T) {
		assert.Equal(t, ErrCodeInvalidState, NormalizeErrorCode("INVALID_STATE"))
	})

	t.Run("passes through standardized and unknown codes", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
		assert.Equal(t, "SOMETHING_ELSE", NormalizeErrorCode("SOMETHING_ELSE"))
	})
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Item not found", "req-123")

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Item not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "quantity", Message: "must be positive"},
		{Field: "store_id", Message: "required"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-456", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "quantity", resp.Error.Details[0].Field)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 41, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
