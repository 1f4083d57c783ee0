package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewAppError(ErrTypeValidation, "bad input", nil),
			expected: "[VALIDATION] bad input",
		},
		{
			name:     "with cause",
			err:      NewAppError(ErrTypeStorage, "write failed", fmt.Errorf("disk full")),
			expected: "[STORAGE] write failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewMissingInputError("data/raw/x.csv", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "data/raw/x.csv", err.Context["path"])
}

func TestTypeOf(t *testing.T) {
	schema := NewSchemaMismatchError("diabetes", 9, 8)
	wrapped := fmt.Errorf("canonicalize: %w", schema)

	assert.Equal(t, ErrTypeSchemaMismatch, TypeOf(wrapped))
	assert.True(t, IsType(wrapped, ErrTypeSchemaMismatch))
	assert.False(t, IsType(wrapped, ErrTypeImputation))
	assert.False(t, IsType(nil, ErrTypeImputation))
	assert.Equal(t, ErrorType(""), TypeOf(fmt.Errorf("plain")))
}

func TestAppError_IsMatchesType(t *testing.T) {
	err := fmt.Errorf("impute: %w", NewImputationError("Glucose", "too few observed rows", nil))

	assert.True(t, errors.Is(err, &AppError{Type: ErrTypeImputation}))
	assert.False(t, errors.Is(err, &AppError{Type: ErrTypeSchemaMismatch}))
}

func TestHelpers(t *testing.T) {
	t.Run("schema mismatch", func(t *testing.T) {
		err := NewSchemaMismatchError("diabetes", 9, 8)
		assert.Equal(t, ErrTypeSchemaMismatch, err.Type)
		assert.Contains(t, err.Error(), "expected 9 columns, got 8")
		assert.Equal(t, 9, err.Context["expected_columns"])
	})

	t.Run("imputation", func(t *testing.T) {
		err := NewImputationError("Insulin", "singular", nil)
		assert.Equal(t, ErrTypeImputation, err.Type)
		assert.Equal(t, "Insulin", err.Context["column"])
	})

	t.Run("constraint violation", func(t *testing.T) {
		err := NewConstraintViolation("Age", 30, 0.3)
		assert.Equal(t, ErrTypeConstraintViolation, err.Type)
		assert.Contains(t, err.Error(), "30.0%")
	})

	t.Run("not found", func(t *testing.T) {
		err := NewNotFoundError("dataset")
		require.NotNil(t, err)
		assert.Equal(t, "[NOT_FOUND] dataset not found", err.Error())
	})
}
