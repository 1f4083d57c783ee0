package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMissingInput        ErrorType = "MISSING_INPUT"
	ErrTypeSchemaMismatch      ErrorType = "SCHEMA_MISMATCH"
	ErrTypeImputation          ErrorType = "IMPUTATION"
	ErrTypeConstraintViolation ErrorType = "CONSTRAINT_VIOLATION"
	ErrTypeNetwork             ErrorType = "NETWORK"
	ErrTypeParsing             ErrorType = "PARSING"
	ErrTypeStorage             ErrorType = "STORAGE"
	ErrTypeValidation          ErrorType = "VALIDATION"
	ErrTypeNotFound            ErrorType = "NOT_FOUND"
	ErrTypeConfig              ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError of the same type, so callers can write
// errors.Is(err, &AppError{Type: ErrTypeSchemaMismatch}).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain contains an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// Helper functions for common error types

// NewMissingInputError creates an error for a required input table that is absent
func NewMissingInputError(path string, cause error) *AppError {
	return NewAppError(ErrTypeMissingInput, fmt.Sprintf("input not found: %s", path), cause).
		WithContext("path", path)
}

// NewSchemaMismatchError creates an error for a table whose columns do not match the dataset spec
func NewSchemaMismatchError(dataset string, expected, actual int) *AppError {
	return NewAppError(ErrTypeSchemaMismatch,
		fmt.Sprintf("%s: expected %d columns, got %d", dataset, expected, actual), nil).
		WithContext("dataset", dataset).
		WithContext("expected_columns", expected).
		WithContext("actual_columns", actual)
}

// NewImputationError creates an error for a column whose regression could not be fit
func NewImputationError(column string, message string, cause error) *AppError {
	return NewAppError(ErrTypeImputation, fmt.Sprintf("column %s: %s", column, message), cause).
		WithContext("column", column)
}

// NewConstraintViolation creates a non-fatal constraint warning
func NewConstraintViolation(column string, altered int, fraction float64) *AppError {
	return NewAppError(ErrTypeConstraintViolation,
		fmt.Sprintf("column %s: %d values altered (%.1f%%)", column, altered, fraction*100), nil).
		WithContext("column", column).
		WithContext("altered", altered).
		WithContext("fraction", fraction)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
