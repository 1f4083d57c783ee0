package operations

import (
	"context"
	"errors"
	"fmt"

	apperrors "clinicalqc/internal/errors"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeDependency   ErrorType = "dependency"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeNotFound     ErrorType = "not_found"
)

// OperationError wraps a stage failure with the stage and dataset it happened in
type OperationError struct {
	Type    ErrorType `json:"type"`
	Step    string    `json:"step,omitempty"`
	Dataset string    `json:"dataset,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Dataset != "" {
		prefix += " " + e.Dataset
	}
	if e.Step != "" {
		prefix += "/" + e.Step
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates a new execution error
func NewExecutionError(dataset, step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeExecution,
		Step:    step,
		Dataset: dataset,
		Message: "stage execution failed",
		Cause:   cause,
	}
}

// NewDependencyError creates an error for a step whose dependency did not complete
func NewDependencyError(dataset, step, dependsOn string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeDependency,
		Step:    step,
		Dataset: dataset,
		Message: fmt.Sprintf("dependency %s did not complete", dependsOn),
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(dataset, step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeTimeout,
		Step:    step,
		Dataset: dataset,
		Message: "stage exceeded its timeout",
		Cause:   cause,
	}
}

// NewCancellationError creates a new cancellation error
func NewCancellationError(dataset, step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Dataset: dataset,
		Message: "run was cancelled",
		Cause:   cause,
	}
}

// wrapStageError classifies err returned by a stage
func wrapStageError(dataset, step string, err error) *OperationError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(dataset, step, err)
	case errors.Is(err, context.Canceled):
		return NewCancellationError(dataset, step, err)
	default:
		return NewExecutionError(dataset, step, err)
	}
}

// GetErrorType returns the operation error type of err
func GetErrorType(err error) ErrorType {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	if err == nil {
		return ""
	}
	return ErrorTypeExecution
}

// errorTypeLabel names err for reports: the application error type when the
// chain carries one, otherwise the operation error type.
func errorTypeLabel(err error) string {
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	return string(GetErrorType(err))
}
