package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Common error types following RFC 7807
const (
	TypeValidation     = "/errors/validation"
	TypeNotFound       = "/errors/not-found"
	TypeRateLimit      = "/errors/rate-limit"
	TypeInternal       = "/errors/internal"
	TypeTimeout        = "/errors/timeout"
	TypeMethodNotAllow = "/errors/method-not-allowed"
)

// Domain-specific error types
const (
	TypeMissingInput   = "/errors/data/missing-input"
	TypeSchemaMismatch = "/errors/data/schema-mismatch"
	TypeImputation     = "/errors/data/imputation-failed"
	TypeDataCorrupted  = "/errors/data/corrupted"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := ErrorToProblem(err, r.URL.Path)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", string(debug.Stack()))
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func ErrorToProblem(err error, instance string) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			instance,
		)
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			instance,
		)
	}

	status, problemType := statusForType(appErr.Type)
	problem := NewProblemDetails(status, problemType, http.StatusText(status), appErr.Error(), instance).
		WithExtension("error_type", string(appErr.Type))
	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}
	return problem
}

// statusForType maps an AppError type to an HTTP status and problem type
func statusForType(t ErrorType) (int, string) {
	switch t {
	case ErrTypeMissingInput:
		return http.StatusNotFound, TypeMissingInput
	case ErrTypeNotFound:
		return http.StatusNotFound, TypeNotFound
	case ErrTypeSchemaMismatch:
		return http.StatusBadRequest, TypeSchemaMismatch
	case ErrTypeValidation:
		return http.StatusBadRequest, TypeValidation
	case ErrTypeParsing:
		return http.StatusBadRequest, TypeDataCorrupted
	case ErrTypeImputation:
		return http.StatusUnprocessableEntity, TypeImputation
	default:
		return http.StatusInternalServerError, TypeInternal
	}
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
	}

	render.Render(w, r, problem)
}

// NotFound handles 404 errors
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		fmt.Sprintf("The requested resource %s was not found", r.URL.Path),
		r.URL.Path,
	)
	render.Render(w, r, problem)
}

// MethodNotAllowed handles 405 errors
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllow,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for %s", r.Method, r.URL.Path),
		r.URL.Path,
	)
	render.Render(w, r, problem)
}

// Recoverer is a middleware that turns panics into problem responses
func (h *ErrorHandler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.HandlePanic(w, r, rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
