package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"missing input", NewMissingInputError("x.csv", nil), http.StatusNotFound, TypeMissingInput},
		{"schema mismatch", NewSchemaMismatchError("diabetes", 9, 3), http.StatusBadRequest, TypeSchemaMismatch},
		{"imputation", fmt.Errorf("wrapped: %w", NewImputationError("BMI", "no rows", nil)), http.StatusUnprocessableEntity, TypeImputation},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ErrorToProblem(tt.err, "/api/v1/test")
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, "/api/v1/test", p.Instance)
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/diabetes", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, NewSchemaMismatchError("diabetes", 9, 2))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeSchemaMismatch, body["type"])
	assert.Equal(t, "SCHEMA_MISMATCH", body["error_type"])
	assert.Equal(t, "diabetes", body["dataset"])
}

func TestErrorHandler_Recoverer(t *testing.T) {
	h := NewErrorHandler(nil, true)
	handler := h.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "kaboom")
}

func TestErrorHandler_NotFound(t *testing.T) {
	h := NewErrorHandler(nil, false)
	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/nope")
}
