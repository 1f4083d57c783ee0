// Package api contains the HTTP API contract of the clinical QC service.
// Version v1 represents the current stable API version.
package api

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RunRequest starts a pipeline run over selected datasets
type RunRequest struct {
	// Datasets lists dataset types; empty means every registered dataset
	Datasets []string `json:"datasets,omitempty" validate:"omitempty,dive,required"`
	// Seed overrides the configured imputation seed
	Seed *uint64 `json:"seed,omitempty"`
	// MaxRounds overrides the configured imputation rounds when positive
	MaxRounds int `json:"max_rounds,omitempty" validate:"gte=0,lte=100"`
	// SamplePosterior toggles posterior sampling for this run
	SamplePosterior *bool `json:"sample_posterior,omitempty"`
}

// Bind implements render.Binder. It trims dataset names and validates the request.
func (r *RunRequest) Bind(_ *http.Request) error {
	for i, d := range r.Datasets {
		r.Datasets[i] = strings.TrimSpace(d)
	}
	return validate.Struct(r)
}

// FileListRequest selects one area of the data tree
type FileListRequest struct {
	Area string `json:"area" validate:"omitempty,oneof=raw canonical processed reports"`
}

// Validate checks the request against its tags
func (r FileListRequest) Validate() error {
	return validate.Struct(r)
}
