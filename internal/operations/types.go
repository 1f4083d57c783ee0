package operations

import (
	"time"
)

// Stage identifiers, in execution order
const (
	StageIDFetch        = "fetch"
	StageIDParse        = "parse"
	StageIDCanonicalize = "canonicalize"
	StageIDImpute       = "impute"
	StageIDEnforce      = "enforce"
	StageIDAudit        = "audit"
	StageIDExport       = "export"
)

// Stage names
const (
	StageNameFetch        = "Raw Acquisition"
	StageNameParse        = "Raw Parsing"
	StageNameCanonicalize = "Canonicalization"
	StageNameImpute       = "Iterative Imputation"
	StageNameEnforce      = "Constraint Enforcement"
	StageNameAudit        = "Quality Audit"
	StageNameExport       = "Export"
)

// Default timeouts
const (
	DefaultStageTimeout = 5 * time.Minute
	DefaultFetchTimeout = 2 * time.Minute
)

// RunRequest selects datasets and overrides imputation settings for one run
type RunRequest struct {
	// ID is generated when empty
	ID string `json:"id,omitempty"`
	// Datasets lists dataset types to process; empty means every registered dataset
	Datasets []string `json:"datasets,omitempty"`
	// Seed overrides the configured imputation seed
	Seed *uint64 `json:"seed,omitempty"`
	// MaxRounds overrides the configured imputation rounds when positive
	MaxRounds int `json:"max_rounds,omitempty"`
	// SamplePosterior overrides posterior sampling
	SamplePosterior *bool `json:"sample_posterior,omitempty"`
}
