package operations

import (
	"time"

	"clinicalqc/internal/config"
)

// Config represents the pipeline execution configuration
type Config struct {
	Imputation   config.ImputationConfig
	WarnFraction float64

	// Maximum datasets processed at once
	MaxConcurrency int

	// Timeout bounds a whole run
	Timeout time.Duration

	// Step-specific timeouts
	StageTimeouts map[string]time.Duration

	// Fetch enables raw acquisition before parsing
	Fetch bool

	// Workbook enables the combined XLSX audit export
	Workbook bool
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return ConfigFrom(config.Default())
}

// ConfigFrom maps the application configuration
func ConfigFrom(cfg *config.Config) *Config {
	return &Config{
		Imputation:     cfg.Imputation,
		WarnFraction:   cfg.Constraints.WarnFraction,
		MaxConcurrency: cfg.Pipeline.Concurrency,
		Timeout:        cfg.Pipeline.Timeout,
		StageTimeouts: map[string]time.Duration{
			StageIDFetch: DefaultFetchTimeout,
		},
		Fetch:    cfg.Pipeline.Fetch,
		Workbook: cfg.Pipeline.Workbook,
	}
}

// GetStageTimeout returns the timeout for a specific Step
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stageID]; ok && timeout > 0 {
		return timeout
	}
	return DefaultStageTimeout
}

// imputationFor applies request overrides to the configured imputation settings
func (c *Config) imputationFor(req RunRequest) config.ImputationConfig {
	imp := c.Imputation
	if req.Seed != nil {
		imp.Seed = *req.Seed
	}
	if req.MaxRounds > 0 {
		imp.MaxRounds = req.MaxRounds
	}
	if req.SamplePosterior != nil {
		imp.SamplePosterior = *req.SamplePosterior
	}
	return imp
}
