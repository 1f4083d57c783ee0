package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10, cfg.Imputation.MaxRounds)
	assert.Equal(t, uint64(42), cfg.Imputation.Seed)
	assert.Equal(t, "ascending", cfg.Imputation.Order)
	assert.True(t, cfg.Imputation.SamplePosterior)
	assert.Equal(t, 0.2, cfg.Constraints.WarnFraction)
	assert.Equal(t, 1, cfg.Pipeline.Concurrency)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_PrecedenceEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := `
imputation:
  max_rounds: 5
  seed: 7
constraints:
  warn_fraction: 0.5
server:
  read_timeout: 20s
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	t.Setenv("CLINQC_IMPUTATION_SEED", "99")

	cfg, err := LoadFile(file)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Imputation.MaxRounds, "file value")
	assert.Equal(t, uint64(99), cfg.Imputation.Seed, "env overrides file")
	assert.Equal(t, 0.5, cfg.Constraints.WarnFraction)
	assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "ascending", cfg.Imputation.Order, "default kept")
}

func TestLoadFile_EnvList(t *testing.T) {
	t.Setenv("CLINQC_PIPELINE_DATASETS", "diabetes,heart_disease")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, []string{"diabetes", "heart_disease"}, cfg.Pipeline.Datasets)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad order", func(c *Config) { c.Imputation.Order = "random" }},
		{"zero rounds", func(c *Config) { c.Imputation.MaxRounds = 0 }},
		{"warn fraction above one", func(c *Config) { c.Constraints.WarnFraction = 1.5 }},
		{"zero warn fraction", func(c *Config) { c.Constraints.WarnFraction = 0 }},
		{"negative warn fraction", func(c *Config) { c.Constraints.WarnFraction = -0.1 }},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFile_ImputationBounds(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := `
imputation:
  min_values:
    Insulin: 15
  max_values:
    Insulin: 600
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	t.Setenv("CLINQC_IMPUTATION_MAX_VALUES", "Glucose:250,Insulin:800")

	cfg, err := LoadFile(file)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Insulin": 15}, cfg.Imputation.MinValues)
	assert.Equal(t, map[string]float64{"Glucose": 250, "Insulin": 800}, cfg.Imputation.MaxValues, "env overrides file")

	cfg.Imputation.MinValues["Glucose"] = 300
	assert.Error(t, cfg.Validate(), "min above max")
}

func TestValidate_FillsLogFile(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "both"
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.Logging.FilePath)
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("imputation: [unclosed"), 0644))

	_, err := LoadFile(file)
	assert.Error(t, err)
}
