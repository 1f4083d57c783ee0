package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicalqc/pkg/contracts/domain"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("data", "")

	assert.Equal(t, filepath.Join("data", "raw"), p.RawDir)
	assert.Equal(t, filepath.Join("data", "canonical", "diabetes_canonical.csv"), p.CanonicalFile(domain.DatasetDiabetes))
	assert.Equal(t, filepath.Join("data", "processed", "heart_disease_clean.csv"), p.ProcessedFile(domain.DatasetHeartDisease))
	assert.Equal(t, filepath.Join("data", "reports", "diabetes_outliers.csv"), p.ReportFile(domain.DatasetDiabetes, "outliers"))
	assert.Equal(t, DefaultLogsDir, p.LogsDir)

	spec := domain.DatasetSpec{RawFile: "diabetes_raw.csv"}
	assert.Equal(t, filepath.Join("data", "raw", "diabetes_raw.csv"), p.RawFile(spec))
}

func TestEnsureDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	p := NewPaths(root, "")

	require.NoError(t, p.EnsureDirectories())

	for _, dir := range []string{p.RawDir, p.CanonicalDir, p.ProcessedDir, p.ReportsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.True(t, FileExists(p.RawDir))
	assert.False(t, FileExists(filepath.Join(root, "nope")))
}
