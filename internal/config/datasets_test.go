package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicalqc/pkg/contracts/domain"
)

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	assert.Equal(t, []domain.DatasetType{domain.DatasetDiabetes, domain.DatasetHeartDisease}, reg.Types())

	diabetes, ok := reg.Get(domain.DatasetDiabetes)
	require.True(t, ok)
	assert.Equal(t, []string{
		"Pregnancies", "Glucose", "BloodPressure", "SkinThickness", "Insulin",
		"BMI", "DiabetesPedigreeFunction", "Age", "Outcome",
	}, diabetes.Names())
	assert.Equal(t, []string{"Glucose", "BloodPressure", "SkinThickness", "Insulin", "BMI"}, diabetes.BiologicalColumns())
	assert.Equal(t, []string{"Pregnancies", "Age", "Outcome"}, diabetes.IntegerColumns())
	assert.True(t, diabetes.IsTarget("Outcome"))

	glucose, ok := diabetes.ClinicalRange("Glucose")
	require.True(t, ok)
	assert.Equal(t, 40.0, glucose.Low)
	assert.Equal(t, 400.0, glucose.High)

	heart, ok := reg.Get(domain.DatasetHeartDisease)
	require.True(t, ok)
	assert.Len(t, heart.Columns, 14)
	assert.Contains(t, heart.MissingTokens, "?")
	assert.Empty(t, heart.BiologicalColumns())

	ca, ok := heart.Column("ca")
	require.True(t, ok)
	assert.Equal(t, domain.MissingKindStructural, ca.MissingKind())
}

func TestParseRegistry_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "datasets: []"},
		{"unknown role", `
datasets:
  - type: x
    display_name: X
    raw_file: x.csv
    columns:
      - {name: a, role: fancy}
`},
		{"duplicate column", `
datasets:
  - type: x
    display_name: X
    raw_file: x.csv
    columns:
      - {name: a, role: continuous_generic}
      - {name: a, role: continuous_generic}
`},
		{"range for unknown column", `
datasets:
  - type: x
    display_name: X
    raw_file: x.csv
    columns:
      - {name: a, role: continuous_generic}
    clinical_ranges:
      - {column: b, low: 1, high: 2}
`},
		{"inverted range", `
datasets:
  - type: x
    display_name: X
    raw_file: x.csv
    columns:
      - {name: a, role: continuous_generic}
    clinical_ranges:
      - {column: a, low: 5, high: 2}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRegistry_Select(t *testing.T) {
	reg := DefaultRegistry()

	all, err := reg.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := reg.Select([]string{"Heart Disease"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, domain.DatasetHeartDisease, one[0].Type)

	_, err = reg.Select([]string{"diabetes", "cancer"})
	assert.ErrorContains(t, err, "cancer")
}

func TestLoadRegistry_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "datasets.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
datasets:
  - type: toy
    display_name: Toy
    raw_file: toy.csv
    columns:
      - {name: a, role: continuous_biological}
      - {name: b, role: integer_valued}
`), 0644))

	reg, err := LoadRegistry(file)
	require.NoError(t, err)
	spec, ok := reg.Get("toy")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, spec.BiologicalColumns())

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
