package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicalqc/internal/config"
	"clinicalqc/internal/dataprocessing"
	"clinicalqc/pkg/contracts/domain"
)

func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	tmp := t.TempDir()
	paths := config.NewPaths(filepath.Join(tmp, "data"), filepath.Join(tmp, "logs"))
	return NewCSVWriter(paths, nil), paths
}

func TestWriteTable(t *testing.T) {
	tbl := &domain.Table{Columns: []domain.Column{
		{Name: "Glucose", Values: []float64{148, domain.Missing(), 137.5}},
		{Name: "Age", Values: []float64{50, 31, 33}, Ints: []int64{50, 31, 33}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, tbl))

	assert.Equal(t, "Glucose,Age\n148,50\n,31\n137.5,33\n", buf.String())
}

func TestWriteTable_IntegerColumnsHaveNoDecimals(t *testing.T) {
	tbl := &domain.Table{Columns: []domain.Column{
		{Name: "Outcome", Values: []float64{1, 0}, Ints: []int64{1, 0}},
		{Name: "BMI", Values: []float64{33.6, 26}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, tbl))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records[1:] {
		assert.NotContains(t, rec[0], ".")
	}
	assert.Equal(t, "33.6", records[1][1])
}

func TestWriteTable_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteTable(&buf, nil))

	ragged := &domain.Table{Columns: []domain.Column{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{1}},
	}}
	assert.Error(t, WriteTable(&buf, ragged))
}

func TestWriteTableFile_ReadBack(t *testing.T) {
	w, paths := setupTestEnv(t)
	tbl := &domain.Table{Columns: []domain.Column{
		{Name: "x", Values: []float64{1.25, domain.Missing(), -3}},
		{Name: "n", Values: []float64{4, 5, 6}, Ints: []int64{4, 5, 6}},
	}}

	path := paths.CanonicalFile(domain.DatasetDiabetes)
	require.NoError(t, w.WriteTableFile(path, tbl))

	got, err := dataprocessing.ReadTableFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "n"}, got.Names())
	assert.Equal(t, 1, got.MissingCount())
	assert.Equal(t, -3.0, got.Columns[0].Values[2])
	assert.Equal(t, 6.0, got.Columns[1].Values[2])
}

func TestWriteTable_SingleColumnMissingRoundTrips(t *testing.T) {
	tbl := &domain.Table{Columns: []domain.Column{
		{Name: "Glucose", Values: []float64{domain.Missing(), 85, 130, domain.Missing(), 95}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, tbl))

	got, err := dataprocessing.ReadTable(&buf)
	require.NoError(t, err)
	require.Equal(t, 5, got.Rows())
	assert.Equal(t, 2, got.MissingCount())
	assert.True(t, domain.IsMissing(got.Columns[0].Values[0]))
	assert.Equal(t, 95.0, got.Columns[0].Values[4])
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name     string
		options  WriteOptions
		expected string
	}{
		{
			name: "headers and records",
			options: WriteOptions{
				Headers: []string{"a", "b"},
				Records: [][]string{{"1", "2"}, {"3", "4"}},
			},
			expected: "a,b\n1,2\n3,4\n",
		},
		{
			name: "with BOM",
			options: WriteOptions{
				Headers:   []string{"a"},
				Records:   [][]string{{"x"}},
				BOMPrefix: true,
			},
			expected: "\xEF\xBB\xBFa\nx\n",
		},
		{
			name:     "quotes fields with commas",
			options:  WriteOptions{Records: [][]string{{"a,b", "c"}}},
			expected: "\"a,b\",c\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, paths := setupTestEnv(t)
			require.NoError(t, w.WriteCSV("out.csv", tt.options))

			data, err := os.ReadFile(filepath.Join(paths.ReportsDir, "out.csv"))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestWriteCSV_Append(t *testing.T) {
	w, paths := setupTestEnv(t)

	require.NoError(t, w.WriteSimpleCSV("log.csv", []string{"h"}, [][]string{{"1"}}))
	require.NoError(t, w.WriteCSV("log.csv", WriteOptions{
		Headers: []string{"ignored"},
		Records: [][]string{{"2"}},
		Append:  true,
	}))

	data, err := os.ReadFile(filepath.Join(paths.ReportsDir, "log.csv"))
	require.NoError(t, err)
	assert.Equal(t, "h\n1\n2\n", string(data))
}

func TestResolvePath(t *testing.T) {
	w, paths := setupTestEnv(t)

	assert.Equal(t, filepath.Join(paths.ReportsDir, "x.csv"), w.resolvePath("x.csv"))
	assert.Equal(t, filepath.Join("data", "x.csv"), w.resolvePath(filepath.Join("data", "x.csv")))
	assert.True(t, strings.HasSuffix(w.resolvePath(paths.ProcessedFile(domain.DatasetDiabetes)), "diabetes_clean.csv"))
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name   string
		column domain.Column
		want   string
	}{
		{"float", domain.Column{Values: []float64{0.627}}, "0.627"},
		{"whole float", domain.Column{Values: []float64{72}}, "72"},
		{"missing", domain.Column{Values: []float64{domain.Missing()}}, ""},
		{"integer", domain.Column{Values: []float64{32}, Ints: []int64{32}}, "32"},
		{"negative", domain.Column{Values: []float64{-0.5}}, "-0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCell(tt.column, 0))
		})
	}
}
