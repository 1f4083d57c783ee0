package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"clinicalqc/internal/config"
	"clinicalqc/pkg/contracts/domain"
)

func sampleAudit() DatasetAudit {
	return DatasetAudit{
		Report: domain.AuditReport{
			Dataset:     domain.DatasetDiabetes,
			DisplayName: "Diabetes",
			Rows:        6,
			GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Shifts: []domain.ShiftRecord{
				{Variable: "Glucose", CanonicalMean: 121.5, MLMean: 121.75, Delta: 0.25},
			},
			Outliers: []domain.OutlierRecord{
				{Variable: "Glucose", Q1: 120, Q3: 127.5, IQR: 7.5, Lower: 108.75, Upper: 138.75, Count: 1, Fraction: 1.0 / 6},
			},
			RangeViolations: []domain.RangeViolationRecord{
				{Variable: "BMI", Low: 15, High: 60, Count: 1},
			},
		},
		Missingness: []domain.MissingnessStat{
			{Variable: "Insulin", Missing: 3, Fraction: 0.5, Kind: domain.MissingKindBiological},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestAuditExporter_ExportCSV(t *testing.T) {
	tmp := t.TempDir()
	paths := config.NewPaths(filepath.Join(tmp, "data"), filepath.Join(tmp, "logs"))
	e := NewAuditExporter(paths, nil)

	files, err := e.ExportCSV(sampleAudit())
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, paths.ReportFile(domain.DatasetDiabetes, SectionShift), files[0])

	outliers := readCSV(t, paths.ReportFile(domain.DatasetDiabetes, SectionOutliers))
	require.Len(t, outliers, 2)
	assert.Equal(t, outlierHeaders, outliers[0])
	assert.Equal(t, []string{"Glucose", "120", "127.5", "7.5", "108.75", "138.75", "1", "16.67"}, outliers[1])

	ranges := readCSV(t, paths.ReportFile(domain.DatasetDiabetes, SectionRanges))
	assert.Equal(t, []string{"BMI", "15", "60", "1"}, ranges[1])

	missing := readCSV(t, paths.ReportFile(domain.DatasetDiabetes, SectionMissingness))
	assert.Equal(t, []string{"Insulin", "3", "50.00", "Biological"}, missing[1])
}

func TestAuditExporter_ExportCSV_EmptySections(t *testing.T) {
	tmp := t.TempDir()
	paths := config.NewPaths(filepath.Join(tmp, "data"), filepath.Join(tmp, "logs"))
	e := NewAuditExporter(paths, nil)

	audit := DatasetAudit{Report: domain.AuditReport{Dataset: domain.DatasetHeartDisease}}
	_, err := e.ExportCSV(audit)
	require.NoError(t, err)

	ranges := readCSV(t, paths.ReportFile(domain.DatasetHeartDisease, SectionRanges))
	assert.Equal(t, [][]string{rangeHeaders}, ranges)
}

func TestAuditExporter_ExportWorkbook(t *testing.T) {
	tmp := t.TempDir()
	paths := config.NewPaths(filepath.Join(tmp, "data"), filepath.Join(tmp, "logs"))
	e := NewAuditExporter(paths, nil)

	heart := DatasetAudit{Report: domain.AuditReport{
		Dataset:     domain.DatasetHeartDisease,
		DisplayName: "Heart Disease",
		RangeViolations: []domain.RangeViolationRecord{
			{Variable: "chol", Low: 100, High: 600, Count: 2},
		},
	}}

	require.NoError(t, e.ExportWorkbook("", []DatasetAudit{sampleAudit(), heart}))

	f, err := excelize.OpenFile(paths.WorkbookFile())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Distribution Shift", "Outliers", "Range Violations", "Missingness"}, f.GetSheetList())

	rows, err := f.GetRows("Range Violations")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Dataset", "Variable", "Low", "High", "Violations"}, rows[0])
	assert.Equal(t, []string{"Diabetes", "BMI", "15", "60", "1"}, rows[1])
	assert.Equal(t, []string{"Heart Disease", "chol", "100", "600", "2"}, rows[2])

	rows, err = f.GetRows("Missingness")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
