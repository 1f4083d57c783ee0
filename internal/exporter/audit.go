package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"clinicalqc/internal/config"
	apperrors "clinicalqc/internal/errors"
	"clinicalqc/pkg/contracts/domain"
)

// Audit report sections. Each becomes one CSV per dataset and one workbook sheet.
const (
	SectionShift       = "distribution_shift"
	SectionOutliers    = "outliers"
	SectionRanges      = "range_violations"
	SectionMissingness = "missingness"
)

var (
	shiftHeaders       = []string{"Variable", "Canonical Mean", "ML Mean", "Delta"}
	outlierHeaders     = []string{"Variable", "Q1", "Q3", "IQR", "Lower Fence", "Upper Fence", "Outliers", "Outlier %"}
	rangeHeaders       = []string{"Variable", "Low", "High", "Violations"}
	missingnessHeaders = []string{"Variable", "Missing", "Missing %", "Type"}

	sheetTitles = map[string]string{
		SectionShift:       "Distribution Shift",
		SectionOutliers:    "Outliers",
		SectionRanges:      "Range Violations",
		SectionMissingness: "Missingness",
	}
	sheetOrder = []string{SectionShift, SectionOutliers, SectionRanges, SectionMissingness}
)

// DatasetAudit pairs an audit report with the canonical missingness of the same dataset
type DatasetAudit struct {
	Report      domain.AuditReport
	Missingness []domain.MissingnessStat
}

// AuditExporter writes audit reports as CSV files and XLSX workbooks
type AuditExporter struct {
	paths  *config.Paths
	csv    *CSVWriter
	logger *slog.Logger
}

// NewAuditExporter creates an exporter rooted at the reports directory of paths
func NewAuditExporter(paths *config.Paths, logger *slog.Logger) *AuditExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditExporter{
		paths:  paths,
		csv:    NewCSVWriter(paths, logger),
		logger: logger,
	}
}

// ExportCSV writes one CSV per audit section and returns the written paths in section order
func (e *AuditExporter) ExportCSV(audit DatasetAudit) ([]string, error) {
	dataset := audit.Report.Dataset
	files := make([]string, 0, len(sheetOrder))

	for _, section := range sheetOrder {
		path := e.paths.ReportFile(dataset, section)
		headers, records := sectionRecords(section, audit)
		if err := e.csv.WriteSimpleCSV(path, headers, records); err != nil {
			return files, err
		}
		files = append(files, path)
	}

	e.logger.Info("audit CSVs exported",
		slog.String("dataset", dataset.String()),
		slog.Int("files", len(files)))
	return files, nil
}

// ExportWorkbook writes every dataset's audit into one workbook, one sheet per
// analysis. Rows of each sheet are prefixed by the dataset name.
func (e *AuditExporter) ExportWorkbook(path string, audits []DatasetAudit) error {
	if path == "" {
		path = e.paths.WorkbookFile()
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return apperrors.NewStorageError("failed to create header style", err)
	}

	for i, section := range sheetOrder {
		sheet := sheetTitles[section]
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return apperrors.NewStorageError("failed to rename sheet", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to create sheet %s", sheet), err)
		}
		if err := writeSheet(f, sheet, section, audits, bold); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to save workbook %s", path), err)
	}

	e.logger.Info("audit workbook exported",
		slog.String("file_path", path),
		slog.Int("datasets", len(audits)))
	return nil
}

func writeSheet(f *excelize.File, sheet, section string, audits []DatasetAudit, headerStyle int) error {
	headers, _ := sectionRecords(section, DatasetAudit{})
	header := make([]interface{}, 0, len(headers)+1)
	header = append(header, "Dataset")
	for _, h := range headers {
		header = append(header, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return apperrors.NewStorageError("failed to write sheet header", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return apperrors.NewStorageError("failed to style sheet header", err)
	}

	row := 2
	for _, audit := range audits {
		for _, values := range sectionValues(section, audit) {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			line := append([]interface{}{audit.Report.DisplayName}, values...)
			if err := f.SetSheetRow(sheet, cell, &line); err != nil {
				return apperrors.NewStorageError(fmt.Sprintf("failed to write %s row %d", sheet, row), err)
			}
			row++
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(sheet, "A", lastCol, 16)
}

// sectionRecords renders a section as CSV headers and string records
func sectionRecords(section string, audit DatasetAudit) ([]string, [][]string) {
	r := audit.Report
	switch section {
	case SectionShift:
		records := make([][]string, 0, len(r.Shifts))
		for _, s := range r.Shifts {
			records = append(records, []string{
				s.Variable, formatFixed(s.CanonicalMean, 4), formatFixed(s.MLMean, 4), formatFixed(s.Delta, 4),
			})
		}
		return shiftHeaders, records
	case SectionOutliers:
		records := make([][]string, 0, len(r.Outliers))
		for _, o := range r.Outliers {
			records = append(records, []string{
				o.Variable, formatFloat(o.Q1), formatFloat(o.Q3), formatFloat(o.IQR),
				formatFloat(o.Lower), formatFloat(o.Upper),
				formatInt(int64(o.Count)), formatFixed(o.Fraction*100, 2),
			})
		}
		return outlierHeaders, records
	case SectionRanges:
		records := make([][]string, 0, len(r.RangeViolations))
		for _, v := range r.RangeViolations {
			records = append(records, []string{
				v.Variable, formatFloat(v.Low), formatFloat(v.High), formatInt(int64(v.Count)),
			})
		}
		return rangeHeaders, records
	default:
		records := make([][]string, 0, len(audit.Missingness))
		for _, m := range audit.Missingness {
			records = append(records, []string{
				m.Variable, formatInt(int64(m.Missing)), formatFixed(m.Fraction*100, 2), string(m.Kind),
			})
		}
		return missingnessHeaders, records
	}
}

// sectionValues renders a section as typed workbook cells
func sectionValues(section string, audit DatasetAudit) [][]interface{} {
	r := audit.Report
	var rows [][]interface{}
	switch section {
	case SectionShift:
		for _, s := range r.Shifts {
			rows = append(rows, []interface{}{s.Variable, s.CanonicalMean, s.MLMean, s.Delta})
		}
	case SectionOutliers:
		for _, o := range r.Outliers {
			rows = append(rows, []interface{}{o.Variable, o.Q1, o.Q3, o.IQR, o.Lower, o.Upper, o.Count, o.Fraction * 100})
		}
	case SectionRanges:
		for _, v := range r.RangeViolations {
			rows = append(rows, []interface{}{v.Variable, v.Low, v.High, v.Count})
		}
	default:
		for _, m := range audit.Missingness {
			rows = append(rows, []interface{}{m.Variable, m.Missing, m.Fraction * 100, string(m.Kind)})
		}
	}
	return rows
}
