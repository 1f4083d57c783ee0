package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "clinicalqc/internal/errors"
	"clinicalqc/pkg/contracts/domain"
)

// ParseOptions controls how delimited text is read
type ParseOptions struct {
	// Comma is the field delimiter; zero means ','
	Comma rune
	// MissingTokens are cell values read as missing in every column.
	// A nil slice falls back to the dataset's own tokens.
	MissingTokens []string
}

// ParseFile reads a raw dataset file. Files ending in .xlsx are read from
// their first sheet, anything else is treated as delimited text.
func ParseFile(path string, spec domain.DatasetSpec) (*domain.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ParseWorkbook(path, spec)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingInputError(path, err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	return ParseRaw(f, spec, ParseOptions{})
}

// ParseRaw reads delimited text into a table named by the dataset spec.
// A first row made only of non-numeric labels is taken as a header, and its
// labels become the column names so that the canonicalizer can check them.
func ParseRaw(r io.Reader, spec domain.DatasetSpec, opts ParseOptions) (*domain.Table, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read delimited input", err)
	}

	tokens := opts.MissingTokens
	if tokens == nil {
		tokens = spec.MissingTokens
	}

	return parseRecords(records, spec, tokens)
}

// ParseWorkbook reads the first sheet of an xlsx workbook
func ParseWorkbook(path string, spec domain.DatasetSpec) (*domain.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingInputError(path, err)
		}
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("workbook %s has no sheets", path), nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %s", sheets[0]), err)
	}

	// GetRows drops trailing empty cells, so pad to the widest row. Rows
	// with no cells at all are blank lines, not missing values.
	rows = dropBlankRecords(rows, len(spec.Columns))
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}

	return parseRecords(rows, spec, spec.MissingTokens)
}

func parseRecords(records [][]string, spec domain.DatasetSpec, tokens []string) (*domain.Table, error) {
	records = dropBlankRecords(records, len(spec.Columns))

	names := spec.Names()
	if len(records) > 0 && isHeader(records[0], tokens) {
		names = make([]string, len(records[0]))
		for i, h := range records[0] {
			names[i] = strings.TrimSpace(h)
		}
		records = records[1:]
	} else if len(records) > 0 && len(records[0]) != len(names) {
		// Unlabelled data that does not fit the spec keeps positional names
		names = positionalNames(len(records[0]))
	}

	missing := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		missing[strings.TrimSpace(tok)] = true
	}

	table := domain.NewTable(names, len(records))
	for r, record := range records {
		if len(record) != len(names) {
			return nil, apperrors.NewSchemaMismatchError(string(spec.Type), len(names), len(record)).
				WithContext("row", r+1)
		}
		for c, cell := range record {
			cell = strings.TrimSpace(cell)
			if missing[cell] {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("row %d column %s: invalid number %q", r+1, names[c], cell), err).
					WithContext("row", r+1).
					WithContext("column", names[c])
			}
			table.Columns[c].Values[r] = v
		}
	}

	return table, nil
}

// isHeader reports whether every cell is a non-numeric, non-missing label
func isHeader(record []string, tokens []string) bool {
	for _, cell := range record {
		cell = strings.TrimSpace(cell)
		for _, tok := range tokens {
			if cell == strings.TrimSpace(tok) {
				return false
			}
		}
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			return false
		}
	}
	return len(record) > 0
}

// dropBlankRecords removes lines with no fields at all. A record with every
// field empty is a row of missing values and is kept; a lone empty field is
// only a row when the table has a single column.
func dropBlankRecords(records [][]string, width int) [][]string {
	out := records[:0]
	for _, rec := range records {
		if len(rec) == 0 || (width != 1 && len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func positionalNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("column_%d", i+1)
	}
	return names
}

// ReadTable reads a table written by the exporter (header row, empty cells
// for missing values). Missing tokens beyond the empty string may be given.
func ReadTable(r io.Reader, missingTokens ...string) (*domain.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read table", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewParsingError("table has no header row", nil)
	}

	header := records[0]
	spec := domain.DatasetSpec{Columns: make([]domain.ColumnSpec, len(header))}
	for i, h := range header {
		spec.Columns[i] = domain.ColumnSpec{Name: strings.TrimSpace(h), Role: domain.RoleGeneric}
	}

	tokens := append([]string{""}, missingTokens...)
	return parseRecords(records[1:], spec, tokens)
}

// ReadTableFile opens and reads a table written by the exporter
func ReadTableFile(path string) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingInputError(path, err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	return ReadTable(f)
}
