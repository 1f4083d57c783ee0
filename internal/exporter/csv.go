package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"clinicalqc/internal/config"
	apperrors "clinicalqc/internal/errors"
	"clinicalqc/pkg/contracts/domain"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance.
// Bare file names passed to its methods land in the reports directory.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("writing CSV file",
		slog.String("file_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := openForWrite(fullPath, flags)
	if err != nil {
		return err
	}
	defer file.Close()

	if options.BOMPrefix && !options.Append {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return apperrors.NewStorageError("failed to write BOM", err)
		}
	}

	writer := csv.NewWriter(file)

	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return apperrors.NewStorageError("failed to write headers", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError("failed to flush CSV", err)
	}
	return nil
}

// WriteSimpleCSV writes a simple CSV file with headers and records
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers: headers,
		Records: records,
	})
}

// WriteTableFile writes a table with a header row to path
func (w *CSVWriter) WriteTableFile(filePath string, t *domain.Table) error {
	fullPath := w.resolvePath(filePath)

	file, err := openForWrite(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteTable(file, t); err != nil {
		return err
	}

	w.logger.Info("table written",
		slog.String("file_path", fullPath),
		slog.Int("rows", t.Rows()),
		slog.Int("columns", t.Width()),
		slog.Int("missing_cells", t.MissingCount()))
	return nil
}

// WriteTable writes t as delimited text: a header row of column names followed
// by one record per row in table order.
func WriteTable(out io.Writer, t *domain.Table) error {
	if t == nil {
		return apperrors.NewAppValidationError("nil table")
	}
	if err := t.Validate(); err != nil {
		return apperrors.NewAppValidationError(err.Error())
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(t.Names()); err != nil {
		return apperrors.NewStorageError("failed to write headers", err)
	}

	record := make([]string, t.Width())
	for r := 0; r < t.Rows(); r++ {
		for c, col := range t.Columns {
			record[c] = formatCell(col, r)
		}
		// A lone empty field would be written as a blank line and skipped on read
		if len(record) == 1 && record[0] == "" {
			writer.Flush()
			if _, err := io.WriteString(out, "\"\"\n"); err != nil {
				return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d", r), err)
			}
			continue
		}
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d", r), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError("failed to flush CSV", err)
	}
	return nil
}

func openForWrite(fullPath string, flags int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create directory", err)
	}
	file, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", fullPath), err)
	}
	return file, nil
}

// resolvePath places bare file names in the reports directory.
// Paths with a directory component are used as given.
func (w *CSVWriter) resolvePath(filePath string) string {
	if w.paths == nil || filepath.Dir(filePath) != "." {
		return filePath
	}
	return filepath.Join(w.paths.ReportsDir, filePath)
}
