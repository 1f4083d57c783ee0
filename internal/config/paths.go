package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"clinicalqc/pkg/contracts/domain"
)

// Paths contains all the data paths of a pipeline run.
// Directory structure:
//
//	data/
//	  ├── raw/          (downloaded source files)
//	  ├── canonical/    (<dataset>_canonical.csv)
//	  ├── processed/    (<dataset>_clean.csv)
//	  └── reports/      (audit CSVs and workbook)
//	logs/
type Paths struct {
	DataDir      string
	RawDir       string
	CanonicalDir string
	ProcessedDir string
	ReportsDir   string
	LogsDir      string
}

// NewPaths lays out the data tree under dataDir
func NewPaths(dataDir, logsDir string) *Paths {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if logsDir == "" {
		logsDir = DefaultLogsDir
	}
	return &Paths{
		DataDir:      dataDir,
		RawDir:       filepath.Join(dataDir, RawSubdir),
		CanonicalDir: filepath.Join(dataDir, CanonicalSubdir),
		ProcessedDir: filepath.Join(dataDir, ProcessedSubdir),
		ReportsDir:   filepath.Join(dataDir, ReportsSubdir),
		LogsDir:      logsDir,
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.CanonicalDir,
		p.ProcessedDir,
		p.ReportsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// RawFile returns where the raw file of a dataset is stored
func (p *Paths) RawFile(spec domain.DatasetSpec) string {
	return filepath.Join(p.RawDir, spec.RawFile)
}

// CanonicalFile returns the canonical table path, e.g. data/canonical/diabetes_canonical.csv
func (p *Paths) CanonicalFile(t domain.DatasetType) string {
	return filepath.Join(p.CanonicalDir, string(t)+CanonicalSuffix)
}

// ProcessedFile returns the ml-ready table path, e.g. data/processed/diabetes_clean.csv
func (p *Paths) ProcessedFile(t domain.DatasetType) string {
	return filepath.Join(p.ProcessedDir, string(t)+ProcessedSuffix)
}

// ReportFile returns the path of one audit section, e.g. data/reports/diabetes_outliers.csv
func (p *Paths) ReportFile(t domain.DatasetType, section string) string {
	return filepath.Join(p.ReportsDir, fmt.Sprintf("%s_%s.csv", t, section))
}

// WorkbookFile returns the combined audit workbook path
func (p *Paths) WorkbookFile() string {
	return filepath.Join(p.ReportsDir, "audit_report.xlsx")
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved layout for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, _ := filepath.Abs(p.DataDir)
	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("data", p.DataDir),
			slog.String("data_absolute", abs),
			slog.String("raw", p.RawDir),
			slog.String("canonical", p.CanonicalDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		))
}
