package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"clinicalqc/internal/config"
	apperrors "clinicalqc/internal/errors"
	"clinicalqc/internal/operations"
	"clinicalqc/pkg/contracts/domain"
)

// File areas exposed for listing and download
const (
	AreaRaw       = "raw"
	AreaCanonical = "canonical"
	AreaProcessed = "processed"
	AreaReports   = "reports"
)

// FileInfo describes one file of the data tree
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// FileListing groups data files by area, newest first
type FileListing struct {
	Areas        map[string][]FileInfo `json:"areas"`
	TotalSize    int64                 `json:"total_size"`
	LastModified time.Time             `json:"last_modified"`
}

// DataService gives the HTTP layer read access to pipeline outputs:
// the data tree on disk and audit reports held by the run store.
type DataService struct {
	paths  *config.Paths
	store  *operations.RunStore
	logger *slog.Logger
}

// NewDataService creates a new data service
func NewDataService(paths *config.Paths, store *operations.RunStore, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("DataService initialized with paths",
		slog.String("data_dir", paths.DataDir),
		slog.String("reports_dir", paths.ReportsDir))

	return &DataService{
		paths:  paths,
		store:  store,
		logger: logger,
	}
}

// areaDir maps an area name to its directory
func (ds *DataService) areaDir(area string) (string, bool) {
	switch area {
	case AreaRaw:
		return ds.paths.RawDir, true
	case AreaCanonical:
		return ds.paths.CanonicalDir, true
	case AreaProcessed:
		return ds.paths.ProcessedDir, true
	case AreaReports:
		return ds.paths.ReportsDir, true
	}
	return "", false
}

// ListFiles returns the files of every area. Missing directories list as empty.
func (ds *DataService) ListFiles(ctx context.Context) (FileListing, error) {
	listing := FileListing{Areas: make(map[string][]FileInfo)}

	for _, area := range []string{AreaRaw, AreaCanonical, AreaProcessed, AreaReports} {
		dir, _ := ds.areaDir(area)
		files, err := listDir(dir)
		if err != nil {
			ds.logger.ErrorContext(ctx, "failed to list files",
				slog.String("area", area),
				slog.String("directory", dir),
				slog.String("error", err.Error()))
			return FileListing{}, apperrors.NewStorageError("failed to list "+area+" files", err)
		}

		listing.Areas[area] = files
		for _, f := range files {
			listing.TotalSize += f.Size
			if f.Modified.After(listing.LastModified) {
				listing.LastModified = f.Modified
			}
		}
	}

	return listing, nil
}

// listDir lists regular files of dir, newest first
func listDir(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileInfo{}, nil
		}
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Modified.Equal(files[j].Modified) {
			return files[i].Name < files[j].Name
		}
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// ResolveFile returns the absolute path of name inside area, refusing any path
// that escapes the area directory.
func (ds *DataService) ResolveFile(ctx context.Context, area, name string) (string, error) {
	dir, ok := ds.areaDir(area)
	if !ok {
		return "", apperrors.NewAppValidationError("invalid file area: " + area).
			WithContext("area", area)
	}

	cleaned := filepath.FromSlash(filepath.Clean("/" + name))
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", apperrors.NewStorageError("invalid directory path", err)
	}
	absFile := filepath.Join(absDir, cleaned)

	rel, err := filepath.Rel(absDir, absFile)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		ds.logger.WarnContext(ctx, "attempted directory traversal",
			slog.String("requested_path", name),
			slog.String("base_dir", absDir))
		return "", apperrors.NewAppValidationError("invalid file path").WithContext("name", name)
	}

	info, err := os.Stat(absFile)
	if err != nil || info.IsDir() {
		return "", apperrors.NewNotFoundError(area + "/" + name)
	}
	return absFile, nil
}

// Audit returns the audit report of one dataset of a stored run
func (ds *DataService) Audit(runID string, dataset domain.DatasetType) (domain.AuditReport, error) {
	run, err := ds.store.Get(runID)
	if err != nil {
		return domain.AuditReport{}, err
	}
	return auditOf(run, dataset)
}

// LatestAudit returns the audit report of dataset from the most recent run that audited it
func (ds *DataService) LatestAudit(dataset domain.DatasetType) (domain.AuditReport, error) {
	for _, run := range ds.store.List() {
		if report, err := auditOf(run, dataset); err == nil {
			return report, nil
		}
	}
	return domain.AuditReport{}, apperrors.NewNotFoundError("audit for " + dataset.String()).
		WithContext("dataset", dataset.String())
}

func auditOf(run domain.PipelineRun, dataset domain.DatasetType) (domain.AuditReport, error) {
	d, ok := run.Dataset(dataset)
	if !ok || d.Audit == nil {
		return domain.AuditReport{}, apperrors.NewNotFoundError("audit for " + dataset.String()).
			WithContext("run_id", run.ID).
			WithContext("dataset", dataset.String())
	}
	return *d.Audit, nil
}
