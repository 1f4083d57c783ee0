package api

import (
	"time"

	"clinicalqc/pkg/contracts/domain"
)

// RunSummary is the list view of a pipeline run
type RunSummary struct {
	ID          string             `json:"id"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
	Datasets    []DatasetRunStatus `json:"datasets"`
	Failed      int                `json:"failed"`
}

// DatasetRunStatus is the short status of one dataset in a run
type DatasetRunStatus struct {
	Dataset     domain.DatasetType `json:"dataset"`
	Status      domain.RunStatus   `json:"status"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	ErrorType   string             `json:"error_type,omitempty"`
}

// RunListResponse lists stored runs, newest first
type RunListResponse struct {
	Runs  []RunSummary `json:"runs"`
	Total int          `json:"total"`
}

// DatasetInfo describes one registered dataset
type DatasetInfo struct {
	Type           domain.DatasetType     `json:"type"`
	DisplayName    string                 `json:"display_name"`
	Columns        []domain.ColumnSpec    `json:"columns"`
	ClinicalRanges []domain.ClinicalRange `json:"clinical_ranges,omitempty"`
	SourceURL      string                 `json:"source_url,omitempty"`
	RawFile        string                 `json:"raw_file"`
}

// DatasetListResponse lists registered datasets
type DatasetListResponse struct {
	Datasets []DatasetInfo `json:"datasets"`
}

// NewRunSummary builds the list view of run
func NewRunSummary(run domain.PipelineRun) RunSummary {
	s := RunSummary{
		ID:          run.ID,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Datasets:    make([]DatasetRunStatus, 0, len(run.Datasets)),
		Failed:      len(run.Failed()),
	}
	for _, d := range run.Datasets {
		s.Datasets = append(s.Datasets, DatasetRunStatus{
			Dataset:     d.Dataset,
			Status:      d.Status,
			Fingerprint: d.Fingerprint,
			ErrorType:   d.ErrorType,
		})
	}
	return s
}

// NewDatasetInfo builds the API view of a dataset spec
func NewDatasetInfo(spec domain.DatasetSpec) DatasetInfo {
	return DatasetInfo{
		Type:           spec.Type,
		DisplayName:    spec.DisplayName,
		Columns:        spec.Columns,
		ClinicalRanges: spec.ClinicalRanges,
		SourceURL:      spec.SourceURL,
		RawFile:        spec.RawFile,
	}
}
