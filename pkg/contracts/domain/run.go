package domain

import (
	"time"
)

// RunStatus represents the status of a dataset run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// StageRecord reports the outcome of one stage of a dataset run
type StageRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     RunStatus `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// DatasetRun summarizes one dataset's pass through the pipeline
type DatasetRun struct {
	Dataset       DatasetType       `json:"dataset"`
	Status        RunStatus         `json:"status"`
	StartedAt     time.Time         `json:"started_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	Rows          int               `json:"rows"`
	CellsImputed  int               `json:"cells_imputed"`
	Rounds        int               `json:"rounds"`
	Fingerprint   string            `json:"fingerprint,omitempty"`
	Missingness   []MissingnessStat `json:"missingness,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	Audit         *AuditReport      `json:"audit,omitempty"`
	CanonicalPath string            `json:"canonical_path,omitempty"`
	MLReadyPath   string            `json:"ml_ready_path,omitempty"`
	Stages        []StageRecord     `json:"stages,omitempty"`
	Error         string            `json:"error,omitempty"`
	ErrorType     string            `json:"error_type,omitempty"`
}

// PipelineRun groups the dataset runs triggered together
type PipelineRun struct {
	ID          string       `json:"id"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Datasets    []DatasetRun `json:"datasets"`
	Workbook    string       `json:"workbook,omitempty"`
}

// Dataset returns the run of one dataset
func (p PipelineRun) Dataset(t DatasetType) (DatasetRun, bool) {
	for _, d := range p.Datasets {
		if d.Dataset == t {
			return d, true
		}
	}
	return DatasetRun{}, false
}

// Failed returns the dataset runs that did not complete
func (p PipelineRun) Failed() []DatasetRun {
	var out []DatasetRun
	for _, d := range p.Datasets {
		if d.Status == RunStatusFailed {
			out = append(out, d)
		}
	}
	return out
}
