package operations

import (
	"sync"
	"time"

	"clinicalqc/internal/config"
	"clinicalqc/internal/dataprocessing"
	"clinicalqc/internal/exporter"
	"clinicalqc/internal/imputation"
	"clinicalqc/pkg/contracts/domain"
)

// DatasetState carries one dataset through the stages. Each stage reads the
// outputs of earlier stages and stores its own; tables are never shared
// between stages, so a later stage cannot alter an earlier stage's output.
type DatasetState struct {
	mu sync.RWMutex

	RunID      string
	Spec       domain.DatasetSpec
	Imputation config.ImputationConfig
	WarnFrac   float64
	StartTime  time.Time
	EndTime    *time.Time

	RawPath   string
	Raw       *domain.Table
	Canonical *dataprocessing.CanonicalResult
	Imputed   *domain.Table
	Imputer   *imputation.Result
	MLReady   *domain.Table
	Warnings  []dataprocessing.ConstraintWarning
	Stats     dataprocessing.ConstraintStats
	Audit     *domain.AuditReport

	Fingerprint   string
	CanonicalPath string
	MLReadyPath   string
	ReportFiles   []string

	Steps map[string]*StepState
	order []string
	Error error
}

// NewDatasetState creates the state of one dataset run
func NewDatasetState(runID string, spec domain.DatasetSpec, imp config.ImputationConfig, warnFraction float64) *DatasetState {
	return &DatasetState{
		RunID:      runID,
		Spec:       spec,
		Imputation: imp,
		WarnFrac:   warnFraction,
		StartTime:  time.Now(),
		Steps:      make(map[string]*StepState),
	}
}

// Dataset returns the dataset type as a string
func (s *DatasetState) Dataset() string {
	return s.Spec.Type.String()
}

// GetStage returns the state of a specific Step
func (s *DatasetState) GetStage(stageID string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Steps[stageID]
}

// SetStage records the state of a specific Step, keeping insertion order
func (s *DatasetState) SetStage(stageID string, state *StepState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.Steps[stageID]; !exists {
		s.order = append(s.order, stageID)
	}
	s.Steps[stageID] = state
}

// Finish marks the dataset run as done with err (nil on success)
func (s *DatasetState) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Error = err
}

// AuditExport returns what the audit exporters need, or false before the audit ran
func (s *DatasetState) AuditExport() (exporter.DatasetAudit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Audit == nil {
		return exporter.DatasetAudit{}, false
	}
	out := exporter.DatasetAudit{Report: *s.Audit}
	if s.Canonical != nil {
		out.Missingness = s.Canonical.Missingness
	}
	return out, true
}

// ToRun converts the state into its reporting form
func (s *DatasetState) ToRun() domain.DatasetRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run := domain.DatasetRun{
		Dataset:       s.Spec.Type,
		Status:        domain.RunStatusRunning,
		StartedAt:     s.StartTime,
		CompletedAt:   s.EndTime,
		Fingerprint:   s.Fingerprint,
		Audit:         s.Audit,
		CanonicalPath: s.CanonicalPath,
		MLReadyPath:   s.MLReadyPath,
	}

	if s.EndTime != nil {
		run.Status = domain.RunStatusCompleted
	}
	if s.Error != nil {
		run.Status = domain.RunStatusFailed
		run.Error = s.Error.Error()
		run.ErrorType = errorTypeLabel(s.Error)
	}

	if s.Raw != nil {
		run.Rows = s.Raw.Rows()
	}
	if s.Canonical != nil {
		run.Missingness = s.Canonical.Missingness
	}
	if s.Imputer != nil {
		run.CellsImputed = s.Imputer.CellsImputed
		run.Rounds = s.Imputer.Rounds
	}
	for _, w := range s.Warnings {
		run.Warnings = append(run.Warnings, w.String())
	}
	for _, id := range s.order {
		run.Stages = append(run.Stages, s.Steps[id].Record())
	}
	return run
}
