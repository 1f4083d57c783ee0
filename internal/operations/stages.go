package operations

import (
	"context"
	"errors"
	"log/slog"

	"clinicalqc/internal/audit"
	"clinicalqc/internal/config"
	"clinicalqc/internal/dataprocessing"
	"clinicalqc/internal/exporter"
	"clinicalqc/internal/fetch"
	"clinicalqc/internal/imputation"
	"clinicalqc/internal/infrastructure"
)

// SkipError tells the manager that a Step had nothing to do
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip returns a SkipError with the given reason
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

func isSkip(err error) (*SkipError, bool) {
	var skip *SkipError
	ok := errors.As(err, &skip)
	return skip, ok
}

// Dependencies are the collaborators shared by the stages
type Dependencies struct {
	Paths      *config.Paths
	Downloader *fetch.Downloader
	Logger     *slog.Logger
	Metrics    *infrastructure.PipelineMetrics
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = infrastructure.NoopMetrics()
	}
	if d.Paths == nil {
		d.Paths = config.NewPaths(config.DefaultDataDir, config.DefaultLogsDir)
	}
	return d
}

// DefaultStages returns the pipeline stages in execution order
func DefaultStages(deps Dependencies, fetchEnabled bool) []Step {
	deps = deps.withDefaults()
	return []Step{
		NewFetchStage(deps, fetchEnabled),
		NewParseStage(deps),
		NewCanonicalizeStage(deps),
		NewImputeStage(deps),
		NewEnforceStage(deps),
		NewAuditStage(deps),
		NewExportStage(deps),
	}
}

// FetchStage downloads the raw file when it is not present yet
type FetchStage struct {
	BaseStage
	downloader *fetch.Downloader
	paths      *config.Paths
	enabled    bool
}

// NewFetchStage creates the acquisition stage
func NewFetchStage(deps Dependencies, enabled bool) *FetchStage {
	return &FetchStage{
		BaseStage:  NewBaseStage(StageIDFetch, StageNameFetch, nil),
		downloader: deps.Downloader,
		paths:      deps.Paths,
		enabled:    enabled,
	}
}

// Execute implements Step
func (s *FetchStage) Execute(ctx context.Context, state *DatasetState) error {
	if !s.enabled || s.downloader == nil {
		return Skip("fetching disabled")
	}
	res, err := s.downloader.FetchDataset(ctx, state.Spec, s.paths)
	if err != nil {
		return err
	}
	state.RawPath = res.Path
	if res.Skipped {
		return Skip("raw file already present")
	}
	return nil
}

// ParseStage reads the raw file into a table
type ParseStage struct {
	BaseStage
	paths *config.Paths
}

// NewParseStage creates the parsing stage
func NewParseStage(deps Dependencies) *ParseStage {
	return &ParseStage{
		BaseStage: NewBaseStage(StageIDParse, StageNameParse, []string{StageIDFetch}),
		paths:     deps.Paths,
	}
}

// Execute implements Step
func (s *ParseStage) Execute(ctx context.Context, state *DatasetState) error {
	path := state.RawPath
	if path == "" {
		path = s.paths.RawFile(state.Spec)
	}

	raw, err := dataprocessing.ParseFile(path, state.Spec)
	if err != nil {
		return err
	}
	state.RawPath = path
	state.Raw = raw
	return nil
}

// CanonicalizeStage resolves missing sentinels
type CanonicalizeStage struct {
	BaseStage
	logger *slog.Logger
}

// NewCanonicalizeStage creates the canonicalization stage
func NewCanonicalizeStage(deps Dependencies) *CanonicalizeStage {
	return &CanonicalizeStage{
		BaseStage: NewBaseStage(StageIDCanonicalize, StageNameCanonicalize, []string{StageIDParse}),
		logger:    deps.Logger,
	}
}

// Execute implements Step
func (s *CanonicalizeStage) Execute(ctx context.Context, state *DatasetState) error {
	res, err := dataprocessing.Canonicalize(state.Raw, state.Spec)
	if err != nil {
		return err
	}
	state.Canonical = res

	s.logger.InfoContext(ctx, "canonical table ready",
		slog.Int("rows", res.Table.Rows()),
		slog.Int("missing_cells", res.Mask.Total()))
	return nil
}

// ImputeStage fills missing cells
type ImputeStage struct {
	BaseStage
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewImputeStage creates the imputation stage
func NewImputeStage(deps Dependencies) *ImputeStage {
	return &ImputeStage{
		BaseStage: NewBaseStage(StageIDImpute, StageNameImpute, []string{StageIDCanonicalize}),
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// Execute implements Step
func (s *ImputeStage) Execute(ctx context.Context, state *DatasetState) error {
	cfg := state.Imputation
	im := imputation.New(imputation.Options{
		MaxRounds:       cfg.MaxRounds,
		Seed:            cfg.Seed,
		Order:           imputation.Order(cfg.Order),
		SamplePosterior: cfg.SamplePosterior,
		Tolerance:       cfg.Tolerance,
		MinValues:       cfg.MinValues,
		MaxValues:       cfg.MaxValues,
		Logger:          s.logger,
	})

	tbl, res, err := im.Impute(ctx, state.Canonical.Table, state.Canonical.Mask)
	if err != nil {
		return err
	}
	state.Imputed = tbl
	state.Imputer = res

	infrastructure.AddCount(ctx, s.metrics.CellsImputed, state.Dataset(), res.CellsImputed)
	return nil
}

// EnforceStage applies domain constraints and fingerprints the ml-ready table
type EnforceStage struct {
	BaseStage
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewEnforceStage creates the constraint stage
func NewEnforceStage(deps Dependencies) *EnforceStage {
	return &EnforceStage{
		BaseStage: NewBaseStage(StageIDEnforce, StageNameEnforce, []string{StageIDImpute}),
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// Execute implements Step
func (s *EnforceStage) Execute(ctx context.Context, state *DatasetState) error {
	ml, warnings, stats, err := dataprocessing.EnforceConstraintsWithStats(
		state.Imputed, state.Canonical.Table, state.Spec,
		dataprocessing.ConstraintOptions{WarnFraction: state.WarnFrac, Logger: s.logger})
	if err != nil {
		return err
	}

	fp, err := Fingerprint(ml)
	if err != nil {
		return err
	}

	state.MLReady = ml
	state.Warnings = warnings
	state.Stats = stats
	state.Fingerprint = fp

	dataset := state.Dataset()
	infrastructure.AddCount(ctx, s.metrics.ConstraintAlterations, dataset, stats.Clipped+stats.Rounded)
	infrastructure.AddCount(ctx, s.metrics.ConstraintWarnings, dataset, len(warnings))

	s.logger.InfoContext(ctx, "ml-ready table ready",
		slog.String("fingerprint", fp),
		slog.Int("clipped", stats.Clipped),
		slog.Int("rounded", stats.Rounded))
	return nil
}

// AuditStage compares the canonical and ml-ready tables
type AuditStage struct {
	BaseStage
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewAuditStage creates the audit stage
func NewAuditStage(deps Dependencies) *AuditStage {
	return &AuditStage{
		BaseStage: NewBaseStage(StageIDAudit, StageNameAudit, []string{StageIDEnforce}),
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// Execute implements Step
func (s *AuditStage) Execute(ctx context.Context, state *DatasetState) error {
	report := audit.New(state.Spec).WithLogger(s.logger).Run(ctx, state.Canonical.Table, state.MLReady)
	state.Audit = &report

	dataset := state.Dataset()
	infrastructure.AddCount(ctx, s.metrics.Outliers, dataset, report.TotalOutliers())
	infrastructure.AddCount(ctx, s.metrics.RangeViolations, dataset, report.TotalViolations())
	return nil
}

// ExportStage writes the canonical and ml-ready tables and the audit CSVs
type ExportStage struct {
	BaseStage
	paths  *config.Paths
	csv    *exporter.CSVWriter
	audits *exporter.AuditExporter
}

// NewExportStage creates the export stage. It needs only the ml-ready table;
// audit CSVs are written when the audit stage succeeded.
func NewExportStage(deps Dependencies) *ExportStage {
	return &ExportStage{
		BaseStage: NewBaseStage(StageIDExport, StageNameExport, []string{StageIDEnforce}),
		paths:     deps.Paths,
		csv:       exporter.NewCSVWriter(deps.Paths, deps.Logger),
		audits:    exporter.NewAuditExporter(deps.Paths, deps.Logger),
	}
}

// Execute implements Step
func (s *ExportStage) Execute(ctx context.Context, state *DatasetState) error {
	canonicalPath := s.paths.CanonicalFile(state.Spec.Type)
	if err := s.csv.WriteTableFile(canonicalPath, state.Canonical.Table); err != nil {
		return err
	}
	state.CanonicalPath = canonicalPath

	mlPath := s.paths.ProcessedFile(state.Spec.Type)
	if err := s.csv.WriteTableFile(mlPath, state.MLReady); err != nil {
		return err
	}
	state.MLReadyPath = mlPath

	if da, ok := state.AuditExport(); ok {
		files, err := s.audits.ExportCSV(da)
		if err != nil {
			return err
		}
		state.ReportFiles = files
	}
	return nil
}
