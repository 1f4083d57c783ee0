package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"clinicalqc/internal/config"
	apperrors "clinicalqc/internal/errors"
	"clinicalqc/internal/exporter"
	"clinicalqc/internal/infrastructure"
	"clinicalqc/pkg/contracts/domain"
)

// Manager runs datasets through the registered stages. A failing dataset is
// recorded in the run and never stops the other datasets.
type Manager struct {
	registry *Registry
	config   *Config
	datasets *config.Registry
	store    *RunStore
	audits   *exporter.AuditExporter
	paths    *config.Paths
	tracer   trace.Tracer
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger
}

// NewManager creates a manager with the default stages registered
func NewManager(cfg *Config, datasets *config.Registry, deps Dependencies) (*Manager, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if datasets == nil {
		datasets = config.DefaultRegistry()
	}
	deps = deps.withDefaults()

	registry := NewRegistry()
	for _, step := range DefaultStages(deps, cfg.Fetch) {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}

	return NewManagerWithRegistry(cfg, datasets, deps, registry)
}

// NewManagerWithRegistry creates a manager running the steps of registry
func NewManagerWithRegistry(cfg *Config, datasets *config.Registry, deps Dependencies, registry *Registry) (*Manager, error) {
	deps = deps.withDefaults()
	if _, err := registry.GetDependencyOrder(); err != nil {
		return nil, apperrors.NewConfigError("invalid stage registry", err)
	}

	return &Manager{
		registry: registry,
		config:   cfg,
		datasets: datasets,
		store:    NewRunStore(DefaultRunHistory),
		audits:   exporter.NewAuditExporter(deps.Paths, deps.Logger),
		paths:    deps.Paths,
		tracer:   otel.Tracer(infrastructure.TracerName),
		metrics:  deps.Metrics,
		logger:   deps.Logger.With(slog.String("component", "operations")),
	}, nil
}

// Store returns the run history
func (m *Manager) Store() *RunStore {
	return m.store
}

// Datasets returns the dataset registry
func (m *Manager) Datasets() *config.Registry {
	return m.datasets
}

// GetRegistry returns the registry for accessing registered stages
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Run processes the requested datasets. The returned error reports invalid
// requests only; per-dataset failures are recorded in the run.
func (m *Manager) Run(ctx context.Context, req RunRequest) (*domain.PipelineRun, error) {
	specs, err := m.datasets.Select(req.Datasets)
	if err != nil {
		return nil, apperrors.NewAppValidationError(err.Error())
	}

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, apperrors.NewConfigError("invalid stage registry", err)
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	imp := m.config.imputationFor(req)

	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}
	ctx = infrastructure.WithTraceID(ctx, req.ID)

	ctx, span := m.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", req.ID),
			attribute.Int("run.datasets", len(specs)),
			attribute.Int64("imputation.seed", int64(imp.Seed)),
		))
	defer span.End()

	run := &domain.PipelineRun{
		ID:        req.ID,
		StartedAt: time.Now().UTC(),
		Datasets:  make([]domain.DatasetRun, len(specs)),
	}

	m.logger.InfoContext(ctx, "pipeline run started",
		slog.Int("datasets", len(specs)),
		slog.Int("stages", len(steps)),
		slog.Int("concurrency", m.config.MaxConcurrency))

	states := make([]*DatasetState, len(specs))
	var g errgroup.Group
	if m.config.MaxConcurrency > 0 {
		g.SetLimit(m.config.MaxConcurrency)
	}
	for i, spec := range specs {
		state := NewDatasetState(req.ID, spec, imp, m.config.WarnFraction)
		states[i] = state
		g.Go(func() error {
			m.runDataset(ctx, state, steps)
			return nil
		})
	}
	_ = g.Wait()

	var audits []exporter.DatasetAudit
	for i, state := range states {
		run.Datasets[i] = state.ToRun()
		if da, ok := state.AuditExport(); ok {
			audits = append(audits, da)
		}
	}

	if m.config.Workbook && len(audits) > 0 {
		path := m.paths.WorkbookFile()
		if err := m.audits.ExportWorkbook(path, audits); err != nil {
			infrastructure.RecordError(ctx, err)
			m.logger.ErrorContext(ctx, "workbook export failed", slog.String("error", err.Error()))
		} else {
			run.Workbook = path
		}
	}

	run.CompletedAt = time.Now().UTC()
	m.store.Save(*run)

	failed := len(run.Failed())
	span.SetAttributes(attribute.Int("run.failed", failed))
	m.logger.InfoContext(ctx, "pipeline run finished",
		slog.Int("datasets", len(run.Datasets)),
		slog.Int("failed", failed),
		slog.Duration("duration", run.CompletedAt.Sub(run.StartedAt)))

	return run, nil
}

// runDataset executes steps in order for one dataset. A step whose
// dependencies did not complete is skipped; the first failure becomes the
// dataset's error.
func (m *Manager) runDataset(ctx context.Context, state *DatasetState, steps []Step) {
	dataset := state.Dataset()
	ctx = infrastructure.WithDataset(ctx, dataset)
	ctx, span := m.tracer.Start(ctx, "pipeline.dataset",
		trace.WithAttributes(attribute.String("dataset", dataset)))
	defer span.End()

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	var firstErr error
	blocked := make(map[string]bool)
	for _, step := range steps {
		stepState := state.GetStage(step.ID())

		if dep, ok := unmetDependency(step, blocked); !ok {
			blocked[step.ID()] = true
			stepState.Skip(fmt.Sprintf("dependency %s did not complete", dep))
			if firstErr == nil {
				firstErr = NewDependencyError(dataset, step.ID(), dep)
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			blocked[step.ID()] = true
			stepState.Fail(err)
			if firstErr == nil {
				firstErr = NewCancellationError(dataset, step.ID(), err)
			}
			continue
		}

		if err := m.executeStage(ctx, state, step, stepState); err != nil {
			blocked[step.ID()] = true
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	state.Finish(firstErr)
	infrastructure.RecordDatasetOutcome(ctx, m.metrics, dataset, firstErr)

	if firstErr != nil {
		infrastructure.RecordError(ctx, firstErr)
		m.logger.ErrorContext(ctx, "dataset run failed",
			slog.String("error", firstErr.Error()),
			slog.String("error_type", errorTypeLabel(firstErr)))
		return
	}
	m.logger.InfoContext(ctx, "dataset run completed",
		slog.String("fingerprint", state.Fingerprint),
		slog.Int("warnings", len(state.Warnings)))
}

// executeStage runs one step with its timeout, span and metrics
func (m *Manager) executeStage(ctx context.Context, state *DatasetState, step Step, stepState *StepState) error {
	dataset := state.Dataset()

	stageCtx, cancel := context.WithTimeout(ctx, m.config.GetStageTimeout(step.ID()))
	defer cancel()
	stageCtx, span := m.tracer.Start(stageCtx, "pipeline.stage."+step.ID(),
		trace.WithAttributes(
			attribute.String("dataset", dataset),
			attribute.String("stage.id", step.ID()),
		))
	defer span.End()

	m.logger.DebugContext(stageCtx, "executing stage", slog.String("stage", step.ID()))

	stepState.Start()
	start := time.Now()
	err := runStep(stageCtx, step, state)
	duration := time.Since(start)

	if skip, ok := isSkip(err); ok {
		stepState.Skip(skip.Reason)
		infrastructure.AddSpanEvent(stageCtx, "stage skipped", attribute.String("reason", skip.Reason))
		m.logger.InfoContext(stageCtx, "stage skipped",
			slog.String("stage", step.ID()),
			slog.String("reason", skip.Reason))
		return nil
	}

	infrastructure.RecordStageMetrics(stageCtx, m.metrics, dataset, step.ID(), duration, err)

	if err != nil {
		opErr := wrapStageError(dataset, step.ID(), err)
		stepState.Fail(err)
		infrastructure.RecordError(stageCtx, err)
		m.logger.WarnContext(stageCtx, "stage failed",
			slog.String("stage", step.ID()),
			slog.String("error", err.Error()))
		return opErr
	}

	stepState.Complete()
	m.logger.DebugContext(stageCtx, "stage completed",
		slog.String("stage", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

// runStep executes step and turns a panic into the step's error so one
// dataset cannot bring down the run
func runStep(ctx context.Context, step Step, state *DatasetState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", step.ID(), r)
		}
	}()
	return step.Execute(ctx, state)
}

// unmetDependency returns the first dependency of step that failed or was blocked
func unmetDependency(step Step, blocked map[string]bool) (string, bool) {
	for _, dep := range step.GetDependencies() {
		if blocked[dep] {
			return dep, false
		}
	}
	return "", true
}
