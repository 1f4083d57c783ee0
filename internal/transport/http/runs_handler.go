package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "clinicalqc/internal/errors"
	"clinicalqc/internal/infrastructure"
	"clinicalqc/internal/middleware"
	"clinicalqc/internal/operations"
	api "clinicalqc/pkg/contracts/api/v1"
	"clinicalqc/pkg/contracts/domain"
)

// RunService executes pipeline runs and keeps their results
type RunService interface {
	Run(ctx context.Context, req operations.RunRequest) (*domain.PipelineRun, error)
	Store() *operations.RunStore
}

// AuditLookup finds audit reports of stored runs
type AuditLookup interface {
	Audit(runID string, dataset domain.DatasetType) (domain.AuditReport, error)
}

// RunsHandler handles pipeline run requests
type RunsHandler struct {
	service RunService
	audits  AuditLookup
	errors  *apperrors.ErrorHandler
	logger  *slog.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(service RunService, audits AuditLookup, errHandler *apperrors.ErrorHandler, logger *slog.Logger) *RunsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errHandler == nil {
		errHandler = apperrors.NewErrorHandler(logger, false)
	}
	return &RunsHandler{
		service: service,
		audits:  audits,
		errors:  errHandler,
		logger:  logger.With(slog.String("handler", "runs")),
	}
}

// Routes returns a chi router for run endpoints
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.StartRun)
	r.Get("/", h.ListRuns)
	r.Get("/latest", h.LatestRun)
	r.Get("/{id}", h.GetRun)
	r.Get("/{id}/datasets/{dataset}", h.GetDatasetRun)
	r.Get("/{id}/datasets/{dataset}/audit", h.GetAudit)
	return r
}

// StartRun handles POST /api/runs. The run executes synchronously; per-dataset
// failures are reported in the body, not as an error status.
func (h *RunsHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(infrastructure.TracerName).Start(r.Context(), "runs_handler.start_run")
	defer span.End()

	data := &api.RunRequest{}
	bind := func() error { return render.Bind(r, data) }
	if r.ContentLength == 0 {
		// empty body runs every dataset with configured settings
		bind = func() error { return data.Bind(r) }
	}
	if err := bind(); err != nil {
		span.RecordError(err)
		h.errors.HandleError(w, r.WithContext(ctx), bindError(err))
		return
	}

	req := operations.RunRequest{
		Datasets:        data.Datasets,
		Seed:            data.Seed,
		MaxRounds:       data.MaxRounds,
		SamplePosterior: data.SamplePosterior,
	}

	h.logger.InfoContext(ctx, "run requested",
		slog.Any("datasets", req.Datasets),
		slog.String("request_id", middleware.GetRequestID(ctx)))

	run, err := h.service.Run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		h.errors.HandleError(w, r.WithContext(ctx), err)
		return
	}

	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("run.datasets", len(run.Datasets)),
		attribute.Int("run.failed", len(run.Failed())),
	)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, run)
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.service.Store().List()
	resp := api.RunListResponse{
		Runs:  make([]api.RunSummary, 0, len(runs)),
		Total: len(runs),
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, api.NewRunSummary(run))
	}
	render.JSON(w, r, resp)
}

// LatestRun handles GET /api/runs/latest
func (h *RunsHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.service.Store().Latest()
	if !ok {
		h.errors.HandleError(w, r, apperrors.NewNotFoundError("run"))
		return
	}
	render.JSON(w, r, run)
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Store().Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, run)
}

// GetDatasetRun handles GET /api/runs/{id}/datasets/{dataset}
func (h *RunsHandler) GetDatasetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Store().Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	dataset, err := datasetParam(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	d, ok := run.Dataset(dataset)
	if !ok {
		h.errors.HandleError(w, r, apperrors.NewNotFoundError("dataset "+dataset.String()+" in run").
			WithContext("run_id", run.ID))
		return
	}
	render.JSON(w, r, d)
}

// GetAudit handles GET /api/runs/{id}/datasets/{dataset}/audit
func (h *RunsHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	dataset, err := datasetParam(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	if h.audits == nil {
		h.errors.HandleError(w, r, apperrors.NewNotFoundError("audit"))
		return
	}

	report, err := h.audits.Audit(chi.URLParam(r, "id"), dataset)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// datasetParam parses the {dataset} URL parameter
func datasetParam(r *http.Request) (domain.DatasetType, error) {
	dataset, err := domain.ParseDatasetType(chi.URLParam(r, "dataset"))
	if err != nil {
		return "", apperrors.NewAppValidationError(err.Error())
	}
	return dataset, nil
}

// bindError turns decode and validator failures into validation errors
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewAppValidationError("invalid request field " + fe.Field() + ": failed " + fe.Tag()).
			WithContext("field", fe.Field())
	}
	return apperrors.NewAppValidationError("invalid request body: " + err.Error())
}
