package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"clinicalqc/internal/config"
	apperrors "clinicalqc/internal/errors"
	api "clinicalqc/pkg/contracts/api/v1"
	"clinicalqc/pkg/contracts/domain"
)

// LatestAuditLookup finds the most recent audit of a dataset
type LatestAuditLookup interface {
	LatestAudit(dataset domain.DatasetType) (domain.AuditReport, error)
}

// DatasetsHandler serves the dataset registry
type DatasetsHandler struct {
	registry *config.Registry
	audits   LatestAuditLookup
	errors   *apperrors.ErrorHandler
	logger   *slog.Logger
}

// NewDatasetsHandler creates a new datasets handler
func NewDatasetsHandler(registry *config.Registry, audits LatestAuditLookup, errHandler *apperrors.ErrorHandler, logger *slog.Logger) *DatasetsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errHandler == nil {
		errHandler = apperrors.NewErrorHandler(logger, false)
	}
	return &DatasetsHandler{
		registry: registry,
		audits:   audits,
		errors:   errHandler,
		logger:   logger.With(slog.String("handler", "datasets")),
	}
}

// Routes returns a chi router for dataset endpoints
func (h *DatasetsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListDatasets)
	r.Get("/{dataset}", h.GetDataset)
	r.Get("/{dataset}/audit", h.LatestAudit)
	return r
}

// ListDatasets handles GET /api/datasets
func (h *DatasetsHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	specs := h.registry.Specs()
	resp := api.DatasetListResponse{Datasets: make([]api.DatasetInfo, 0, len(specs))}
	for _, spec := range specs {
		resp.Datasets = append(resp.Datasets, api.NewDatasetInfo(spec))
	}
	render.JSON(w, r, resp)
}

// GetDataset handles GET /api/datasets/{dataset}
func (h *DatasetsHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	dataset, err := datasetParam(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	spec, ok := h.registry.Get(dataset)
	if !ok {
		h.errors.HandleError(w, r, apperrors.NewNotFoundError("dataset "+dataset.String()))
		return
	}
	render.JSON(w, r, api.NewDatasetInfo(spec))
}

// LatestAudit handles GET /api/datasets/{dataset}/audit
func (h *DatasetsHandler) LatestAudit(w http.ResponseWriter, r *http.Request) {
	dataset, err := datasetParam(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	if _, ok := h.registry.Get(dataset); !ok {
		h.errors.HandleError(w, r, apperrors.NewNotFoundError("dataset "+dataset.String()))
		return
	}

	report, err := h.audits.LatestAudit(dataset)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}
