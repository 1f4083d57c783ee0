package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "clinicalqc/internal/errors"
	"clinicalqc/internal/services"
	api "clinicalqc/pkg/contracts/api/v1"
)

// FileService lists and resolves files of the data tree
type FileService interface {
	ListFiles(ctx context.Context) (services.FileListing, error)
	ResolveFile(ctx context.Context, area, name string) (string, error)
}

// FilesHandler serves pipeline outputs for download
type FilesHandler struct {
	service FileService
	errors  *apperrors.ErrorHandler
	logger  *slog.Logger
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(service FileService, errHandler *apperrors.ErrorHandler, logger *slog.Logger) *FilesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errHandler == nil {
		errHandler = apperrors.NewErrorHandler(logger, false)
	}
	return &FilesHandler{
		service: service,
		errors:  errHandler,
		logger:  logger.With(slog.String("handler", "files")),
	}
}

// Routes returns a chi router for file endpoints
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListFiles)
	r.Get("/{area}/*", h.Download)
	return r
}

// ListFiles handles GET /api/files, optionally filtered by ?area=
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	req := api.FileListRequest{Area: r.URL.Query().Get("area")}
	if err := req.Validate(); err != nil {
		h.errors.HandleError(w, r, apperrors.NewAppValidationError("invalid area: "+req.Area))
		return
	}

	listing, err := h.service.ListFiles(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	if req.Area != "" {
		for area := range listing.Areas {
			if area != req.Area {
				delete(listing.Areas, area)
			}
		}
	}
	render.JSON(w, r, listing)
}

// Download handles GET /api/files/{area}/{name}
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")
	name := chi.URLParam(r, "*")

	path, err := h.service.ResolveFile(r.Context(), area, name)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "serving file",
		slog.String("area", area),
		slog.String("name", name))

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	switch filepath.Ext(path) {
	case ".csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	case ".xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	http.ServeFile(w, r, path)
}
