package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"clinicalqc/internal/config"
	"clinicalqc/internal/errors"
	"clinicalqc/internal/fetch"
	"clinicalqc/internal/infrastructure"
	customMiddleware "clinicalqc/internal/middleware"
	"clinicalqc/internal/operations"
	"clinicalqc/internal/services"
	handlers "clinicalqc/internal/transport/http"
	"clinicalqc/pkg/contracts"
)

// AppName is the human readable service name
const AppName = "Clinical QC"

// Components are the pipeline collaborators shared by the server and the CLIs
type Components struct {
	Config        *config.Config
	Logger        *slog.Logger
	Paths         *config.Paths
	Datasets      *config.Registry
	OTelProviders *infrastructure.OTelProviders
	Downloader    *fetch.Downloader
	Manager       *operations.Manager
}

// Bootstrap wires configuration into ready-to-use pipeline components:
// directories, dataset registry, telemetry, downloader and operations manager.
func Bootstrap(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths := cfg.GetPaths()
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	datasets, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset registry: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	downloader := fetch.NewDownloader(fetch.Options{
		Timeout: config.DefaultHTTPTimeout,
		Logger:  infrastructure.WithComponent(logger, "fetch"),
		Metrics: otelProviders.Metrics,
	})

	manager, err := operations.NewManager(operations.ConfigFrom(cfg), datasets, operations.Dependencies{
		Paths:      paths,
		Downloader: downloader,
		Logger:     infrastructure.WithComponent(logger, "operations"),
		Metrics:    otelProviders.Metrics,
	})
	if err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize operations manager: %w", err)
	}

	return &Components{
		Config:        cfg,
		Logger:        logger,
		Paths:         paths,
		Datasets:      datasets,
		OTelProviders: otelProviders,
		Downloader:    downloader,
		Manager:       manager,
	}, nil
}

// Shutdown flushes telemetry
func (c *Components) Shutdown(ctx context.Context) error {
	if c.OTelProviders == nil {
		return nil
	}
	return c.OTelProviders.Shutdown(ctx)
}

// Application represents the HTTP service container
type Application struct {
	*Components

	Router        *chi.Mux
	Server        *http.Server
	HealthService *services.HealthService
	DataService   *services.DataService
	ErrorHandler  *errors.ErrorHandler
}

// NewApplication loads configuration and the logger, then builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewApplicationWithConfig(cfg, logger)
}

// NewApplicationWithConfig builds the application from an explicit configuration
func NewApplicationWithConfig(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	components, err := Bootstrap(cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &Application{Components: components}
	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes the services behind the handlers
func (a *Application) initializeServices() {
	store := a.Manager.Store()
	a.HealthService = services.NewHealthService(a.Paths, a.Datasets, store, a.Logger)
	a.DataService = services.NewDataService(a.Paths, store, a.Logger)
	a.ErrorHandler = errors.NewErrorHandler(a.Logger, false)
}

// setupRouter builds the middleware chain and routes.
// Order: RequestID → RealIP → OTel → Logger → Recoverer → headers → rate limit.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.ErrorHandler.Recoverer)
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus scrapes outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes mounts the /api handlers
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)

			datasetsHandler := handlers.NewDatasetsHandler(a.Datasets, a.DataService, a.ErrorHandler, a.Logger)
			r.Mount("/datasets", datasetsHandler.Routes())

			filesHandler := handlers.NewFilesHandler(a.DataService, a.ErrorHandler, a.Logger)
			r.Mount("/files", filesHandler.Routes())
		})

		// Runs execute the pipeline synchronously, so they get the pipeline timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Pipeline.Timeout, a.Logger))

			runsHandler := handlers.NewRunsHandler(a.Manager, a.DataService, a.ErrorHandler, a.Logger)
			r.Mount("/runs", runsHandler.Routes())
		})
	})
}

// createServer creates the HTTP server from configuration
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start begins serving in the background. A listener failure cancels ctx
// through cancel so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	go func() {
		if err := a.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", ln.Addr().String()))
	return nil
}

// Stop shuts down the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := a.Components.Shutdown(shutdownCtx); err != nil {
		infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Error shutting down OpenTelemetry")
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run starts the application and blocks until SIGINT, SIGTERM or a server failure
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck verifies the data directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	directories := map[string]string{
		"Raw":       a.Paths.RawDir,
		"Canonical": a.Paths.CanonicalDir,
		"Processed": a.Paths.ProcessedDir,
		"Reports":   a.Paths.ReportsDir,
	}

	var warnings []string
	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
			continue
		}
		os.Remove(testFile)
	}

	for _, spec := range a.Datasets.Specs() {
		if spec.SourceURL == "" && !config.FileExists(a.Paths.RawFile(spec)) {
			a.Logger.InfoContext(ctx, "Raw file not found and no source configured",
				slog.String("dataset", spec.Type.String()),
				slog.String("path", a.Paths.RawFile(spec)))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
