package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"clinicalqc/internal/config"
	"clinicalqc/pkg/contracts"
)

const (
	MeterName  = "clinicalqc"
	TracerName = "clinicalqc"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	SampleRatio    float64
	// TraceWriter receives stdout spans; nil means os.Stdout
	TraceWriter io.Writer
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *PipelineMetrics
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// OTelConfigFrom maps the telemetry section of the application config
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return &OTelConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    env,
		TraceExporter:  cfg.TraceExporter,
		EnableMetrics:  cfg.Metrics,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics providers
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = OTelConfigFrom(config.Default().Telemetry)
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{Logger: logger}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// initializeTracing sets up the tracer provider. With exporter "none" spans are
// still created, so trace IDs exist for log correlation, but nothing is exported.
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	}

	switch cfg.TraceExporter {
	case "stdout":
		var exporterOpts []stdouttrace.Option
		if cfg.TraceWriter != nil {
			exporterOpts = append(exporterOpts, stdouttrace.WithWriter(cfg.TraceWriter))
		}
		exporter, err := stdouttrace.New(exporterOpts...)
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(TracerName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.DebugContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// newResource describes the service. Attributes are added schemaless so the
// SDK detectors keep their own schema URL.
func newResource(ctx context.Context, cfg *OTelConfig) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentName(cfg.Environment),
			attribute.String("service.instance.id", generateInstanceID()),
		),
	)
}

// initializeMetrics sets up a meter provider backed by a private Prometheus registry
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	if !cfg.EnableMetrics {
		providers.Meter = noop.NewMeterProvider().Meter(MeterName)
		m, err := CreatePipelineMetrics(providers.Meter)
		if err != nil {
			return err
		}
		providers.Metrics = m
		return nil
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(mp)

	m, err := CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	providers.Metrics = m

	providers.Logger.DebugContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))

	return nil
}

// PipelineMetrics holds the application metric instruments
type PipelineMetrics struct {
	// Dataset runs
	DatasetsProcessed metric.Int64Counter
	DatasetsFailed    metric.Int64Counter
	StageDuration     metric.Float64Histogram

	// Data quality
	CellsImputed          metric.Int64Counter
	ConstraintAlterations metric.Int64Counter
	ConstraintWarnings    metric.Int64Counter
	Outliers              metric.Int64Counter
	RangeViolations       metric.Int64Counter

	// HTTP
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Fetch
	DownloadsTotal metric.Int64Counter
}

// CreatePipelineMetrics creates application-specific metrics
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var m PipelineMetrics
	var err error

	if m.DatasetsProcessed, err = meter.Int64Counter("pipeline_datasets_processed_total",
		metric.WithDescription("Datasets that completed the cleaning pipeline")); err != nil {
		return nil, err
	}
	if m.DatasetsFailed, err = meter.Int64Counter("pipeline_datasets_failed_total",
		metric.WithDescription("Datasets whose pipeline run failed")); err != nil {
		return nil, err
	}
	if m.StageDuration, err = meter.Float64Histogram("pipeline_stage_duration_seconds",
		metric.WithDescription("Duration of a pipeline stage"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.CellsImputed, err = meter.Int64Counter("imputation_cells_total",
		metric.WithDescription("Cells filled by the iterative imputer")); err != nil {
		return nil, err
	}
	if m.ConstraintAlterations, err = meter.Int64Counter("constraint_alterations_total",
		metric.WithDescription("Values changed by clipping or rounding")); err != nil {
		return nil, err
	}
	if m.ConstraintWarnings, err = meter.Int64Counter("constraint_warnings_total",
		metric.WithDescription("Columns whose altered fraction exceeded the warning threshold")); err != nil {
		return nil, err
	}
	if m.Outliers, err = meter.Int64Counter("audit_outliers_total",
		metric.WithDescription("Tukey outliers flagged in ml-ready tables")); err != nil {
		return nil, err
	}
	if m.RangeViolations, err = meter.Int64Counter("audit_range_violations_total",
		metric.WithDescription("Values outside clinical ranges in ml-ready tables")); err != nil {
		return nil, err
	}
	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.DownloadsTotal, err = meter.Int64Counter("fetch_downloads_total",
		metric.WithDescription("Raw dataset downloads by outcome")); err != nil {
		return nil, err
	}

	return &m, nil
}

// NoopMetrics returns instruments that record nothing, for tests and disabled telemetry
func NoopMetrics() *PipelineMetrics {
	m, _ := CreatePipelineMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.DebugContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the OTel trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordStageMetrics records the duration and outcome of one pipeline stage
func RecordStageMetrics(ctx context.Context, m *PipelineMetrics, dataset, stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	m.StageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("dataset", dataset),
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordDatasetOutcome records the completion or failure of one dataset run
func RecordDatasetOutcome(ctx context.Context, m *PipelineMetrics, dataset string, err error) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("dataset", dataset))
	if err != nil {
		m.DatasetsFailed.Add(ctx, 1, attrs)
		return
	}
	m.DatasetsProcessed.Add(ctx, 1, attrs)
}

// AddCount adds n to counter tagged with the dataset, ignoring non-positive n
func AddCount(ctx context.Context, counter metric.Int64Counter, dataset string, n int) {
	if counter == nil || n <= 0 {
		return
	}
	counter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("dataset", dataset)))
}
