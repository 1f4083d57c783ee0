package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"clinicalqc/internal/infrastructure"
)

// OTelMiddleware provides OpenTelemetry instrumentation for HTTP requests.
// Spans and context propagation come from otelhttp; request counters and
// durations land in the pipeline metrics so they show up on /metrics.
type OTelMiddleware struct {
	providers *infrastructure.OTelProviders
	metrics   *infrastructure.PipelineMetrics
	logger    *slog.Logger
}

// NewOTelMiddleware creates a new OpenTelemetry middleware
func NewOTelMiddleware(providers *infrastructure.OTelProviders) *OTelMiddleware {
	m := &OTelMiddleware{
		providers: providers,
		metrics:   infrastructure.NoopMetrics(),
		logger:    slog.Default(),
	}
	if providers != nil {
		if providers.Metrics != nil {
			m.metrics = providers.Metrics
		}
		if providers.Logger != nil {
			m.logger = providers.Logger
		}
	}
	return m
}

// Handler returns the middleware handler function
func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
			r = r.WithContext(ctx)
		}

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := getRoutePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.Int("status_code", status),
		)
		m.metrics.HTTPRequestsTotal.Add(ctx, 1, attrs)
		m.metrics.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)

		span.SetName(r.Method + " " + route)
		span.SetAttributes(semconv.HTTPRouteKey.String(route))
	})

	opts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	}
	if m.providers != nil && m.providers.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(m.providers.TracerProvider))
	}
	if m.providers != nil && m.providers.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(m.providers.MeterProvider))
	}

	return otelhttp.NewHandler(inner, "http.server", opts...)
}

// getRoutePattern extracts the route pattern from request context
func getRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
