package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"clinicalqc/internal/config"
	apperrors "clinicalqc/internal/errors"
	"clinicalqc/internal/infrastructure"
	"clinicalqc/pkg/contracts/domain"
)

// Options configures a Downloader
type Options struct {
	// Client overrides the HTTP client; its transport is wrapped with otelhttp.
	Client *http.Client
	// Timeout applies when Client is nil
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests; zero disables limiting
	RequestsPerSecond float64
	Burst             int
	Logger            *slog.Logger
	Metrics           *infrastructure.PipelineMetrics
}

// Result describes one acquisition
type Result struct {
	Dataset domain.DatasetType `json:"dataset"`
	Path    string             `json:"path"`
	Skipped bool               `json:"skipped"`
	Bytes   int64              `json:"bytes"`
}

// Downloader fetches raw dataset files over HTTP
type Downloader struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewDownloader creates a downloader
func NewDownloader(opts Options) *Downloader {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = config.DefaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	instrumented := *client
	instrumented.Transport = otelhttp.NewTransport(base)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = infrastructure.NoopMetrics()
	}

	return &Downloader{
		client:  &instrumented,
		limiter: limiter,
		logger:  logger.With(slog.String("component", "fetch")),
		metrics: metrics,
	}
}

// Download saves url to target unless target already exists.
// Parent directories are created. The file appears atomically, so an
// interrupted download never leaves a partial file that a later run would skip.
func (d *Downloader) Download(ctx context.Context, url, target string) (Result, error) {
	res := Result{Path: target}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return res, apperrors.NewStorageError("failed to create directory", err)
	}

	if info, err := os.Stat(target); err == nil {
		d.logger.InfoContext(ctx, "skipping download, file exists", slog.String("path", target))
		d.record(ctx, "skipped")
		res.Skipped = true
		res.Bytes = info.Size()
		return res, nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return res, err
	}

	d.logger.InfoContext(ctx, "downloading", slog.String("url", url), slog.String("path", target))

	n, err := d.fetch(ctx, url, target)
	if err != nil {
		d.record(ctx, "failed")
		return res, err
	}

	d.record(ctx, "downloaded")
	res.Bytes = n
	d.logger.InfoContext(ctx, "download complete",
		slog.String("path", target),
		slog.Int64("bytes", n))
	return res, nil
}

func (d *Downloader) fetch(ctx context.Context, url, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, apperrors.NewNetworkError(fmt.Sprintf("invalid url %q", url), err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, apperrors.NewNetworkError(fmt.Sprintf("failed to fetch %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apperrors.NewNetworkError(
			fmt.Sprintf("download failed with status: %d", resp.StatusCode), nil).
			WithContext("url", url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return 0, apperrors.NewStorageError("failed to create temporary file", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, apperrors.NewNetworkError(fmt.Sprintf("failed to read %s", url), err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, apperrors.NewStorageError(fmt.Sprintf("failed to move download to %s", target), err)
	}
	return n, nil
}

// FetchDataset acquires the raw file of one dataset. Datasets without a
// source URL must already be present in the raw directory.
func (d *Downloader) FetchDataset(ctx context.Context, spec domain.DatasetSpec, paths *config.Paths) (Result, error) {
	target := paths.RawFile(spec)
	ctx = infrastructure.WithDataset(ctx, spec.Type.String())

	if spec.SourceURL == "" {
		if config.FileExists(target) {
			return Result{Dataset: spec.Type, Path: target, Skipped: true}, nil
		}
		return Result{Dataset: spec.Type, Path: target}, apperrors.NewMissingInputError(target, nil)
	}

	res, err := d.Download(ctx, spec.SourceURL, target)
	res.Dataset = spec.Type
	return res, err
}

// FetchAll acquires every dataset in order. A failed dataset does not stop
// the others; the returned error joins all failures.
func (d *Downloader) FetchAll(ctx context.Context, specs []domain.DatasetSpec, paths *config.Paths) ([]Result, error) {
	results := make([]Result, 0, len(specs))
	var errs []error

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := d.FetchDataset(ctx, spec, paths)
		results = append(results, res)
		if err != nil {
			d.logger.ErrorContext(ctx, "fetch failed",
				slog.String("dataset", spec.Type.String()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", spec.Type, err))
		}
	}

	return results, errors.Join(errs...)
}

func (d *Downloader) record(ctx context.Context, outcome string) {
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if ds := infrastructure.GetDataset(ctx); ds != "" {
		attrs = append(attrs, attribute.String("dataset", ds))
	}
	d.metrics.DownloadsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
