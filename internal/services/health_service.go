package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"clinicalqc/internal/config"
	"clinicalqc/internal/operations"
	"clinicalqc/pkg/contracts"
)

// Status values reported by health checks
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// HealthService provides health check functionality
type HealthService struct {
	paths     *config.Paths
	datasets  *config.Registry
	store     *operations.RunStore
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual component health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(paths *config.Paths, datasets *config.Registry, store *operations.RunStore, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		paths:     paths,
		datasets:  datasets,
		store:     store,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports whether the data tree and dataset registry are usable
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"data":     hs.checkDataHealth(),
			"datasets": hs.checkDatasetHealth(),
			"runs":     hs.checkRunStoreHealth(),
		},
	}

	for name, sh := range status.Services {
		if sh.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "component not ready",
				slog.String("component", name),
				slog.String("message", sh.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"data_format":  info.DataFormat,
		"api_version":  info.APIVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

// checkDataHealth checks that every data directory exists and is a directory
func (hs *HealthService) checkDataHealth() ServiceHealth {
	for _, dir := range []string{hs.paths.RawDir, hs.paths.CanonicalDir, hs.paths.ProcessedDir, hs.paths.ReportsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("data directory unavailable: %s", dir)}
		}
		if !info.IsDir() {
			return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("not a directory: %s", dir)}
		}
	}
	return ServiceHealth{Status: StatusReady, Message: "data directories present"}
}

// checkDatasetHealth checks that at least one dataset is registered
func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.datasets == nil || len(hs.datasets.Types()) == 0 {
		return ServiceHealth{Status: StatusNotReady, Message: "no datasets registered"}
	}
	return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%d datasets registered", len(hs.datasets.Types()))}
}

func (hs *HealthService) checkRunStoreHealth() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "run store not initialized"}
	}
	return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%d runs stored", len(hs.store.List()))}
}
