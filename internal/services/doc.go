// Package services sits between the HTTP handlers and the pipeline.
//
// HealthService reports liveness and readiness of the data tree, the dataset
// registry and the run store. DataService lists files produced by pipeline
// runs, resolves download paths inside the data tree, and looks up audit
// reports of stored runs.
//
// Services take their dependencies through constructors and log with an
// injected *slog.Logger. Errors are returned as *errors.AppError so the HTTP
// layer can map them to problem responses.
package services
