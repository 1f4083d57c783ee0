// Package http implements the HTTP handlers of the clinical QC service.
// Handlers stay thin: they parse the request, call a service or the
// operations manager, and render the result with chi/render.
//
// # Routes
//
//	POST /api/runs                                  start a pipeline run
//	GET  /api/runs                                  list stored runs
//	GET  /api/runs/latest                           most recent run
//	GET  /api/runs/{id}                             one run with per-dataset results
//	GET  /api/runs/{id}/datasets/{dataset}          one dataset of a run
//	GET  /api/runs/{id}/datasets/{dataset}/audit    audit report of a dataset
//	GET  /api/datasets                              registered datasets
//	GET  /api/datasets/{dataset}                    one dataset spec
//	GET  /api/datasets/{dataset}/audit              latest audit of a dataset
//	GET  /api/files                                 files of the data tree
//	GET  /api/files/{area}/{name}                   download a file
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//
// # Error Handling
//
// Errors are rendered as RFC 7807 problem details by errors.ErrorHandler.
// The AppError type selects the status: missing input and not found map to
// 404, schema mismatch and validation to 400, imputation failures to 422.
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "[VALIDATION] unknown datasets: [liver]",
//	    "instance": "/api/runs"
//	}
package http
