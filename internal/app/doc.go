// Package app wires the clinical QC service together: configuration,
// logging, telemetry, the dataset registry, the downloader, the operations
// manager and the HTTP router.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, YAML and CLINQC_* environment
//	2. Initialize logging and OpenTelemetry
//	3. Resolve the data layout and the dataset registry
//	4. Build the downloader and the operations manager (Bootstrap)
//	5. Build services, handlers and the middleware chain
//	6. Start the HTTP server
//
// The command line tools call Bootstrap directly and skip the HTTP layer.
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests within
// the configured shutdown timeout and flushes telemetry.
package app
