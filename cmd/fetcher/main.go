package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"clinicalqc/internal/app"
	"clinicalqc/internal/config"
	"clinicalqc/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (defaults to config.yaml lookup)")
	datasets := flag.String("datasets", "", "comma separated dataset types (defaults to every registered dataset)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	components, err := app.Bootstrap(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize fetcher", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	specs, err := components.Datasets.Select(splitList(*datasets))
	if err != nil {
		logger.Error("Invalid dataset selection", slog.String("error", err.Error()))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	results, err := components.Downloader.FetchAll(ctx, specs, components.Paths)
	for _, res := range results {
		logger.InfoContext(ctx, "Raw file ready",
			slog.String("dataset", res.Dataset.String()),
			slog.String("path", res.Path),
			slog.Bool("skipped", res.Skipped),
			slog.Int64("bytes", res.Bytes))
	}
	if err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Fetch failed")
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
