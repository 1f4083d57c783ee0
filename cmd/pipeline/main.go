package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"clinicalqc/internal/app"
	"clinicalqc/internal/config"
	"clinicalqc/internal/infrastructure"
	"clinicalqc/internal/operations"
	"clinicalqc/pkg/contracts"
	"clinicalqc/pkg/contracts/domain"
)

type options struct {
	configFile string
	datasets   string
	seed       uint64
	rounds     int
	noSample   bool
	fetch      bool
	asJSON     bool
	version    bool
	set        map[string]bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	opts := &options{set: map[string]bool{}}
	fs.StringVar(&opts.configFile, "config", "", "path to a YAML config file (defaults to config.yaml lookup)")
	fs.StringVar(&opts.datasets, "datasets", "", "comma separated dataset types (defaults to every registered dataset)")
	fs.Uint64Var(&opts.seed, "seed", 0, "imputation seed (defaults to the configured seed)")
	fs.IntVar(&opts.rounds, "rounds", 0, "maximum imputation rounds (defaults to the configured value)")
	fs.BoolVar(&opts.noSample, "no-sample", false, "use posterior means instead of posterior draws")
	fs.BoolVar(&opts.fetch, "fetch", false, "download missing raw files before processing")
	fs.BoolVar(&opts.asJSON, "json", false, "print the run as JSON")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// runRequest translates flags into a manager request; unset flags keep config values
func (o *options) runRequest() operations.RunRequest {
	var req operations.RunRequest
	for _, name := range strings.Split(o.datasets, ",") {
		if name = strings.TrimSpace(name); name != "" {
			req.Datasets = append(req.Datasets, name)
		}
	}
	if o.set["seed"] {
		seed := o.seed
		req.Seed = &seed
	}
	if o.rounds > 0 {
		req.MaxRounds = o.rounds
	}
	if o.noSample {
		sample := false
		req.SamplePosterior = &sample
	}
	return req
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if opts.set["fetch"] {
		cfg.Pipeline.Fetch = opts.fetch
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	components, err := app.Bootstrap(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	run, err := components.Manager.Run(ctx, opts.runRequest())
	if err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Invalid run request")
		os.Exit(2)
	}

	if opts.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			logger.Error("Failed to encode run", slog.String("error", err.Error()))
		}
	} else {
		writeSummary(os.Stdout, run)
	}

	if len(run.Failed()) > 0 {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// writeSummary prints one line per dataset followed by warnings and errors
func writeSummary(w io.Writer, run *domain.PipelineRun) {
	fmt.Fprintf(w, "Run %s (%s)\n\n", run.ID, run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tSTATUS\tROWS\tIMPUTED\tROUNDS\tOUTLIERS\tVIOLATIONS\tFINGERPRINT")
	for _, d := range run.Datasets {
		outliers, violations := "-", "-"
		if d.Audit != nil {
			outliers = fmt.Sprint(d.Audit.TotalOutliers())
			violations = fmt.Sprint(d.Audit.TotalViolations())
		}
		fingerprint := d.Fingerprint
		if len(fingerprint) > 12 {
			fingerprint = fingerprint[:12]
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			d.Dataset, d.Status, d.Rows, d.CellsImputed, d.Rounds, outliers, violations, fingerprint)
	}
	tw.Flush()

	for _, d := range run.Datasets {
		for _, warning := range d.Warnings {
			fmt.Fprintf(w, "warning [%s]: %s\n", d.Dataset, warning)
		}
		if d.Error != "" {
			fmt.Fprintf(w, "error [%s]: %s\n", d.Dataset, d.Error)
		}
	}
	if run.Workbook != "" {
		fmt.Fprintf(w, "\nworkbook: %s\n", run.Workbook)
	}
}
