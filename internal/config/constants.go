package config

import "time"

// Application constants
const (
	AppName = "Clinical QC"

	// Environment prefix for envconfig, e.g. CLINQC_IMPUTATION_SEED
	EnvPrefix = "CLINQC"

	// Environment variable naming an explicit config file
	ConfigFileEnv = "CLINQC_CONFIG_FILE"

	// Imputation defaults
	DefaultMaxRounds = 10
	DefaultSeed      = 42

	// Constraint warning threshold as a fraction of rows
	DefaultWarnFraction = 0.2

	// Rate Limiting
	DefaultRateLimit = 10 // requests per second
	DefaultBurstSize = 20

	// Network Timeouts
	DefaultHTTPTimeout = 60 * time.Second

	// File Paths (relative to the working directory unless absolute)
	DefaultDataDir = "data"
	DefaultLogsDir = "logs"

	// Data subdirectories
	RawSubdir       = "raw"
	CanonicalSubdir = "canonical"
	ProcessedSubdir = "processed"
	ReportsSubdir   = "reports"

	// Output file suffixes
	CanonicalSuffix = "_canonical.csv"
	ProcessedSuffix = "_clean.csv"

	// Operation Timeouts
	DefaultOperationTimeout = 10 * time.Minute
)
