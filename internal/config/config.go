package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
	Imputation  ImputationConfig  `yaml:"imputation" envconfig:"IMPUTATION"`
	Constraints ConstraintsConfig `yaml:"constraints" envconfig:"CONSTRAINTS"`
	Pipeline    PipelineConfig    `yaml:"pipeline" envconfig:"PIPELINE"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	DatasetsFile string `yaml:"datasets_file" envconfig:"DATASETS_FILE"`
}

// ImputationConfig configures the iterative imputer
type ImputationConfig struct {
	MaxRounds       int     `yaml:"max_rounds" envconfig:"MAX_ROUNDS" validate:"min=1"`
	Seed            uint64  `yaml:"seed" envconfig:"SEED"`
	Order           string  `yaml:"order" envconfig:"ORDER" validate:"oneof=ascending column"`
	SamplePosterior bool    `yaml:"sample_posterior" envconfig:"SAMPLE_POSTERIOR"`
	Tolerance       float64 `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gte=0"`

	// Per-column bounds for imputed values, keyed by column name in any dataset
	MinValues map[string]float64 `yaml:"min_values" envconfig:"MIN_VALUES"`
	MaxValues map[string]float64 `yaml:"max_values" envconfig:"MAX_VALUES"`
}

// ConstraintsConfig configures the constraint enforcer
type ConstraintsConfig struct {
	WarnFraction float64 `yaml:"warn_fraction" envconfig:"WARN_FRACTION" validate:"gt=0,lte=1"`
}

// PipelineConfig configures dataset selection and fan-out
type PipelineConfig struct {
	Datasets    []string      `yaml:"datasets" envconfig:"DATASETS"`
	Concurrency int           `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"min=1"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	Fetch       bool          `yaml:"fetch" envconfig:"FETCH"`
	Workbook    bool          `yaml:"workbook" envconfig:"WORKBOOK"`
}

// TelemetryConfig configures OpenTelemetry
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	Metrics       bool   `yaml:"metrics" envconfig:"METRICS"`
}

// Load builds the configuration from defaults, an optional YAML file and
// CLINQC_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file path. An empty path skips the file.
func LoadFile(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Env vars without a value leave the field untouched, so they only override what is set
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	for name, lo := range c.Imputation.MinValues {
		if hi, ok := c.Imputation.MaxValues[name]; ok && lo > hi {
			return fmt.Errorf("imputation bounds for %s: min %g exceeds max %g", name, lo, hi)
		}
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/pipeline.log"
	}

	return nil
}

// GetPaths returns the resolved data layout
func (c *Config) GetPaths() *Paths {
	return NewPaths(c.Paths.DataDir, c.Paths.LogsDir)
}

// Registry loads the dataset registry named by the config, or the built-in one
func (c *Config) Registry() (*Registry, error) {
	return LoadRegistry(c.Paths.DatasetsFile)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    DefaultHTTPTimeout,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			LogsDir: DefaultLogsDir,
		},
		Imputation: ImputationConfig{
			MaxRounds:       DefaultMaxRounds,
			Seed:            DefaultSeed,
			Order:           "ascending",
			SamplePosterior: true,
		},
		Constraints: ConstraintsConfig{
			WarnFraction: DefaultWarnFraction,
		},
		Pipeline: PipelineConfig{
			Concurrency: 1,
			Timeout:     DefaultOperationTimeout,
			Workbook:    true,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "clinicalqc",
			TraceExporter: "none",
			Metrics:       true,
		},
	}
}
