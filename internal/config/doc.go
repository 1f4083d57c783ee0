// Package config provides centralized configuration for the clinical QC pipeline.
// It loads settings from defaults, an optional YAML file and environment
// variables, validates them, and owns the dataset registry and data layout.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML, CLINQC_CONFIG_FILE or ./config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CLINQC_<SECTION>_<FIELD>:
//
//	CLINQC_IMPUTATION_SEED=42
//	CLINQC_IMPUTATION_ORDER=ascending
//	CLINQC_IMPUTATION_MAX_VALUES=Glucose:250,Insulin:846
//	CLINQC_CONSTRAINTS_WARN_FRACTION=0.2
//	CLINQC_PIPELINE_CONCURRENCY=2
//	CLINQC_PATHS_DATA_DIR=/var/lib/clinqc
//
// # Dataset Registry
//
// Dataset layouts (column names, roles, missing tokens and clinical ranges)
// are declared in YAML. The built-in registry is embedded from datasets.yaml
// and can be replaced with CLINQC_PATHS_DATASETS_FILE:
//
//	reg := config.DefaultRegistry()
//	spec, ok := reg.Get(domain.DatasetDiabetes)
//
// # Path Management
//
// Paths lays out the data tree used by every stage:
//
//	paths := cfg.GetPaths()
//	paths.CanonicalFile(domain.DatasetDiabetes) // data/canonical/diabetes_canonical.csv
package config
