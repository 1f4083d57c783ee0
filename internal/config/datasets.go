package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"clinicalqc/pkg/contracts/domain"
)

//go:embed datasets.yaml
var builtinDatasets []byte

// Registry holds the dataset specifications known to the pipeline
type Registry struct {
	specs map[domain.DatasetType]domain.DatasetSpec
	order []domain.DatasetType
}

type registryFile struct {
	Datasets []domain.DatasetSpec `yaml:"datasets" validate:"required,min=1,dive"`
}

// DefaultRegistry returns the built-in registry (Diabetes and Heart Disease)
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(builtinDatasets)
	if err != nil {
		panic(fmt.Sprintf("built-in dataset registry is invalid: %v", err))
	}
	return r
}

// LoadRegistry reads a registry from a YAML file. An empty path yields the built-in registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset registry %s: %w", path, err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes and validates registry YAML
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse dataset registry: %w", err)
	}

	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("dataset registry validation failed: %w", err)
	}

	r := &Registry{specs: make(map[domain.DatasetType]domain.DatasetSpec, len(file.Datasets))}
	for _, spec := range file.Datasets {
		if err := checkSpec(spec); err != nil {
			return nil, err
		}
		if _, dup := r.specs[spec.Type]; dup {
			return nil, fmt.Errorf("dataset %s registered twice", spec.Type)
		}
		r.specs[spec.Type] = spec
		r.order = append(r.order, spec.Type)
	}
	return r, nil
}

// checkSpec enforces rules the struct tags cannot express
func checkSpec(spec domain.DatasetSpec) error {
	seen := make(map[string]bool, len(spec.Columns))
	for _, c := range spec.Columns {
		if !c.Role.IsValid() {
			return fmt.Errorf("dataset %s: column %s has unknown role %q", spec.Type, c.Name, c.Role)
		}
		if seen[c.Name] {
			return fmt.Errorf("dataset %s: duplicate column %s", spec.Type, c.Name)
		}
		seen[c.Name] = true
	}
	for _, rng := range spec.ClinicalRanges {
		if !seen[rng.Column] {
			return fmt.Errorf("dataset %s: clinical range for unknown column %s", spec.Type, rng.Column)
		}
	}
	return nil
}

// Get returns the spec for a dataset type
func (r *Registry) Get(t domain.DatasetType) (domain.DatasetSpec, bool) {
	spec, ok := r.specs[t]
	return spec, ok
}

// Types returns registered dataset types in registry order
func (r *Registry) Types() []domain.DatasetType {
	return append([]domain.DatasetType(nil), r.order...)
}

// Specs returns all registered specs in registry order
func (r *Registry) Specs() []domain.DatasetSpec {
	out := make([]domain.DatasetSpec, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.specs[t])
	}
	return out
}

// Select resolves dataset names into specs. An empty list selects every dataset.
func (r *Registry) Select(names []string) ([]domain.DatasetSpec, error) {
	if len(names) == 0 {
		return r.Specs(), nil
	}
	var out []domain.DatasetSpec
	var unknown []string
	for _, n := range names {
		t, err := domain.ParseDatasetType(n)
		if err != nil {
			return nil, err
		}
		spec, ok := r.specs[t]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, spec)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown datasets: %v", unknown)
	}
	return out, nil
}
