package domain

import (
	"fmt"
	"strings"
)

// DatasetType identifies a supported clinical dataset layout
type DatasetType string

const (
	DatasetDiabetes     DatasetType = "diabetes"
	DatasetHeartDisease DatasetType = "heart_disease"
)

// ParseDatasetType normalizes user input ("Heart Disease", "heart-disease") into a DatasetType
func ParseDatasetType(s string) (DatasetType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	if norm == "" {
		return "", fmt.Errorf("empty dataset type")
	}
	return DatasetType(norm), nil
}

// String returns the string representation of the dataset type
func (d DatasetType) String() string {
	return string(d)
}

// ColumnRole tags how a column participates in cleaning and auditing
type ColumnRole string

const (
	// RoleTarget marks identifier and outcome columns. They are imputed like any
	// other column but excluded from shift and outlier analysis.
	RoleTarget ColumnRole = "identifier_target"
	// RoleBiological marks physiological measurements where zero is not a valid reading.
	RoleBiological ColumnRole = "continuous_biological"
	// RoleGeneric marks ordinary continuous columns.
	RoleGeneric ColumnRole = "continuous_generic"
	// RoleInteger marks count or categorical columns that must be integers after cleaning.
	RoleInteger ColumnRole = "integer_valued"
)

// IsValid reports whether the role is one of the known roles
func (r ColumnRole) IsValid() bool {
	switch r {
	case RoleTarget, RoleBiological, RoleGeneric, RoleInteger:
		return true
	}
	return false
}

// ColumnSpec describes one column of a dataset
type ColumnSpec struct {
	Name    string     `json:"name" yaml:"name" validate:"required"`
	Role    ColumnRole `json:"role" yaml:"role" validate:"required"`
	Integer bool       `json:"integer,omitempty" yaml:"integer"`
	// Structural marks columns whose gaps come from the collection protocol
	// rather than a failed measurement.
	Structural bool `json:"structural,omitempty" yaml:"structural"`
}

// MissingKind classifies gaps in this column for the missingness table
func (c ColumnSpec) MissingKind() MissingKind {
	switch {
	case c.Role == RoleBiological:
		return MissingKindBiological
	case c.Structural:
		return MissingKindStructural
	default:
		return MissingKindNone
	}
}

// IsInteger reports whether the column must hold integers after constraint enforcement.
// Integer-valued columns are always integers; other roles opt in with the Integer flag.
func (c ColumnSpec) IsInteger() bool {
	return c.Role == RoleInteger || c.Integer
}

// ClinicalRange is a physiologically plausible [Low, High] bound for a column
type ClinicalRange struct {
	Column string  `json:"column" yaml:"column" validate:"required"`
	Low    float64 `json:"low" yaml:"low"`
	High   float64 `json:"high" yaml:"high" validate:"gtefield=Low"`
}

// Contains reports whether v lies inside the closed range
func (r ClinicalRange) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

// String formats the range as "[low, high]"
func (r ClinicalRange) String() string {
	return fmt.Sprintf("[%g, %g]", r.Low, r.High)
}

// DatasetSpec is the immutable per-dataset configuration consumed by every stage
type DatasetSpec struct {
	Type           DatasetType     `json:"type" yaml:"type" validate:"required"`
	DisplayName    string          `json:"display_name" yaml:"display_name" validate:"required"`
	Columns        []ColumnSpec    `json:"columns" yaml:"columns" validate:"required,min=1,dive"`
	MissingTokens  []string        `json:"missing_tokens" yaml:"missing_tokens"`
	ClinicalRanges []ClinicalRange `json:"clinical_ranges,omitempty" yaml:"clinical_ranges" validate:"dive"`
	SourceURL      string          `json:"source_url,omitempty" yaml:"source_url" validate:"omitempty,url"`
	RawFile        string          `json:"raw_file" yaml:"raw_file" validate:"required"`
}

// Names returns the ordered column names
func (s DatasetSpec) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column spec by name
func (s DatasetSpec) Column(name string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// IsTarget reports whether the named column is an identifier/target column
func (s DatasetSpec) IsTarget(name string) bool {
	c, ok := s.Column(name)
	return ok && c.Role == RoleTarget
}

// BiologicalColumns returns the names of continuous-biological columns in schema order
func (s DatasetSpec) BiologicalColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Role == RoleBiological {
			out = append(out, c.Name)
		}
	}
	return out
}

// IntegerColumns returns the names of columns that must be integers after cleaning
func (s DatasetSpec) IntegerColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.IsInteger() {
			out = append(out, c.Name)
		}
	}
	return out
}

// ClinicalRange returns the configured bound for a column, if any
func (s DatasetSpec) ClinicalRange(column string) (ClinicalRange, bool) {
	for _, r := range s.ClinicalRanges {
		if r.Column == column {
			return r, true
		}
	}
	return ClinicalRange{}, false
}

// MissingKind classifies why a column has missing values
type MissingKind string

const (
	MissingKindBiological MissingKind = "Biological"
	MissingKindStructural MissingKind = "Structural"
	MissingKindNone       MissingKind = "None"
)

// MissingnessStat summarizes missing values of a single canonical column
type MissingnessStat struct {
	Variable string      `json:"variable"`
	Missing  int         `json:"missing"`
	Fraction float64     `json:"fraction"`
	Kind     MissingKind `json:"kind"`
}
