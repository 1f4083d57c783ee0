package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	apperrors "clinicalqc/internal/errors"
	"clinicalqc/pkg/contracts/domain"
)

// DefaultWarnFraction is the altered-value fraction above which a column is reported
const DefaultWarnFraction = 0.2

// ConstraintOptions configures EnforceConstraints
type ConstraintOptions struct {
	// WarnFraction is the fraction of altered values above which a warning is
	// raised. Zero or less selects DefaultWarnFraction.
	WarnFraction float64
	Logger       *slog.Logger
}

// ConstraintWarning reports a column where clipping or rounding changed many values.
// It is informational and never aborts a run.
type ConstraintWarning struct {
	Column   string  `json:"column"`
	Clipped  int     `json:"clipped"`
	Rounded  int     `json:"rounded"`
	Altered  int     `json:"altered"`
	Fraction float64 `json:"fraction"`
}

// Err returns the warning as a CONSTRAINT_VIOLATION error value
func (w ConstraintWarning) Err() error {
	return apperrors.NewConstraintViolation(w.Column, w.Altered, w.Fraction)
}

// String formats the warning for logs and reports
func (w ConstraintWarning) String() string {
	return fmt.Sprintf("%s: %d values altered (%.1f%%), clipped=%d rounded=%d",
		w.Column, w.Altered, w.Fraction*100, w.Clipped, w.Rounded)
}

// ConstraintStats counts what EnforceConstraints changed
type ConstraintStats struct {
	Clipped int
	Rounded int
}

// EnforceConstraints applies domain rules to an imputed table and returns a new table:
// biological columns are clipped below at their canonical observed minimum, then
// integer columns are rounded half to even and cast to int64.
func EnforceConstraints(imputed, canonical *domain.Table, spec domain.DatasetSpec, opts ConstraintOptions) (*domain.Table, []ConstraintWarning, error) {
	out, warnings, _, err := enforce(imputed, canonical, spec, opts)
	return out, warnings, err
}

// EnforceConstraintsWithStats is EnforceConstraints that also returns alteration totals
func EnforceConstraintsWithStats(imputed, canonical *domain.Table, spec domain.DatasetSpec, opts ConstraintOptions) (*domain.Table, []ConstraintWarning, ConstraintStats, error) {
	return enforce(imputed, canonical, spec, opts)
}

func enforce(imputed, canonical *domain.Table, spec domain.DatasetSpec, opts ConstraintOptions) (*domain.Table, []ConstraintWarning, ConstraintStats, error) {
	var stats ConstraintStats

	if err := checkShapes(imputed, canonical, spec); err != nil {
		return nil, nil, stats, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	warnAt := opts.WarnFraction
	if warnAt <= 0 {
		warnAt = DefaultWarnFraction
	}

	out := imputed.Clone()
	rows := out.Rows()
	var warnings []ConstraintWarning

	for i, cs := range spec.Columns {
		col := &out.Columns[i]
		altered := make([]bool, rows)
		clipped, rounded := 0, 0

		if cs.Role == domain.RoleBiological {
			if observed := canonical.Columns[i].Observed(); len(observed) > 0 {
				lower := floats.Min(observed)
				for r, v := range col.Values {
					if v < lower {
						col.Values[r] = lower
						altered[r] = true
						clipped++
					}
				}
			}
		}

		if cs.IsInteger() {
			col.Ints = make([]int64, rows)
			for r, v := range col.Values {
				rv := math.RoundToEven(v)
				if rv != v {
					altered[r] = true
					rounded++
				}
				col.Values[r] = rv
				col.Ints[r] = int64(rv)
			}
		}

		stats.Clipped += clipped
		stats.Rounded += rounded

		n := 0
		for _, a := range altered {
			if a {
				n++
			}
		}
		if rows == 0 {
			continue
		}
		fraction := float64(n) / float64(rows)
		if fraction > warnAt {
			w := ConstraintWarning{Column: cs.Name, Clipped: clipped, Rounded: rounded, Altered: n, Fraction: fraction}
			warnings = append(warnings, w)
			logger.WarnContext(context.Background(), "constraint enforcement altered many values",
				slog.String("dataset", string(spec.Type)),
				slog.String("column", cs.Name),
				slog.Int("altered", n),
				slog.Int("clipped", clipped),
				slog.Int("rounded", rounded),
				slog.Float64("fraction", fraction),
				slog.Float64("threshold", warnAt))
		}
	}

	return out, warnings, stats, nil
}

func checkShapes(imputed, canonical *domain.Table, spec domain.DatasetSpec) error {
	if imputed == nil || canonical == nil {
		return apperrors.NewAppValidationError("imputed and canonical tables are required")
	}
	if imputed.Width() != len(spec.Columns) || canonical.Width() != len(spec.Columns) {
		return apperrors.NewSchemaMismatchError(string(spec.Type), len(spec.Columns), imputed.Width())
	}
	if imputed.Rows() != canonical.Rows() {
		return apperrors.NewAppValidationError(
			fmt.Sprintf("row count changed: canonical %d, imputed %d", canonical.Rows(), imputed.Rows()))
	}
	if err := imputed.Validate(); err != nil {
		return apperrors.NewAppValidationError(err.Error())
	}
	if n := imputed.MissingCount(); n > 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("imputed table still has %d missing cells", n))
	}
	return nil
}
