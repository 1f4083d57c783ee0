package dataprocessing

import (
	"fmt"

	apperrors "clinicalqc/internal/errors"
	"clinicalqc/pkg/contracts/domain"
)

// CanonicalResult is the output of Canonicalize
type CanonicalResult struct {
	Table       *domain.Table
	Mask        domain.MissingMask
	Missingness []domain.MissingnessStat
}

// Canonicalize resolves every missing sentinel of a raw table to the explicit
// missing marker. Biological columns additionally treat a literal zero as
// missing. No value is imputed, clipped or inferred, and the raw table is
// left untouched. Applying Canonicalize to its own output is a no-op.
func Canonicalize(raw *domain.Table, spec domain.DatasetSpec) (*CanonicalResult, error) {
	if raw == nil {
		return nil, apperrors.NewAppValidationError("raw table is nil")
	}
	if err := raw.Validate(); err != nil {
		return nil, apperrors.NewAppValidationError(err.Error())
	}
	if raw.Width() != len(spec.Columns) {
		return nil, apperrors.NewSchemaMismatchError(string(spec.Type), len(spec.Columns), raw.Width())
	}

	for i, col := range raw.Columns {
		if col.Name != "" && col.Name != spec.Columns[i].Name {
			return nil, apperrors.NewAppError(apperrors.ErrTypeSchemaMismatch,
				fmt.Sprintf("%s: column %d is %q, expected %q", spec.Type, i+1, col.Name, spec.Columns[i].Name), nil).
				WithContext("dataset", string(spec.Type)).
				WithContext("column", col.Name)
		}
	}

	rows := raw.Rows()
	canonical := &domain.Table{Columns: make([]domain.Column, len(spec.Columns))}
	for i, cs := range spec.Columns {
		values := make([]float64, rows)
		copy(values, raw.Columns[i].Values)
		if cs.Role == domain.RoleBiological {
			for r, v := range values {
				if v == 0 {
					values[r] = domain.Missing()
				}
			}
		}
		canonical.Columns[i] = domain.Column{Name: cs.Name, Values: values}
	}

	mask := domain.NewMissingMask(canonical)

	return &CanonicalResult{
		Table:       canonical,
		Mask:        mask,
		Missingness: MissingnessStats(mask, spec),
	}, nil
}

// MissingnessStats summarizes the mask per column in schema order
func MissingnessStats(mask domain.MissingMask, spec domain.DatasetSpec) []domain.MissingnessStat {
	stats := make([]domain.MissingnessStat, len(spec.Columns))
	for i, cs := range spec.Columns {
		stats[i] = domain.MissingnessStat{
			Variable: cs.Name,
			Missing:  mask.Count(i),
			Fraction: mask.Fraction(i),
			Kind:     cs.MissingKind(),
		}
	}
	return stats
}
