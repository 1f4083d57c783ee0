package dataprocessing

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "clinicalqc/internal/errors"
	"clinicalqc/internal/shared/testutil"
	"clinicalqc/pkg/contracts/domain"
)

func TestEnforceConstraints_ClipsBiological(t *testing.T) {
	canonical := &domain.Table{Columns: []domain.Column{
		testutil.Column("Glucose", domain.Missing(), 85, 130, domain.Missing(), 95),
		testutil.Column("Age", 20, 30, 41, 52, 60),
	}}
	imputed := &domain.Table{Columns: []domain.Column{
		testutil.Column("Glucose", 61.2, 85, 130, 101.7, 95),
		testutil.Column("Age", 20, 30, 41, 52, 60),
	}}

	out, warnings, err := EnforceConstraints(imputed, canonical, glucoseSpec(), ConstraintOptions{WarnFraction: 0.5})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	g := out.Columns[0].Values
	assert.Equal(t, []float64{85, 85, 130, 101.7, 95}, g)
	for _, v := range g {
		assert.GreaterOrEqual(t, v, 85.0)
	}
	assert.Equal(t, 61.2, imputed.Columns[0].Values[0], "input is not modified")
}

func TestEnforceConstraints_RoundsIntegers(t *testing.T) {
	canonical := &domain.Table{Columns: []domain.Column{
		testutil.Column("Glucose", 100, 110),
		testutil.Column("Age", domain.Missing(), 30),
	}}
	imputed := &domain.Table{Columns: []domain.Column{
		testutil.Column("Glucose", 100, 110),
		testutil.Column("Age", 31.6, 30),
	}}

	out, _, err := EnforceConstraints(imputed, canonical, glucoseSpec(), ConstraintOptions{WarnFraction: 0.9})
	require.NoError(t, err)

	age := out.Columns[1]
	require.True(t, age.IsInteger())
	assert.Equal(t, []int64{32, 30}, age.Ints)
	assert.Equal(t, []float64{32, 30}, age.Values)
	assert.False(t, out.Columns[0].IsInteger())
}

func TestEnforceConstraints_HalfToEven(t *testing.T) {
	spec := domain.DatasetSpec{Columns: []domain.ColumnSpec{{Name: "n", Role: domain.RoleInteger}}}
	table := &domain.Table{Columns: []domain.Column{testutil.Column("n", 0.5, 1.5, 2.5, 3.5, -0.5, -1.5, 2.4, 2.6)}}

	out, _, stats, err := EnforceConstraintsWithStats(table, table, spec, ConstraintOptions{WarnFraction: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 2, 4, 0, -2, 2, 3}, out.Columns[0].Ints)
	assert.Equal(t, 8, stats.Rounded)
}

func TestEnforceConstraints_ZeroWarnFractionUsesDefault(t *testing.T) {
	spec := domain.DatasetSpec{Columns: []domain.ColumnSpec{{Name: "n", Role: domain.RoleInteger}}}
	table := &domain.Table{Columns: []domain.Column{testutil.Column("n", 1.4, 2, 3, 4)}}

	_, warnings, err := EnforceConstraints(table, table, spec, ConstraintOptions{})
	require.NoError(t, err)
	require.Len(t, warnings, 1, "a quarter altered exceeds %v", DefaultWarnFraction)
	assert.Equal(t, 1, warnings[0].Rounded)

	_, warnings, err = EnforceConstraints(table, table, spec, ConstraintOptions{WarnFraction: 0.3})
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestEnforceConstraints_ClipThenRound(t *testing.T) {
	spec := domain.DatasetSpec{Columns: []domain.ColumnSpec{{Name: "x", Role: domain.RoleBiological, Integer: true}}}
	canonical := &domain.Table{Columns: []domain.Column{testutil.Column("x", 10.4, domain.Missing())}}
	imputed := &domain.Table{Columns: []domain.Column{testutil.Column("x", 10.4, 3)}}

	out, _, err := EnforceConstraints(imputed, canonical, spec, ConstraintOptions{WarnFraction: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 10}, out.Columns[0].Ints)
}

func TestEnforceConstraints_Warning(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)

	canonical := &domain.Table{Columns: []domain.Column{
		testutil.Column("Glucose", 90, 95, 100, 105, 110),
		testutil.Column("Age", domain.Missing(), domain.Missing(), 41, 52, 60),
	}}
	imputed := &domain.Table{Columns: []domain.Column{
		testutil.Column("Glucose", 90, 95, 100, 105, 110),
		testutil.Column("Age", 33.3, 44.4, 41, 52, 60),
	}}

	_, warnings, stats, err := EnforceConstraintsWithStats(imputed, canonical, glucoseSpec(), ConstraintOptions{Logger: logger})
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	w := warnings[0]
	assert.Equal(t, "Age", w.Column)
	assert.Equal(t, 2, w.Altered)
	assert.InDelta(t, 0.4, w.Fraction, 1e-12)
	assert.True(t, apperrors.IsType(w.Err(), apperrors.ErrTypeConstraintViolation))
	assert.Equal(t, 2, stats.Rounded)
	assert.Equal(t, 0, stats.Clipped)

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "constraint enforcement")
	testutil.AssertLogAttr(t, handler, "column", "Age")
}

func TestEnforceConstraints_Deterministic(t *testing.T) {
	canonical := &domain.Table{Columns: []domain.Column{
		testutil.Column("Glucose", domain.Missing(), 85),
		testutil.Column("Age", 20, 30),
	}}
	imputed := &domain.Table{Columns: []domain.Column{
		testutil.Column("Glucose", 12, 85),
		testutil.Column("Age", 20.2, 30),
	}}

	a, _, err := EnforceConstraints(imputed, canonical, glucoseSpec(), ConstraintOptions{WarnFraction: 1})
	require.NoError(t, err)
	b, _, err := EnforceConstraints(imputed, canonical, glucoseSpec(), ConstraintOptions{WarnFraction: 1})
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestEnforceConstraints_Malformed(t *testing.T) {
	canonical := &domain.Table{Columns: []domain.Column{
		testutil.Column("Glucose", 1, 2),
		testutil.Column("Age", 1, 2),
	}}

	tests := []struct {
		name    string
		imputed *domain.Table
		errType apperrors.ErrorType
	}{
		{"residual missing", &domain.Table{Columns: []domain.Column{
			testutil.Column("Glucose", 1, domain.Missing()),
			testutil.Column("Age", 1, 2),
		}}, apperrors.ErrTypeValidation},
		{"row count", &domain.Table{Columns: []domain.Column{
			testutil.Column("Glucose", 1),
			testutil.Column("Age", 1),
		}}, apperrors.ErrTypeValidation},
		{"width", &domain.Table{Columns: []domain.Column{
			testutil.Column("Glucose", 1, 2),
		}}, apperrors.ErrTypeSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := EnforceConstraints(tt.imputed, canonical, glucoseSpec(), ConstraintOptions{})
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType))
		})
	}
}
