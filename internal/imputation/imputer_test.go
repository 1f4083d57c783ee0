package imputation

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicalqc/internal/dataprocessing"
	apperrors "clinicalqc/internal/errors"
	"clinicalqc/internal/shared/testutil"
	"clinicalqc/pkg/contracts/domain"
)

func canonicalDiabetes(t *testing.T, rows int, zeroFraction float64) *dataprocessing.CanonicalResult {
	t.Helper()
	raw := testutil.SyntheticDiabetesRaw(rows, zeroFraction, 7)
	res, err := dataprocessing.Canonicalize(raw, testutil.DiabetesSpec())
	require.NoError(t, err)
	return res
}

func TestImpute_FillsEveryMissingCell(t *testing.T) {
	can := canonicalDiabetes(t, 200, 0.1)
	require.Greater(t, can.Mask.Total(), 0)

	out, res, err := New(DefaultOptions()).Impute(context.Background(), can.Table, can.Mask)
	require.NoError(t, err)

	assert.Equal(t, 0, out.MissingCount())
	assert.Equal(t, can.Table.Rows(), out.Rows())
	assert.Equal(t, can.Table.Names(), out.Names())
	assert.Equal(t, 10, res.Rounds)
	assert.Equal(t, can.Mask.Total(), res.CellsImputed)
	assert.False(t, res.Converged)

	// observed cells are never touched
	for c, col := range can.Table.Columns {
		for r, v := range col.Values {
			if !can.Mask[c][r] {
				assert.Equal(t, v, out.Columns[c].Values[r])
			}
		}
	}

	// the input table is not modified
	assert.Equal(t, can.Mask.Total(), can.Table.MissingCount())
}

func TestImpute_CompleteColumnsAreNeverFit(t *testing.T) {
	can := canonicalDiabetes(t, 150, 0.1)

	out, res, err := New(DefaultOptions()).Impute(context.Background(), can.Table, can.Mask)
	require.NoError(t, err)

	for c, col := range can.Table.Columns {
		if can.Mask.Count(c) > 0 {
			assert.Equal(t, 10, res.Fits[col.Name], col.Name)
			continue
		}
		assert.NotContains(t, res.Fits, col.Name)
		assert.Equal(t, col.Values, out.Columns[c].Values)
	}
	assert.NotContains(t, res.Order, "Age")
	assert.NotContains(t, res.Order, "Outcome")
}

func TestImpute_Reproducible(t *testing.T) {
	can := canonicalDiabetes(t, 120, 0.15)

	a, _, err := New(DefaultOptions()).Impute(context.Background(), can.Table, can.Mask)
	require.NoError(t, err)
	b, _, err := New(DefaultOptions()).Impute(context.Background(), can.Table, can.Mask)
	require.NoError(t, err)
	assert.True(t, a.Equal(b), "same seed gives identical output")

	opts := DefaultOptions()
	opts.Seed = 7
	c, _, err := New(opts).Impute(context.Background(), can.Table, can.Mask)
	require.NoError(t, err)
	assert.False(t, a.Equal(c), "different seed gives different draws")
}

func TestImpute_PointPredictionIgnoresSeed(t *testing.T) {
	can := canonicalDiabetes(t, 120, 0.15)

	opts := DefaultOptions()
	opts.SamplePosterior = false
	a, _, err := New(opts).Impute(context.Background(), can.Table, can.Mask)
	require.NoError(t, err)

	opts.Seed = 99
	b, _, err := New(opts).Impute(context.Background(), can.Table, can.Mask)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestImpute_NoMissing(t *testing.T) {
	table := &domain.Table{Columns: []domain.Column{
		testutil.Column("a", 1, 2, 3),
		testutil.Column("b", 4, 5, 6),
	}}

	out, res, err := New(DefaultOptions()).Impute(context.Background(), table, domain.NewMissingMask(table))
	require.NoError(t, err)
	assert.True(t, table.Equal(out))
	assert.Equal(t, 0, res.Rounds)
	assert.Empty(t, res.Fits)
}

func TestImpute_SingleColumn(t *testing.T) {
	nan := domain.Missing()
	table := &domain.Table{Columns: []domain.Column{testutil.Column("Glucose", nan, 85, 130, nan, 95)}}
	mask := domain.NewMissingMask(table)

	out, res, err := New(DefaultOptions()).Impute(context.Background(), table, mask)
	require.NoError(t, err)
	require.Equal(t, 0, out.MissingCount())
	assert.Equal(t, 2, res.CellsImputed)
	assert.Equal(t, []string{"Glucose"}, res.Order)

	got := out.Columns[0].Values
	assert.Equal(t, 85.0, got[1])
	assert.Equal(t, 130.0, got[2])
	assert.Equal(t, 95.0, got[4])
	for _, v := range got {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}

	again, _, err := New(DefaultOptions()).Impute(context.Background(), table, mask)
	require.NoError(t, err)
	assert.True(t, out.Equal(again), "same seed gives identical output")

	opts := DefaultOptions()
	opts.SamplePosterior = false
	point, _, err := New(opts).Impute(context.Background(), table, mask)
	require.NoError(t, err)
	assert.InDelta(t, 310.0/3, point.Columns[0].Values[0], 1e-9)
	assert.InDelta(t, 310.0/3, point.Columns[0].Values[3], 1e-9)
}

func TestImpute_ConstantColumn(t *testing.T) {
	n := 12
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = float64(i)
		b[i] = 5
	}
	b[3], b[8] = domain.Missing(), domain.Missing()
	table := &domain.Table{Columns: []domain.Column{testutil.Column("a", a...), testutil.Column("b", b...)}}

	out, _, err := New(DefaultOptions()).Impute(context.Background(), table, domain.NewMissingMask(table))
	require.NoError(t, err)

	assert.InDelta(t, 5.0, out.Columns[1].Values[3], 0.05)
	assert.InDelta(t, 5.0, out.Columns[1].Values[8], 0.05)
}

func TestImpute_AscendingOrder(t *testing.T) {
	n := 20
	cols := make([][]float64, 3)
	for c := range cols {
		cols[c] = make([]float64, n)
		for r := range cols[c] {
			cols[c][r] = float64(r*(c+1)) + float64(c)
		}
	}
	// a: 3 missing, b: 1 missing, c: 3 missing
	cols[0][1], cols[0][5], cols[0][9] = domain.Missing(), domain.Missing(), domain.Missing()
	cols[1][2] = domain.Missing()
	cols[2][0], cols[2][4], cols[2][7] = domain.Missing(), domain.Missing(), domain.Missing()
	table := &domain.Table{Columns: []domain.Column{
		testutil.Column("a", cols[0]...),
		testutil.Column("b", cols[1]...),
		testutil.Column("c", cols[2]...),
	}}
	mask := domain.NewMissingMask(table)

	_, res, err := New(DefaultOptions()).Impute(context.Background(), table, mask)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, res.Order)

	opts := DefaultOptions()
	opts.Order = OrderColumn
	_, res, err = New(opts).Impute(context.Background(), table, mask)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, res.Order)
}

func TestImpute_Bounds(t *testing.T) {
	can := canonicalDiabetes(t, 150, 0.2)

	opts := DefaultOptions()
	opts.MinValues = map[string]float64{"Insulin": 100}
	opts.MaxValues = map[string]float64{"Insulin": 120}
	out, _, err := New(opts).Impute(context.Background(), can.Table, can.Mask)
	require.NoError(t, err)

	c := can.Table.Index("Insulin")
	for r, missing := range can.Mask[c] {
		if missing {
			v := out.Columns[c].Values[r]
			assert.GreaterOrEqual(t, v, 100.0)
			assert.LessOrEqual(t, v, 120.0)
		}
	}
}

func TestImpute_Tolerance(t *testing.T) {
	can := canonicalDiabetes(t, 100, 0.1)

	opts := DefaultOptions()
	opts.Tolerance = 1e6
	_, res, err := New(opts).Impute(context.Background(), can.Table, can.Mask)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	assert.True(t, res.Converged)
}

func TestImpute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		table *domain.Table
	}{
		{"entirely missing column", &domain.Table{Columns: []domain.Column{
			testutil.Column("a", 1, 2, 3, 4),
			testutil.Column("b", domain.Missing(), domain.Missing(), domain.Missing(), domain.Missing()),
		}}},
		{"too few observed rows", &domain.Table{Columns: []domain.Column{
			testutil.Column("a", 1, 2, 3, 4),
			testutil.Column("b", 1, 2, 3, 4),
			testutil.Column("c", 1, domain.Missing(), domain.Missing(), 4),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, res, err := New(DefaultOptions()).Impute(context.Background(), tt.table, domain.NewMissingMask(tt.table))
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeImputation))
			assert.Nil(t, out, "no partial table")
			assert.Nil(t, res)
		})
	}
}

func TestImpute_MaskMismatch(t *testing.T) {
	table := &domain.Table{Columns: []domain.Column{testutil.Column("a", 1, domain.Missing())}}
	mask := domain.MissingMask{{false, false}}

	_, _, err := New(DefaultOptions()).Impute(context.Background(), table, mask)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestImpute_Cancelled(t *testing.T) {
	can := canonicalDiabetes(t, 60, 0.1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New(DefaultOptions()).Impute(ctx, can.Table, can.Mask)
	assert.ErrorIs(t, err, context.Canceled)
}
