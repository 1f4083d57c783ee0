package imputation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "clinicalqc/internal/errors"
	"clinicalqc/pkg/contracts/domain"
)

// Order selects the sequence in which columns are imputed within a round
type Order string

const (
	// OrderAscending visits columns by increasing missing fraction, ties in schema order
	OrderAscending Order = "ascending"
	// OrderColumn visits columns in schema order
	OrderColumn Order = "column"
)

// Options configures the imputer
type Options struct {
	MaxRounds       int
	Seed            uint64
	Order           Order
	SamplePosterior bool
	// Tolerance stops early once the largest change of a round falls below
	// Tolerance times the largest absolute observed value. Zero runs every round.
	Tolerance float64
	// MinValues and MaxValues truncate draws per column; absent columns are unbounded
	MinValues map[string]float64
	MaxValues map[string]float64
	Logger    *slog.Logger
}

// DefaultOptions returns ten posterior-sampling rounds in ascending order with seed 42
func DefaultOptions() Options {
	return Options{
		MaxRounds:       10,
		Seed:            42,
		Order:           OrderAscending,
		SamplePosterior: true,
	}
}

// Result describes an imputation run
type Result struct {
	Rounds       int            `json:"rounds"`
	Converged    bool           `json:"converged"`
	CellsImputed int            `json:"cells_imputed"`
	Order        []string       `json:"order"`
	Fits         map[string]int `json:"fits"`
	// LastChange is the largest absolute change of an imputed cell in the final round
	LastChange float64 `json:"last_change"`
}

// Imputer fills missing cells by round-robin Bayesian ridge regression of each
// incomplete column on all other columns.
type Imputer struct {
	opts   Options
	logger *slog.Logger
}

// New creates an imputer. Zero MaxRounds and empty Order take their defaults.
func New(opts Options) *Imputer {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 10
	}
	if opts.Order == "" {
		opts.Order = OrderAscending
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Imputer{
		opts:   opts,
		logger: logger.With(slog.String("component", "imputer")),
	}
}

// Impute returns a new table in which every cell flagged by mask holds an imputed
// value. Cells not flagged are copied unchanged, and columns with nothing missing
// are never fit. The same input and options always produce the same output.
func (im *Imputer) Impute(ctx context.Context, t *domain.Table, mask domain.MissingMask) (*domain.Table, *Result, error) {
	if err := validateInput(t, mask); err != nil {
		return nil, nil, err
	}

	rows, width := t.Rows(), t.Width()
	result := &Result{Fits: make(map[string]int), CellsImputed: mask.Total()}

	// Column-major working copy, missing cells seeded with the observed mean
	data := make([][]float64, width)
	for c, col := range t.Columns {
		data[c] = append([]float64(nil), col.Values...)
	}

	order, err := im.visitOrder(t, mask)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range order {
		result.Order = append(result.Order, t.Columns[c].Name)
		mean := stat.Mean(t.Columns[c].Observed(), nil)
		for r := 0; r < rows; r++ {
			if mask[c][r] {
				data[c][r] = mean
			}
		}
	}

	if len(order) == 0 {
		im.logger.DebugContext(ctx, "no missing cells, nothing to impute")
		return buildTable(t, data), result, nil
	}

	threshold := 0.0
	if im.opts.Tolerance > 0 {
		threshold = im.opts.Tolerance * maxAbsObserved(data, mask)
	}

	rng := rand.New(rand.NewPCG(im.opts.Seed, im.opts.Seed))

	for round := 1; round <= im.opts.MaxRounds; round++ {
		roundChange := 0.0
		for _, target := range order {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}

			change, err := im.imputeColumn(data, mask, target, t.Columns[target].Name, rng)
			if err != nil {
				return nil, nil, err
			}
			result.Fits[t.Columns[target].Name]++
			roundChange = math.Max(roundChange, change)
		}

		result.Rounds = round
		result.LastChange = roundChange

		im.logger.DebugContext(ctx, "imputation round complete",
			slog.Int("round", round),
			slog.Float64("max_change", roundChange))

		if threshold > 0 && roundChange < threshold {
			result.Converged = true
			break
		}
	}

	im.logger.InfoContext(ctx, "imputation complete",
		slog.Int("rounds", result.Rounds),
		slog.Int("columns", len(order)),
		slog.Int("cells", result.CellsImputed),
		slog.Bool("converged", result.Converged))

	return buildTable(t, data), result, nil
}

// imputeColumn fits target on every other column using originally observed rows
// and overwrites the originally missing rows. It returns the largest change.
func (im *Imputer) imputeColumn(data [][]float64, mask domain.MissingMask, target int, name string, rng *rand.Rand) (float64, error) {
	rows, width := len(data[target]), len(data)
	p := width - 1

	observed := rows - mask.Count(target)
	// A single-column table has no regressors; the fit is intercept-only
	var x *mat.Dense
	if p > 0 {
		x = mat.NewDense(observed, p, nil)
	}
	y := make([]float64, 0, observed)
	i := 0
	for r := 0; r < rows; r++ {
		if mask[target][r] {
			continue
		}
		j := 0
		for c := 0; c < width; c++ {
			if c == target {
				continue
			}
			x.Set(i, j, data[c][r])
			j++
		}
		y = append(y, data[target][r])
		i++
	}

	model, err := fitRegression(x, y)
	if err != nil {
		return 0, apperrors.NewImputationError(name, "regression fit failed", err)
	}

	lo, hasLo := im.opts.MinValues[name]
	hi, hasHi := im.opts.MaxValues[name]
	if !hasLo {
		lo = math.Inf(-1)
	}
	if !hasHi {
		hi = math.Inf(1)
	}

	maxChange := 0.0
	row := make([]float64, p)
	for r := 0; r < rows; r++ {
		if !mask[target][r] {
			continue
		}
		j := 0
		for c := 0; c < width; c++ {
			if c == target {
				continue
			}
			row[j] = data[c][r]
			j++
		}

		mean, std := model.predict(row)
		var v float64
		if im.opts.SamplePosterior {
			v = draw(rng, mean, std, lo, hi)
		} else {
			v = clamp(mean, lo, hi)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, apperrors.NewImputationError(name, fmt.Sprintf("non-finite prediction at row %d", r+1), nil)
		}

		maxChange = math.Max(maxChange, math.Abs(v-data[target][r]))
		data[target][r] = v
	}
	return maxChange, nil
}

// draw samples from N(mean, std²) truncated to [lo, hi]. A non-positive std
// yields the clamped mean without consuming randomness.
func draw(rng *rand.Rand, mean, std, lo, hi float64) float64 {
	mean = clamp(mean, lo, hi)
	if std <= 0 {
		return mean
	}
	if math.IsInf(lo, -1) && math.IsInf(hi, 1) {
		return mean + std*rng.NormFloat64()
	}

	// Inverse-CDF sampling between the standardized bounds
	a := distuv.UnitNormal.CDF((lo - mean) / std)
	b := distuv.UnitNormal.CDF((hi - mean) / std)
	u := a + rng.Float64()*(b-a)
	if u <= 0 || u >= 1 || b <= a {
		return mean
	}
	return clamp(mean+std*distuv.UnitNormal.Quantile(u), lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// visitOrder lists the columns to impute. Complete columns are skipped.
func (im *Imputer) visitOrder(t *domain.Table, mask domain.MissingMask) ([]int, error) {
	rows, width := t.Rows(), t.Width()

	var order []int
	for c := 0; c < width; c++ {
		missing := mask.Count(c)
		if missing == 0 {
			continue
		}
		name := t.Columns[c].Name
		if missing == rows {
			return nil, apperrors.NewImputationError(name, "column has no observed values", nil)
		}
		// The fit needs at least one row per regressor plus the intercept
		if rows-missing < width {
			return nil, apperrors.NewImputationError(name,
				fmt.Sprintf("%d observed rows for %d regressors", rows-missing, width-1), nil)
		}
		order = append(order, c)
	}

	if im.opts.Order == OrderAscending {
		sort.SliceStable(order, func(i, j int) bool {
			return mask.Count(order[i]) < mask.Count(order[j])
		})
	}
	return order, nil
}

func validateInput(t *domain.Table, mask domain.MissingMask) error {
	if t == nil {
		return apperrors.NewAppValidationError("table is nil")
	}
	if err := t.Validate(); err != nil {
		return apperrors.NewAppValidationError(err.Error())
	}
	if len(mask) != t.Width() {
		return apperrors.NewAppValidationError(
			fmt.Sprintf("mask has %d columns, table has %d", len(mask), t.Width()))
	}
	for c, col := range t.Columns {
		if len(mask[c]) != len(col.Values) {
			return apperrors.NewAppValidationError(fmt.Sprintf("mask column %s has wrong length", col.Name))
		}
		for r, v := range col.Values {
			if domain.IsMissing(v) != mask[c][r] {
				return apperrors.NewAppValidationError(
					fmt.Sprintf("mask disagrees with table at row %d column %s", r+1, col.Name))
			}
		}
	}
	return nil
}

func maxAbsObserved(data [][]float64, mask domain.MissingMask) float64 {
	m := 0.0
	for c := range data {
		for r, v := range data[c] {
			if !mask[c][r] {
				m = math.Max(m, math.Abs(v))
			}
		}
	}
	return m
}

func buildTable(src *domain.Table, data [][]float64) *domain.Table {
	out := &domain.Table{Columns: make([]domain.Column, len(data))}
	for c := range data {
		out.Columns[c] = domain.Column{Name: src.Columns[c].Name, Values: data[c]}
	}
	return out
}
