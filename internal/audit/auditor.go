package audit

import (
	"context"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/stat"

	"clinicalqc/pkg/contracts/domain"
)

// TukeyK is the IQR multiplier of the outlier fences
const TukeyK = 1.5

// Auditor compares canonical and ml-ready tables of one dataset. It only
// computes records; formatting and persistence belong to the exporter.
type Auditor struct {
	spec   domain.DatasetSpec
	logger *slog.Logger
	now    func() time.Time
}

// New creates an auditor for a dataset
func New(spec domain.DatasetSpec) *Auditor {
	return &Auditor{
		spec:   spec,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// WithLogger sets the logger used for the run summary
func (a *Auditor) WithLogger(logger *slog.Logger) *Auditor {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// DistributionShift reports, for every non-target column present in both
// tables, the mean over canonical observed values, the ml-ready mean and the
// signed difference ml minus canonical. Columns without observed canonical
// values are skipped.
func (a *Auditor) DistributionShift(canonical, ml *domain.Table) []domain.ShiftRecord {
	var out []domain.ShiftRecord
	for _, col := range canonical.Columns {
		if a.spec.IsTarget(col.Name) {
			continue
		}
		mlCol, ok := ml.Column(col.Name)
		if !ok {
			continue
		}
		observed := col.Observed()
		if len(observed) == 0 {
			continue
		}
		canMean := stat.Mean(observed, nil)
		mlMean := stat.Mean(mlCol.Observed(), nil)
		out = append(out, domain.ShiftRecord{
			Variable:      col.Name,
			CanonicalMean: canMean,
			MLMean:        mlMean,
			Delta:         mlMean - canMean,
		})
	}
	return out
}

// Outliers applies the Tukey rule to every non-target column of the ml-ready
// table. Values strictly outside [Q1-1.5·IQR, Q3+1.5·IQR] are counted.
func (a *Auditor) Outliers(ml *domain.Table) []domain.OutlierRecord {
	rows := ml.Rows()
	var out []domain.OutlierRecord
	for _, col := range ml.Columns {
		if a.spec.IsTarget(col.Name) || rows == 0 {
			continue
		}
		q1, q3 := quartiles(col.Values)
		iqr := q3 - q1
		lower, upper := q1-TukeyK*iqr, q3+TukeyK*iqr

		count := 0
		for _, v := range col.Values {
			if v < lower || v > upper {
				count++
			}
		}
		out = append(out, domain.OutlierRecord{
			Variable: col.Name,
			Q1:       q1,
			Q3:       q3,
			IQR:      iqr,
			Lower:    lower,
			Upper:    upper,
			Count:    count,
			Fraction: float64(count) / float64(rows),
		})
	}
	return out
}

// RangeViolations counts ml-ready values outside each configured clinical
// range. Ranges for columns absent from the table are skipped and only
// non-zero counts are reported.
func (a *Auditor) RangeViolations(ml *domain.Table) []domain.RangeViolationRecord {
	var out []domain.RangeViolationRecord
	for _, rng := range a.spec.ClinicalRanges {
		col, ok := ml.Column(rng.Column)
		if !ok {
			continue
		}
		count := 0
		for _, v := range col.Values {
			if !domain.IsMissing(v) && !rng.Contains(v) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		out = append(out, domain.RangeViolationRecord{
			Variable: rng.Column,
			Low:      rng.Low,
			High:     rng.High,
			Count:    count,
		})
	}
	return out
}

// Run performs all three analyses
func (a *Auditor) Run(ctx context.Context, canonical, ml *domain.Table) domain.AuditReport {
	report := domain.AuditReport{
		Dataset:         a.spec.Type,
		DisplayName:     a.spec.DisplayName,
		Rows:            ml.Rows(),
		GeneratedAt:     a.now().UTC(),
		Shifts:          a.DistributionShift(canonical, ml),
		Outliers:        a.Outliers(ml),
		RangeViolations: a.RangeViolations(ml),
	}

	a.logger.InfoContext(ctx, "audit complete",
		slog.String("dataset", string(a.spec.Type)),
		slog.Int("rows", report.Rows),
		slog.Int("outliers", report.TotalOutliers()),
		slog.Int("range_violations", report.TotalViolations()))

	return report
}
