package domain

import (
	"time"
)

// ShiftRecord reports how imputation moved a variable's mean
type ShiftRecord struct {
	Variable      string  `json:"variable"`
	CanonicalMean float64 `json:"canonical_mean"`
	MLMean        float64 `json:"ml_mean"`
	Delta         float64 `json:"delta"`
}

// OutlierRecord reports Tukey-rule outliers of a variable in the ml-ready table
type OutlierRecord struct {
	Variable string  `json:"variable"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	IQR      float64 `json:"iqr"`
	Lower    float64 `json:"lower_fence"`
	Upper    float64 `json:"upper_fence"`
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
}

// RangeViolationRecord reports ml-ready values outside a clinical range
type RangeViolationRecord struct {
	Variable string  `json:"variable"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Count    int     `json:"count"`
}

// AuditReport bundles the three analyses of one audit run
type AuditReport struct {
	Dataset         DatasetType            `json:"dataset"`
	DisplayName     string                 `json:"display_name"`
	Rows            int                    `json:"rows"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Shifts          []ShiftRecord          `json:"shifts"`
	Outliers        []OutlierRecord        `json:"outliers"`
	RangeViolations []RangeViolationRecord `json:"range_violations"`
}

// TotalViolations sums range violation counts
func (r AuditReport) TotalViolations() int {
	n := 0
	for _, v := range r.RangeViolations {
		n += v.Count
	}
	return n
}

// TotalOutliers sums outlier counts
func (r AuditReport) TotalOutliers() int {
	n := 0
	for _, o := range r.Outliers {
		n += o.Count
	}
	return n
}
