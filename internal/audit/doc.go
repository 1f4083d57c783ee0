// Package audit measures how cleaning changed a dataset: per-variable mean
// shift between the canonical and ml-ready tables, Tukey IQR outliers, and
// counts of values outside clinical reference ranges.
package audit
