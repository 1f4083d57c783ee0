package exporter

import (
	"strconv"

	"clinicalqc/pkg/contracts/domain"
)

// formatFloat formats a float64 with the shortest representation that round-trips.
// Missing values are written as empty cells.
func formatFloat(f float64) string {
	if domain.IsMissing(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatFixed formats audit statistics with a fixed precision
func formatFixed(f float64, prec int) string {
	if domain.IsMissing(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// formatCell renders one table cell. Integer columns never carry decimals.
func formatCell(c domain.Column, row int) string {
	if c.IsInteger() {
		return formatInt(c.Ints[row])
	}
	return formatFloat(c.Values[row])
}
