package domain

import (
	"fmt"
	"math"
)

// Missing returns the explicit missing marker used in tables
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing marker
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Column holds the values of a single table column.
// Ints is non-nil once the column has been cast to integers; Values stays in sync.
type Column struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Ints   []int64   `json:"ints,omitempty"`
}

// IsInteger reports whether the column has been cast to integer type
func (c Column) IsInteger() bool {
	return c.Ints != nil
}

// MissingCount returns the number of missing cells in the column
func (c Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if IsMissing(v) {
			n++
		}
	}
	return n
}

// Observed returns the non-missing values in row order
func (c Column) Observed() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if !IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// Table is an in-memory, column-major dataset. Row order is significant.
type Table struct {
	Columns []Column `json:"columns"`
}

// NewTable allocates a table with the given column names and row count,
// every cell initialised to the missing marker.
func NewTable(names []string, rows int) *Table {
	t := &Table{Columns: make([]Column, len(names))}
	for i, name := range names {
		vals := make([]float64, rows)
		for r := range vals {
			vals[r] = Missing()
		}
		t.Columns[i] = Column{Name: name, Values: vals}
	}
	return t
}

// Rows returns the number of rows
func (t *Table) Rows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Width returns the number of columns
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Names returns the ordered column names
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column or -1
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column
func (t *Table) Column(name string) (*Column, bool) {
	i := t.Index(name)
	if i < 0 {
		return nil, false
	}
	return &t.Columns[i], true
}

// Value returns the cell at (row, col)
func (t *Table) Value(row, col int) float64 {
	return t.Columns[col].Values[row]
}

// MissingCount returns the number of missing cells in the whole table
func (t *Table) MissingCount() int {
	n := 0
	for _, c := range t.Columns {
		n += c.MissingCount()
	}
	return n
}

// Validate checks that every column has the same length
func (t *Table) Validate() error {
	rows := t.Rows()
	for _, c := range t.Columns {
		if len(c.Values) != rows {
			return fmt.Errorf("column %q has %d rows, expected %d", c.Name, len(c.Values), rows)
		}
		if c.Ints != nil && len(c.Ints) != rows {
			return fmt.Errorf("integer column %q has %d rows, expected %d", c.Name, len(c.Ints), rows)
		}
	}
	return nil
}

// Clone returns a deep copy so that stages never alias each other's tables
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		nc := Column{Name: c.Name, Values: append([]float64(nil), c.Values...)}
		if c.Ints != nil {
			nc.Ints = append([]int64(nil), c.Ints...)
		}
		out.Columns[i] = nc
	}
	return out
}

// Equal reports whether two tables have identical names and cell values.
// Missing cells compare equal to each other.
func (t *Table) Equal(o *Table) bool {
	if t.Width() != o.Width() || t.Rows() != o.Rows() {
		return false
	}
	for i := range t.Columns {
		a, b := t.Columns[i], o.Columns[i]
		if a.Name != b.Name || a.IsInteger() != b.IsInteger() {
			return false
		}
		for r := range a.Values {
			va, vb := a.Values[r], b.Values[r]
			if IsMissing(va) && IsMissing(vb) {
				continue
			}
			if va != vb {
				return false
			}
		}
	}
	return true
}

// MissingMask records, per column and row, whether a canonical cell was missing.
// It is indexed [column][row] and never mutated after canonicalization.
type MissingMask [][]bool

// NewMissingMask derives the mask of t
func NewMissingMask(t *Table) MissingMask {
	mask := make(MissingMask, t.Width())
	for c, col := range t.Columns {
		mask[c] = make([]bool, len(col.Values))
		for r, v := range col.Values {
			mask[c][r] = IsMissing(v)
		}
	}
	return mask
}

// Count returns the number of missing cells in column c
func (m MissingMask) Count(c int) int {
	n := 0
	for _, missing := range m[c] {
		if missing {
			n++
		}
	}
	return n
}

// Total returns the number of missing cells across all columns
func (m MissingMask) Total() int {
	n := 0
	for c := range m {
		n += m.Count(c)
	}
	return n
}

// Fraction returns the missing fraction of column c
func (m MissingMask) Fraction(c int) float64 {
	if len(m[c]) == 0 {
		return 0
	}
	return float64(m.Count(c)) / float64(len(m[c]))
}
