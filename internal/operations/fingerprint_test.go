package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicalqc/pkg/contracts/domain"
)

func TestFingerprint(t *testing.T) {
	tbl := &domain.Table{Columns: []domain.Column{
		{Name: "Glucose", Values: []float64{148, 85, 183}},
		{Name: "Age", Values: []float64{50, 31, 32}, Ints: []int64{50, 31, 32}},
	}}

	a, err := Fingerprint(tbl)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := Fingerprint(tbl.Clone())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	changed := tbl.Clone()
	changed.Columns[0].Values[1] = 86
	c, err := Fingerprint(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = Fingerprint(nil)
	assert.Error(t, err)
}
