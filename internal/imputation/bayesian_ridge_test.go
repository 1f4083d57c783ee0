package imputation

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func linearData(n int, noise float64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewPCG(1, 2))
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a := rng.Float64() * 10
		b := rng.Float64() * 5
		x.Set(i, 0, a)
		x.Set(i, 1, b)
		y[i] = 3 + 2*a - b + noise*rng.NormFloat64()
	}
	return x, y
}

func TestFitBayesianRidge_RecoversLinearModel(t *testing.T) {
	x, y := linearData(80, 0.01)

	m, err := fitBayesianRidge(x, y)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, m.coef[0], 0.01)
	assert.InDelta(t, -1.0, m.coef[1], 0.01)

	mean, std := m.predict([]float64{4, 2})
	assert.InDelta(t, 3+8-2, mean, 0.02)
	assert.Greater(t, std, 0.0)
	assert.Less(t, std, 0.1)
	assert.Greater(t, m.alpha, 0.0)
	assert.Greater(t, m.lambda, 0.0)
}

func TestFitBayesianRidge_NoisierDataWidensSpread(t *testing.T) {
	xq, yq := linearData(80, 0.01)
	xn, yn := linearData(80, 2)

	quiet, err := fitBayesianRidge(xq, yq)
	require.NoError(t, err)
	noisy, err := fitBayesianRidge(xn, yn)
	require.NoError(t, err)

	_, sq := quiet.predict([]float64{5, 2.5})
	_, sn := noisy.predict([]float64{5, 2.5})
	assert.Greater(t, sn, sq)
}

func TestFitBayesianRidge_ConstantTarget(t *testing.T) {
	x, _ := linearData(20, 0)
	y := make([]float64, 20)
	for i := range y {
		y[i] = 7
	}

	m, err := fitBayesianRidge(x, y)
	require.NoError(t, err)

	mean, std := m.predict([]float64{1, 1})
	assert.InDelta(t, 7.0, mean, 1e-9)
	assert.Less(t, std, 0.01)
}

func TestFitBayesianRidge_CollinearRegressors(t *testing.T) {
	n := 30
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x.Set(i, 0, float64(i))
		x.Set(i, 1, 2*float64(i))
		y[i] = float64(i) + 1
	}

	m, err := fitBayesianRidge(x, y)
	require.NoError(t, err)

	mean, _ := m.predict([]float64{10, 20})
	assert.InDelta(t, 11.0, mean, 0.05)
}

func TestFitBayesianRidge_ShapeErrors(t *testing.T) {
	_, err := fitBayesianRidge(mat.NewDense(3, 1, nil), []float64{1, 2})
	assert.ErrorIs(t, err, errShapeFailed)
}
