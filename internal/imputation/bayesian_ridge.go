package imputation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Gamma hyper-prior parameters and iteration limits of the evidence maximization
const (
	ridgeAlpha1  = 1e-6
	ridgeAlpha2  = 1e-6
	ridgeLambda1 = 1e-6
	ridgeLambda2 = 1e-6
	ridgeMaxIter = 300
	ridgeTol     = 1e-3
)

var (
	errSVDFailed   = errors.New("singular value decomposition did not converge")
	errNonFinite   = errors.New("regression produced non-finite coefficients")
	errTooFewRows  = errors.New("not enough observed rows to fit")
	errShapeFailed = errors.New("design matrix and target differ in length")
)

// bayesianRidge is a linear regression whose weight precision (lambda) and
// noise precision (alpha) are estimated by maximizing the marginal likelihood.
// The intercept is handled by centering.
type bayesianRidge struct {
	coef   []float64
	xMean  []float64
	yMean  float64
	alpha  float64
	lambda float64
	iters  int

	// Right singular vectors and squared singular values of the centered
	// design, kept to evaluate the posterior covariance V diag(1/(s²+λ/α)) Vᵀ / α.
	v     *mat.Dense
	eigen []float64
}

// fitRegression fits y on x, or on the intercept alone when x is nil
func fitRegression(x *mat.Dense, y []float64) (*bayesianRidge, error) {
	if x == nil {
		if len(y) == 0 {
			return nil, errTooFewRows
		}
		return fitInterceptOnly(y)
	}
	return fitBayesianRidge(x, y)
}

// fitBayesianRidge fits x (n×p, row-major) against y
func fitBayesianRidge(x *mat.Dense, y []float64) (*bayesianRidge, error) {
	n, p := x.Dims()
	if n != len(y) {
		return nil, errShapeFailed
	}
	if n == 0 {
		return nil, errTooFewRows
	}

	m := &bayesianRidge{
		xMean: make([]float64, p),
		yMean: stat.Mean(y, nil),
	}

	xc := mat.NewDense(n, p, nil)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, x)
		m.xMean[j] = stat.Mean(col, nil)
		for i := range col {
			xc.Set(i, j, col[i]-m.xMean[j])
		}
	}
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - m.yMean
	}
	ycVec := mat.NewVecDense(n, yc)

	var xty mat.VecDense
	xty.MulVec(xc.T(), ycVec)

	var svd mat.SVD
	if ok := svd.Factorize(xc, mat.SVDThin); !ok {
		return nil, errSVDFailed
	}
	s := svd.Values(nil)
	m.eigen = make([]float64, len(s))
	for i, sv := range s {
		m.eigen[i] = sv * sv
	}
	m.v = &mat.Dense{}
	svd.VTo(m.v)

	// Project Xᵀy onto the singular basis once; coefficients are V · diag · this.
	var vtXty mat.VecDense
	vtXty.MulVec(m.v.T(), &xty)

	variance := stat.Variance(y, nil) * float64(n-1) / float64(n)
	if n == 1 {
		variance = 0
	}
	alpha := 1.0 / (variance + epsilon)
	lambda := 1.0

	var coefOld []float64
	coef := make([]float64, p)
	var rss float64
	for iter := 0; iter < ridgeMaxIter; iter++ {
		rss = m.updateCoef(xc, ycVec, &vtXty, alpha, lambda, coef)

		gamma := 0.0
		for _, e := range m.eigen {
			gamma += alpha * e / (lambda + alpha*e)
		}
		lambda = (gamma + 2*ridgeLambda1) / (floats.Dot(coef, coef) + 2*ridgeLambda2)
		alpha = (float64(n) - gamma + 2*ridgeAlpha1) / (rss + 2*ridgeAlpha2)

		m.iters = iter + 1
		if coefOld != nil && floats.Distance(coefOld, coef, 1) < ridgeTol {
			break
		}
		coefOld = append(coefOld[:0], coef...)
	}

	m.updateCoef(xc, ycVec, &vtXty, alpha, lambda, coef)
	m.coef = coef
	m.alpha = alpha
	m.lambda = lambda

	if !allFinite(coef) || math.IsNaN(alpha) || math.IsInf(alpha, 0) || alpha <= 0 {
		return nil, errNonFinite
	}
	return m, nil
}

// fitInterceptOnly fits a model without regressors: the prediction is the
// observed mean and the noise precision follows the same evidence update
// with no effective parameters.
func fitInterceptOnly(y []float64) (*bayesianRidge, error) {
	n := len(y)
	m := &bayesianRidge{yMean: stat.Mean(y, nil), lambda: 1, iters: 1}
	rss := 0.0
	for _, v := range y {
		d := v - m.yMean
		rss += d * d
	}
	m.alpha = (float64(n) + 2*ridgeAlpha1) / (rss + 2*ridgeAlpha2)
	if math.IsNaN(m.alpha) || math.IsInf(m.alpha, 0) || m.alpha <= 0 {
		return nil, errNonFinite
	}
	return m, nil
}

// epsilon is the float64 machine epsilon used to keep the initial noise precision finite
var epsilon = math.Nextafter(1, 2) - 1

// updateCoef writes V diag(1/(s²+λ/α)) Vᵀ Xᵀy into coef and returns the residual sum of squares
func (m *bayesianRidge) updateCoef(xc *mat.Dense, yc *mat.VecDense, vtXty *mat.VecDense, alpha, lambda float64, coef []float64) float64 {
	k := len(m.eigen)
	scaled := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		scaled.SetVec(i, vtXty.AtVec(i)/(m.eigen[i]+lambda/alpha))
	}

	c := mat.NewVecDense(len(coef), coef)
	c.MulVec(m.v, scaled)

	var resid mat.VecDense
	resid.MulVec(xc, c)
	resid.SubVec(yc, &resid)
	return mat.Dot(&resid, &resid)
}

// predict returns the posterior predictive mean and standard deviation at x
func (m *bayesianRidge) predict(x []float64) (mean, std float64) {
	xc := make([]float64, len(x))
	floats.SubTo(xc, x, m.xMean)

	mean = m.yMean + floats.Dot(xc, m.coef)

	// xcᵀ Σ xc with Σ = V diag(1/(s²+λ/α)) Vᵀ / α
	quad := 0.0
	if len(m.eigen) > 0 {
		z := mat.NewVecDense(len(m.eigen), nil)
		z.MulVec(m.v.T(), mat.NewVecDense(len(xc), xc))
		for i, e := range m.eigen {
			zi := z.AtVec(i)
			quad += zi * zi / (e + m.lambda/m.alpha)
		}
		quad /= m.alpha
	}

	variance := quad + 1/m.alpha
	if variance <= 0 || math.IsNaN(variance) {
		return mean, 0
	}
	return mean, math.Sqrt(variance)
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
