package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// OLSFit 计算线性回归 y = slope * x + intercept
// Fails with ErrDegenerateInput when x has zero variance.
func OLSFit(y, x []float64) (slope, intercept float64, err error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("%w: ols length mismatch (y=%d, x=%d)", ErrInvalidInput, len(y), len(x))
	}
	if len(x) < 2 {
		return 0, 0, fmt.Errorf("%w: ols needs at least 2 observations, got %d", ErrInsufficientData, len(x))
	}
	if isConstant(x) {
		return 0, 0, fmt.Errorf("%w: regressor has zero variance", ErrDegenerateInput)
	}

	intercept, slope = stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return 0, 0, fmt.Errorf("%w: ols produced NaN coefficients", ErrDegenerateInput)
	}
	return slope, intercept, nil
}

// Residuals returns y - (slope*x + intercept)
func Residuals(y, x []float64, slope, intercept float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - (slope*x[i] + intercept)
	}
	return out
}

// lsqFit holds a multi-regressor least squares solution
type lsqFit struct {
	beta *mat.VecDense
	ssr  float64
	cov  *mat.SymDense // (X'X)^-1, unscaled
	nobs int
	k    int
}

// leastSquares solves y = X*beta via the normal equations (Cholesky of X'X)
func leastSquares(x *mat.Dense, y *mat.VecDense) (*lsqFit, error) {
	r, c := x.Dims()
	if r <= c {
		return nil, fmt.Errorf("%w: %d observations for %d regressors", ErrInsufficientData, r, c)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, fmt.Errorf("%w: design matrix is singular", ErrDegenerateInput)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	beta := mat.NewVecDense(c, nil)
	if err := chol.SolveVecTo(beta, &xty); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateInput, err)
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(x, beta)
	resid.SubVec(y, &fitted)

	cov := mat.NewSymDense(c, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateInput, err)
	}

	return &lsqFit{
		beta: beta,
		ssr:  mat.Dot(&resid, &resid),
		cov:  cov,
		nobs: r,
		k:    c,
	}, nil
}

// tValue returns the t statistic of coefficient i
func (f *lsqFit) tValue(i int) float64 {
	sigma2 := f.ssr / float64(f.nobs-f.k)
	se := math.Sqrt(sigma2 * f.cov.At(i, i))
	return f.beta.AtVec(i) / se
}

// aic matches the Gaussian log-likelihood AIC of an OLS fit without constant
func (f *lsqFit) aic() float64 {
	n := float64(f.nobs)
	llf := -n / 2 * (math.Log(2*math.Pi) + math.Log(f.ssr/n) + 1)
	return -2*llf + 2*float64(f.k)
}
