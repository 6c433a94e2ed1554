package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CriticalValues holds the 1%, 5% and 10% critical values of a unit-root test
type CriticalValues struct {
	OnePct  float64
	FivePct float64
	TenPct  float64
}

// CointResult is the outcome of an Engle-Granger cointegration test
type CointResult struct {
	TStat          float64
	PValue         float64
	CriticalValues CriticalValues
	HedgeRatio     float64 // slope of series1 on series2
	Intercept      float64
	UsedLag        int
	NObs           int
}

// Cointegrated reports whether the null of no cointegration is rejected
func (r CointResult) Cointegrated(pValueThreshold float64) bool {
	return r.PValue <= pValueThreshold
}

// ADFResult is the outcome of an augmented Dickey-Fuller test without
// deterministic terms
type ADFResult struct {
	Stat    float64
	UsedLag int
	NObs    int
	AIC     float64
}

// Residuals that are this close to a perfect fit are treated as collinear.
var collinearRSquared = 1 - 100*math.Sqrt(2.220446049250313e-16)

// MacKinnon (1994) response surface, N=2 variables, constant term.
var (
	tauMaxC   = 0.92
	tauMinC   = -18.86
	tauStarC  = -2.62
	tauSmallP = []float64{2.92, 1.5012, 0.039796}
	tauLargeP = []float64{2.1945, 0.64695, -0.29198, -0.042377}
)

// MacKinnon (2010) critical value surface, N=2 variables, constant term.
// Each row is b0 + b1/T + b2/T^2 + b3/T^3.
var tauC2010 = [3][4]float64{
	{-3.89644, -10.9519, -33.527, 0},
	{-3.33613, -6.1101, -6.823, 0},
	{-3.04445, -4.2412, -2.720, 0},
}

// EngleGranger runs the two-step cointegration test of series1 on series2.
// Step one regresses series1 on series2 with a constant; step two runs an ADF
// test (lag by AIC) on the residuals. The null hypothesis is no cointegration.
func EngleGranger(series1, series2 []float64) (CointResult, error) {
	if len(series1) != len(series2) {
		return CointResult{}, fmt.Errorf("%w: cointegration length mismatch (%d vs %d)", ErrInvalidInput, len(series1), len(series2))
	}
	n := len(series1)

	slope, intercept, err := OLSFit(series1, series2)
	if err != nil {
		return CointResult{}, fmt.Errorf("cointegrating regression: %w", err)
	}
	resid := Residuals(series1, series2, slope, intercept)

	tss := 0.0
	mean := Mean(series1)
	for _, v := range series1 {
		tss += (v - mean) * (v - mean)
	}
	if tss == 0 {
		return CointResult{}, fmt.Errorf("%w: dependent series has zero variance", ErrDegenerateInput)
	}
	ssr := 0.0
	for _, e := range resid {
		ssr += e * e
	}
	rsq := 1 - ssr/tss

	result := CointResult{
		HedgeRatio:     slope,
		Intercept:      intercept,
		NObs:           n,
		CriticalValues: mackinnonCrit(n - 1),
	}

	if rsq < collinearRSquared {
		adf, err := ADF(resid, -1)
		if err != nil {
			return CointResult{}, fmt.Errorf("residual unit-root test: %w", err)
		}
		result.TStat = adf.Stat
		result.UsedLag = adf.UsedLag
	} else {
		// (almost) perfectly collinear, the residual is trivially stationary
		result.TStat = math.Inf(-1)
	}

	result.PValue = mackinnonP(result.TStat)
	if math.IsNaN(result.PValue) {
		return CointResult{}, fmt.Errorf("%w: cointegration p-value is undefined", ErrDegenerateInput)
	}
	return result, nil
}

// ADF runs an augmented Dickey-Fuller regression with no constant or trend:
//
//	Δx[t] = γ·x[t-1] + Σ φ_j·Δx[t-j] + ε
//
// The lag order is chosen by minimum AIC over 0..maxLag using a common sample.
// A negative maxLag selects the default ceil(12*(n/100)^(1/4)), capped at n/2-1.
func ADF(x []float64, maxLag int) (ADFResult, error) {
	n := len(x)
	if n < 2 {
		return ADFResult{}, fmt.Errorf("%w: %d observations is too short for ADF", ErrInsufficientData, n)
	}
	if maxLag < 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
		if limit := n/2 - 1; limit < maxLag {
			maxLag = limit
		}
		if maxLag < 0 {
			return ADFResult{}, fmt.Errorf("%w: %d observations is too short for ADF", ErrInsufficientData, n)
		}
	}

	xdiff := make([]float64, n-1)
	for i := range xdiff {
		xdiff[i] = x[i+1] - x[i]
	}
	// the common sample (len(xdiff)-maxLag rows) must exceed the maxLag+1
	// regressors; with the n/2-1 default cap short even-length series fail here
	if len(xdiff)-maxLag <= maxLag+1 {
		return ADFResult{}, fmt.Errorf("%w: %d observations for ADF with max lag %d", ErrInsufficientData, n, maxLag)
	}

	bestLag, bestAIC := 0, math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		design, dep := adfDesign(x, xdiff, lag, maxLag)
		fit, err := leastSquares(design, dep)
		if err != nil {
			return ADFResult{}, err
		}
		if aic := fit.aic(); aic < bestAIC || lag == 0 {
			bestLag, bestAIC = lag, aic
		}
	}

	design, dep := adfDesign(x, xdiff, bestLag, bestLag)
	fit, err := leastSquares(design, dep)
	if err != nil {
		return ADFResult{}, err
	}

	return ADFResult{
		Stat:    fit.tValue(0),
		UsedLag: bestLag,
		NObs:    fit.nobs,
		AIC:     bestAIC,
	}, nil
}

// adfDesign builds the ADF design matrix with lag difference columns, dropping
// the first trim observations so different lag orders share one sample.
func adfDesign(x, xdiff []float64, lag, trim int) (*mat.Dense, *mat.VecDense) {
	rows := len(xdiff) - trim
	cols := lag + 1
	design := mat.NewDense(rows, cols, nil)
	dep := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := r + trim
		dep.SetVec(r, xdiff[t])
		design.Set(r, 0, x[t])
		for j := 1; j <= lag; j++ {
			design.Set(r, j, xdiff[t-j])
		}
	}
	return design, dep
}

// mackinnonP approximates the asymptotic p-value of the Engle-Granger
// statistic via the MacKinnon (1994) response surface.
func mackinnonP(tstat float64) float64 {
	if math.IsNaN(tstat) {
		return math.NaN()
	}
	if tstat > tauMaxC {
		return 1.0
	}
	if tstat < tauMinC {
		return 0.0
	}
	coef := tauLargeP
	if tstat <= tauStarC {
		coef = tauSmallP
	}
	return distuv.UnitNormal.CDF(polyval(coef, tstat))
}

// mackinnonCrit returns the finite-sample critical values for nobs observations
func mackinnonCrit(nobs int) CriticalValues {
	inv := 1 / float64(nobs)
	var cv [3]float64
	for i, row := range tauC2010 {
		cv[i] = polyval(row[:], inv)
	}
	return CriticalValues{OnePct: cv[0], FivePct: cv[1], TenPct: cv[2]}
}

// polyval evaluates c[0] + c[1]*x + c[2]*x^2 + ...
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
