// Package quality scores how tradeable a spread is: how fast it mean-reverts,
// whether it trends, and how stable the underlying correlation is.
package quality

import (
	"fmt"
	"math"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

const (
	// DefaultHurstMaxLag Hurst 指数最大滞后 (使用 2..max_lag-1)
	DefaultHurstMaxLag = 20

	// DefaultCorrelationWindow 相关性稳定度滚动窗口
	DefaultCorrelationWindow = 60

	neutralHurst        = 0.5
	unstableCorrelation = 1.0
)

// HalfLife calculates the half-life of mean reversion for a spread
// Using AR(1) model: Δs_t = λ * s_{t-1} + c + ε_t
// Half-life = -ln(2) / λ, +Inf when λ >= 0 or the regression is degenerate
func HalfLife(spread []float64) float64 {
	if len(spread) < 3 {
		return math.Inf(1)
	}

	lagged := spread[:len(spread)-1]
	delta := make([]float64, len(spread)-1)
	for i := 1; i < len(spread); i++ {
		delta[i-1] = spread[i] - spread[i-1]
	}

	lambda, _, err := stats.OLSFit(delta, lagged)
	if err != nil || math.IsNaN(lambda) || lambda >= 0 {
		return math.Inf(1)
	}
	return -math.Ln2 / lambda
}

// HurstExponent estimates H from how the dispersion of lag differences scales
// with the lag: std(s[t+lag]-s[t]) ~ lag^H.
// H < 0.5 均值回归, H = 0.5 随机游走, H > 0.5 趋势
func HurstExponent(spread []float64, maxLag int) float64 {
	if maxLag <= 0 {
		maxLag = DefaultHurstMaxLag
	}

	logLags := make([]float64, 0, maxLag)
	logTau := make([]float64, 0, maxLag)
	for lag := 2; lag < maxLag; lag++ {
		diffs := stats.DropNaN(stats.Diff(spread, lag))
		tau := math.Log(stats.PopStdDev(diffs))
		if math.IsNaN(tau) || math.IsInf(tau, 0) {
			continue
		}
		logLags = append(logLags, math.Log(float64(lag)))
		logTau = append(logTau, tau)
	}

	if len(logLags) < 2 {
		return neutralHurst
	}
	h, _, err := stats.OLSFit(logTau, logLags)
	if err != nil {
		return neutralHurst
	}
	return h
}

// CorrelationStability is the sample standard deviation of the rolling
// correlation between the two price series; lower is more stable.
// Returns 1.0 when fewer than two rolling values are defined.
func CorrelationStability(series1, series2 []float64, window int) (float64, error) {
	if window <= 0 {
		window = DefaultCorrelationWindow
	}
	rolling, err := stats.RollingCorrelation(series1, series2, window)
	if err != nil {
		return 0, fmt.Errorf("correlation stability: %w", err)
	}

	valid := stats.DropNaN(rolling)
	if len(valid) < 2 {
		return unstableCorrelation, nil
	}
	return stats.StdDev(valid), nil
}
