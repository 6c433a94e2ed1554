package spread

import (
	"fmt"
	"math"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

// DefaultZScoreWindow 默认 z-score 滚动窗口
const DefaultZScoreWindow = 30

// Analysis is a spread with its rolling z-score and latest statistics
type Analysis struct {
	Pair     string
	Estimate *Estimate
	ZScore   []float64
	Stats    SpreadStats
}

// SpreadAnalyzer 分析两个资产之间的 spread
// 用于配对交易：估计对冲比率、计算 spread 及其 z-score
type SpreadAnalyzer struct {
	estimator Estimator
	window    int
}

// NewSpreadAnalyzer 创建 spread 分析器
func NewSpreadAnalyzer(estimator Estimator, window int) (*SpreadAnalyzer, error) {
	if estimator == nil {
		return nil, fmt.Errorf("%w: nil estimator", stats.ErrInvalidInput)
	}
	if window < 2 {
		return nil, fmt.Errorf("%w: z-score window must be >= 2, got %d", stats.ErrInvalidInput, window)
	}
	return &SpreadAnalyzer{estimator: estimator, window: window}, nil
}

// Analyze estimates the spread of pair and z-scores it over the rolling window
func (sa *SpreadAnalyzer) Analyze(pair market.Pair) (*Analysis, error) {
	est, err := sa.estimator.Estimate(pair)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pair.Name(), err)
	}

	z, err := stats.RollingZScore(est.Spread, sa.window)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Pair:     pair.Name(),
		Estimate: est,
		ZScore:   z,
		Stats:    sa.currentStats(pair, est, z),
	}, nil
}

// currentStats 计算最近一个窗口的统计信息
func (sa *SpreadAnalyzer) currentStats(pair market.Pair, est *Estimate, z []float64) SpreadStats {
	n := len(est.Spread)
	if n == 0 {
		return SpreadStats{}
	}

	recent := stats.CalculateRollingStats(est.Spread, sa.window)
	corr := math.NaN()
	if n >= sa.window {
		p1 := pair.First.Values()
		p2 := pair.Second.Values()
		corr = stats.Correlation(p1[n-sa.window:], p2[n-sa.window:])
	}

	return SpreadStats{
		CurrentSpread: est.Spread[n-1],
		Mean:          recent.Mean,
		Std:           recent.Std,
		ZScore:        z[n-1],
		Correlation:   corr,
		HedgeRatio:    est.HedgeRatio(),
	}
}
