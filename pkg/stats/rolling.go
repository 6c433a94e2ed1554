package stats

import (
	"fmt"
	"math"
)

// RollingWindowStats 滚动窗口统计结果
type RollingWindowStats struct {
	Mean  float64
	Std   float64
	Count int
}

// CalculateRollingStats 计算最近 period 个数据点的均值和样本标准差
func CalculateRollingStats(data []float64, period int) RollingWindowStats {
	n := len(data)
	if n == 0 {
		return RollingWindowStats{}
	}
	if period <= 0 || period > n {
		period = n
	}

	recent := data[n-period:]
	return RollingWindowStats{
		Mean:  Mean(recent),
		Std:   StdDev(recent),
		Count: len(recent),
	}
}

// RollingMean computes the trailing mean over window points.
// Entries are NaN until a full window of non-NaN values is available.
func RollingMean(data []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: rolling window must be >= 1, got %d", ErrInvalidInput, window)
	}
	return rollingApply(data, window, Mean), nil
}

// RollingStd computes the trailing sample standard deviation over window points
func RollingStd(data []float64, window int) ([]float64, error) {
	if window < 2 {
		return nil, fmt.Errorf("%w: rolling std window must be >= 2, got %d", ErrInvalidInput, window)
	}
	return rollingApply(data, window, StdDev), nil
}

// RollingZScore computes (x - rolling mean) / rolling std.
// The first window-1 entries are NaN.
func RollingZScore(data []float64, window int) ([]float64, error) {
	mean, err := RollingMean(data, window)
	if err != nil {
		return nil, err
	}
	std, err := RollingStd(data, window)
	if err != nil {
		return nil, err
	}

	z := make([]float64, len(data))
	for i := range data {
		z[i] = (data[i] - mean[i]) / std[i]
	}
	return z, nil
}

// RollingCorrelation computes the Pearson correlation over a trailing window.
// The first window-1 entries are NaN, as is any window with zero variance.
func RollingCorrelation(x, y []float64, window int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: rolling correlation length mismatch (%d vs %d)", ErrInvalidInput, len(x), len(y))
	}
	if window < 2 {
		return nil, fmt.Errorf("%w: rolling correlation window must be >= 2, got %d", ErrInvalidInput, window)
	}

	out := make([]float64, len(x))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		wx := x[i-window+1 : i+1]
		wy := y[i-window+1 : i+1]
		if hasNaN(wx) || hasNaN(wy) {
			out[i] = math.NaN()
			continue
		}
		out[i] = Correlation(wx, wy)
	}
	return out, nil
}

func rollingApply(data []float64, window int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(data))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		w := data[i-window+1 : i+1]
		if hasNaN(w) {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(w)
	}
	return out
}

func hasNaN(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
