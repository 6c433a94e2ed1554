// Package stats provides statistical functions and time series analysis tools
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean 计算均值
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// Variance 计算样本方差 (n-1)
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	return stat.Variance(data, nil)
}

// StdDev 计算样本标准差 (n-1)
func StdDev(data []float64) float64 {
	return math.Sqrt(Variance(data))
}

// PopStdDev 计算总体标准差 (n)
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return math.Sqrt(stat.PopVariance(data, nil))
}

// Correlation 计算 Pearson 相关系数
// Returns NaN when the lengths differ, fewer than two points are given, or
// either input has zero variance.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	if isConstant(x) || isConstant(y) {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// Diff returns data[t] - data[t-lag]; the first lag entries are NaN
func Diff(data []float64, lag int) []float64 {
	out := make([]float64, len(data))
	for i := range out {
		if i < lag {
			out[i] = math.NaN()
			continue
		}
		out[i] = data[i] - data[i-lag]
	}
	return out
}

// PctChange returns simple percentage returns; the first entry is NaN
func PctChange(data []float64) []float64 {
	out := make([]float64, len(data))
	for i := range out {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = data[i]/data[i-1] - 1
	}
	return out
}

// DropNaN returns a copy of data without NaN entries
func DropNaN(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func isConstant(data []float64) bool {
	if len(data) == 0 {
		return true
	}
	return floats.Max(data) == floats.Min(data)
}
