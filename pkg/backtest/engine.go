// Package backtest computes strategy returns from prices and a position series
package backtest

import (
	"fmt"
	"math"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/signal"
)

// Result 回测收益序列
type Result struct {
	DailyReturns      []float64 `json:"daily_returns"`
	CumulativeReturns []float64 `json:"cumulative_returns"` // running product of (1 + daily)
}

// FinalCumulativeReturn returns the last defined cumulative value, 1 if none
func (r *Result) FinalCumulativeReturn() float64 {
	for i := len(r.CumulativeReturns) - 1; i >= 0; i-- {
		if !math.IsNaN(r.CumulativeReturns[i]) {
			return r.CumulativeReturns[i]
		}
	}
	return 1
}

// CalculateReturns backtests positions against the two legs of pair.
// The hedge ratio is taken as 1 for P&L (dollar neutral).
func CalculateReturns(pair market.Pair, positions []signal.Position) (*Result, error) {
	if len(positions) != pair.Len() {
		return nil, fmt.Errorf("%w: %d positions for %d prices", stats.ErrInvalidInput, len(positions), pair.Len())
	}
	r1 := stats.PctChange(pair.First.Values())
	r2 := stats.PctChange(pair.Second.Values())
	return ReturnsFromAssetReturns(r1, r2, positions)
}

// ReturnsFromAssetReturns computes daily[t] = position[t-1] * (r1[t] - r2[t]).
// daily[0] is NaN since there is no previous position.
func ReturnsFromAssetReturns(r1, r2 []float64, positions []signal.Position) (*Result, error) {
	if len(r1) != len(r2) || len(r1) != len(positions) {
		return nil, fmt.Errorf("%w: returns and positions differ in length (%d, %d, %d)",
			stats.ErrInvalidInput, len(r1), len(r2), len(positions))
	}

	pos := signal.Float64s(positions)
	daily := make([]float64, len(r1))
	for t := range daily {
		if t == 0 {
			daily[t] = math.NaN()
			continue
		}
		daily[t] = pos[t-1] * (r1[t] - r2[t])
	}

	return &Result{
		DailyReturns:      daily,
		CumulativeReturns: CumulativeProduct(daily),
	}, nil
}

// CumulativeProduct returns the running product of (1 + r). A NaN return
// stays NaN at its own index and is skipped by the running product.
func CumulativeProduct(returns []float64) []float64 {
	out := make([]float64, len(returns))
	acc := 1.0
	for i, r := range returns {
		if math.IsNaN(r) {
			out[i] = math.NaN()
			continue
		}
		acc *= 1 + r
		out[i] = acc
	}
	return out
}
