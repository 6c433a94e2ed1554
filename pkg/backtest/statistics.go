package backtest

import (
	"fmt"
	"math"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/signal"
)

// TradingDaysPerYear 年化交易日
const TradingDaysPerYear = 252

// Trade is one round trip: a run of identical non-flat positions
type Trade struct {
	Side       signal.Position `json:"side"`
	EntryIndex int             `json:"entry_index"`
	ExitIndex  int             `json:"exit_index"` // last day the position was held
	Return     float64         `json:"return"`
	Open       bool            `json:"open"`
}

// Statistics 回测绩效统计
type Statistics struct {
	TradingDays            int     `json:"trading_days"`
	FinalCumulativeReturn  float64 `json:"final_cumulative_return"`
	TotalReturn            float64 `json:"total_return"`
	AnnualizedReturn       float64 `json:"annualized_return"`
	AverageDailyReturn     float64 `json:"average_daily_return"`
	AverageDailyVolatility float64 `json:"average_daily_volatility"`
	SharpeRatio            float64 `json:"sharpe_ratio"`
	SortinoRatio           float64 `json:"sortino_ratio"`
	MaxDrawdown            float64 `json:"max_drawdown"`
	CalmarRatio            float64 `json:"calmar_ratio"`
	ExposureDays           int     `json:"exposure_days"`
	PositionChanges        int     `json:"position_changes"` // entries plus exits

	TotalTrades  int     `json:"total_trades"`
	WinTrades    int     `json:"win_trades"`
	LossTrades   int     `json:"loss_trades"`
	WinRate      float64 `json:"win_rate"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	ProfitFactor float64 `json:"profit_factor"`
	Trades       []Trade `json:"trades,omitempty"`
}

// ComputeStatistics derives performance metrics from a Result and the
// positions that produced it
func ComputeStatistics(result *Result, positions []signal.Position) (Statistics, error) {
	if len(result.DailyReturns) != len(positions) {
		return Statistics{}, fmt.Errorf("%w: %d returns for %d positions",
			stats.ErrInvalidInput, len(result.DailyReturns), len(positions))
	}

	var s Statistics
	returns := stats.DropNaN(result.DailyReturns)
	s.TradingDays = len(returns)
	s.FinalCumulativeReturn = result.FinalCumulativeReturn()
	s.TotalReturn = s.FinalCumulativeReturn - 1

	for t := 1; t < len(positions); t++ {
		if positions[t-1] != signal.PositionFlat {
			s.ExposureDays++
		}
	}

	s.PositionChanges = signal.Trades(positions)

	calculatePerformanceMetrics(&s, returns, result.CumulativeReturns)
	s.Trades = extractTrades(result.DailyReturns, positions)
	calculateTradeStats(&s)
	return s, nil
}

// calculatePerformanceMetrics calculates Sharpe, Sortino, Max Drawdown etc.
func calculatePerformanceMetrics(s *Statistics, returns, cumulative []float64) {
	if len(returns) == 0 {
		return
	}

	s.AverageDailyReturn = stats.Mean(returns)
	s.AverageDailyVolatility = stats.PopStdDev(returns)

	// Annualized return (252 trading days)
	s.AnnualizedReturn = s.TotalReturn * (TradingDaysPerYear / float64(len(returns)))

	// Sharpe Ratio (assume risk-free rate = 0)
	if s.AverageDailyVolatility > 0 {
		s.SharpeRatio = s.AverageDailyReturn / s.AverageDailyVolatility * math.Sqrt(TradingDaysPerYear)
	}

	// Sortino Ratio (downside deviation)
	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) > 0 {
		if dd := stats.PopStdDev(downside); dd > 0 {
			s.SortinoRatio = s.AverageDailyReturn / dd * math.Sqrt(TradingDaysPerYear)
		}
	}

	s.MaxDrawdown = MaxDrawdown(cumulative)
	if s.MaxDrawdown > 0 {
		s.CalmarRatio = s.AnnualizedReturn / s.MaxDrawdown
	}
}

// MaxDrawdown returns the largest peak-to-trough fall of an equity curve as a
// fraction of the peak; NaN points are skipped
func MaxDrawdown(equity []float64) float64 {
	var maxDD float64
	peak := math.NaN()
	for _, v := range equity {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(peak) || v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// extractTrades splits positions into round trips. The return of a trade
// compounds the daily returns earned while it was held.
func extractTrades(daily []float64, positions []signal.Position) []Trade {
	var trades []Trade
	n := len(positions)
	for i := 0; i < n; {
		side := positions[i]
		if side == signal.PositionFlat {
			i++
			continue
		}
		j := i
		for j+1 < n && positions[j+1] == side {
			j++
		}

		growth := 1.0
		for t := i + 1; t <= j+1 && t < n; t++ {
			if !math.IsNaN(daily[t]) {
				growth *= 1 + daily[t]
			}
		}
		trades = append(trades, Trade{
			Side:       side,
			EntryIndex: i,
			ExitIndex:  j,
			Return:     growth - 1,
			Open:       j == n-1,
		})
		i = j + 1
	}
	return trades
}

// calculateTradeStats calculates trade statistics
func calculateTradeStats(s *Statistics) {
	s.TotalTrades = len(s.Trades)
	if s.TotalTrades == 0 {
		return
	}

	var totalWin, totalLoss float64
	for _, tr := range s.Trades {
		switch {
		case tr.Return > 0:
			s.WinTrades++
			totalWin += tr.Return
		case tr.Return < 0:
			s.LossTrades++
			totalLoss += -tr.Return
		}
	}

	s.WinRate = float64(s.WinTrades) / float64(s.TotalTrades)
	if s.WinTrades > 0 {
		s.AvgWin = totalWin / float64(s.WinTrades)
	}
	if s.LossTrades > 0 {
		s.AvgLoss = totalLoss / float64(s.LossTrades)
	}
	if totalLoss > 0 {
		s.ProfitFactor = totalWin / totalLoss
	}
}
