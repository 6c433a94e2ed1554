package backtest

import (
	"fmt"
	"io"
	"strings"
)

// WriteSummary writes a summary of the backtest results
func WriteSummary(w io.Writer, name string, s Statistics) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintf(w, "BACKTEST SUMMARY: %s\n", name)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nTrading Days:      %d (exposed %d)\n", s.TradingDays, s.ExposureDays)
	fmt.Fprintf(w, "Final Cumulative:  %.4f (%.2f%%)\n", s.FinalCumulativeReturn, s.TotalReturn*100)
	fmt.Fprintf(w, "Annualized Return: %.2f%%\n", s.AnnualizedReturn*100)

	fmt.Fprintf(w, "\nPerformance Metrics:\n")
	fmt.Fprintf(w, "  Sharpe Ratio:      %.2f\n", s.SharpeRatio)
	fmt.Fprintf(w, "  Sortino Ratio:     %.2f\n", s.SortinoRatio)
	fmt.Fprintf(w, "  Max Drawdown:      %.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "  Calmar Ratio:      %.2f\n", s.CalmarRatio)

	fmt.Fprintf(w, "\nTrade Statistics:\n")
	fmt.Fprintf(w, "  Total Trades:      %d\n", s.TotalTrades)
	fmt.Fprintf(w, "  Position Changes:  %d\n", s.PositionChanges)
	fmt.Fprintf(w, "  Win Trades:        %d (%.1f%%)\n", s.WinTrades, s.WinRate*100)
	fmt.Fprintf(w, "  Loss Trades:       %d\n", s.LossTrades)
	fmt.Fprintf(w, "  Profit Factor:     %.2f\n", s.ProfitFactor)
	fmt.Fprintf(w, "  Avg Win:           %.2f%%\n", s.AvgWin*100)
	fmt.Fprintf(w, "  Avg Loss:          %.2f%%\n", s.AvgLoss*100)

	fmt.Fprintln(w, strings.Repeat("=", 60))
}
