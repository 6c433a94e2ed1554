package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// mockOptions 模拟行情参数
type mockOptions struct {
	Start       time.Time
	Days        int
	Tickers     []string
	Seed        int64
	MissingRate float64
}

func newMockDataCmd() *cobra.Command {
	var (
		startDate   string
		days        int
		tickers     string
		output      string
		seed        int64
		missingRate float64
	)

	cmd := &cobra.Command{
		Use:   "mockdata",
		Short: "Generate a synthetic daily price panel",
		Long: `Writes a wide daily close CSV (date,T1,T2,...). Consecutive tickers are
generated in pairs: the second ticker of each pair tracks the first through a
mean-reverting spread, so the pair is cointegrated. A trailing unpaired ticker
is an independent random walk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse("2006-01-02", startDate)
			if err != nil {
				return fmt.Errorf("invalid start date: %w", err)
			}
			opts := mockOptions{
				Start:       start,
				Days:        days,
				Tickers:     splitTickers(tickers),
				Seed:        seed,
				MissingRate: missingRate,
			}

			log.Info().Str("component", "mockdata").Str("start", startDate).Int("days", days).
				Strs("tickers", opts.Tickers).Str("output", output).Msg("generating mock data")

			if dir := filepath.Dir(output); dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create directory: %w", err)
				}
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			if err := writeMockPrices(file, opts); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("failed to close output: %w", err)
			}
			log.Info().Str("component", "mockdata").Str("output", output).Msg("mock data generation completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start-date", "2020-01-01", "Start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 756, "Number of business days")
	cmd.Flags().StringVar(&tickers, "tickers", "GLD,SLV,KO,PEP,XOM", "Comma-separated tickers")
	cmd.Flags().StringVar(&output, "output", "./data/prices.csv", "Output CSV path")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().Float64Var(&missingRate, "missing-rate", 0, "Probability that a cell is left empty")
	return cmd
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// writeMockPrices 生成宽表日线收盘价
func writeMockPrices(w io.Writer, opts mockOptions) error {
	if opts.Days < 1 {
		return fmt.Errorf("days must be positive, got %d", opts.Days)
	}
	if len(opts.Tickers) == 0 {
		return fmt.Errorf("no tickers given")
	}
	if opts.MissingRate < 0 || opts.MissingRate >= 1 {
		return fmt.Errorf("missing rate must be in [0, 1), got %v", opts.MissingRate)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	columns := make([][]float64, len(opts.Tickers))
	for i := 0; i < len(opts.Tickers); i += 2 {
		leader := randomWalk(rng, opts.Days, 50+rng.Float64()*150, 0.01)
		columns[i] = leader
		if i+1 < len(opts.Tickers) {
			columns[i+1] = follower(rng, leader, 0.3+rng.Float64()*1.5, 0.8)
		}
	}

	writer := csv.NewWriter(w)
	header := append([]string{"date"}, opts.Tickers...)
	if err := writer.Write(header); err != nil {
		return err
	}

	date := opts.Start
	record := make([]string, len(header))
	for t := 0; t < opts.Days; t++ {
		date = nextBusinessDay(date, t == 0)
		record[0] = date.Format("2006-01-02")
		for j, col := range columns {
			if opts.MissingRate > 0 && rng.Float64() < opts.MissingRate {
				record[j+1] = ""
				continue
			}
			record[j+1] = strconv.FormatFloat(col[t], 'f', 4, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// randomWalk 几何随机游走
func randomWalk(rng *rand.Rand, n int, start, vol float64) []float64 {
	out := make([]float64, n)
	price := start
	for i := range out {
		out[i] = price
		price *= math.Exp(vol * rng.NormFloat64())
	}
	return out
}

// follower 跟随 leader，价差为 AR(1) 均值回归
func follower(rng *rand.Rand, leader []float64, beta, phi float64) []float64 {
	out := make([]float64, len(leader))
	noiseScale := 0.005 * leader[0] * beta
	offset := 5 + rng.Float64()*20
	var e float64
	for i, p := range leader {
		e = phi*e + noiseScale*rng.NormFloat64()
		out[i] = beta*p + offset + e
	}
	return out
}

func nextBusinessDay(d time.Time, first bool) time.Time {
	if !first {
		d = d.AddDate(0, 0, 1)
	}
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
