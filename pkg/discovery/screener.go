// Package discovery screens a ticker universe for cointegrated pairs
package discovery

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/spread"
)

// Config 筛选参数
type Config struct {
	PValueThreshold      float64 `yaml:"p_value_threshold"`
	CorrelationThreshold float64 `yaml:"correlation_threshold"`
	Workers              int     `yaml:"workers"` // <= 0 means runtime.NumCPU()
}

// DefaultConfig returns p <= 0.05, correlation >= 0.7
func DefaultConfig() Config {
	return Config{
		PValueThreshold:      0.05,
		CorrelationThreshold: 0.7,
		Workers:              runtime.NumCPU(),
	}
}

// Validate checks that both thresholds are in their natural ranges
func (c Config) Validate() error {
	if !(c.PValueThreshold > 0 && c.PValueThreshold <= 1) {
		return fmt.Errorf("%w: p-value threshold must be in (0, 1], got %g", stats.ErrInvalidInput, c.PValueThreshold)
	}
	if !(c.CorrelationThreshold >= -1 && c.CorrelationThreshold <= 1) {
		return fmt.Errorf("%w: correlation threshold must be in [-1, 1], got %g", stats.ErrInvalidInput, c.CorrelationThreshold)
	}
	return nil
}

// PairCandidate is one accepted pair
type PairCandidate struct {
	Ticker1        string               `json:"ticker1"`
	Ticker2        string               `json:"ticker2"`
	Correlation    float64              `json:"correlation"`
	PValue         float64              `json:"p_value"`
	TStat          float64              `json:"t_stat"`
	CriticalValues stats.CriticalValues `json:"critical_values"`
	HedgeRatio     float64              `json:"hedge_ratio"`
}

// Name returns "T1/T2"
func (c PairCandidate) Name() string {
	return c.Ticker1 + "/" + c.Ticker2
}

type job struct {
	first, second string
}

type evaluation struct {
	candidate PairCandidate
	outcome   string
}

// Screener 配对筛选器
type Screener struct {
	cfg     Config
	metrics *Metrics
	logger  zerolog.Logger
}

// NewScreener validates cfg and registers the screener metrics on reg
func NewScreener(cfg Config, reg prometheus.Registerer, logger zerolog.Logger) (*Screener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	m, err := NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register screener metrics: %w", err)
	}
	return &Screener{
		cfg:     cfg,
		metrics: m,
		logger:  logger.With().Str("component", "screener").Logger(),
	}, nil
}

// Screen evaluates every unordered pair of distinct universe tickers present
// in panel. A nil universe means every panel ticker. Pairs that fail
// numerically are skipped. The result is sorted by ascending p-value, ties
// kept in enumeration order.
func (s *Screener) Screen(ctx context.Context, panel *market.Panel, universe []string) ([]PairCandidate, error) {
	start := time.Now()
	s.metrics.Screens.Inc()

	tickers := s.resolveUniverse(panel, universe)
	prices := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		series, err := panel.Series(t)
		if err != nil {
			return nil, err
		}
		prices[t] = series.Values()
	}

	jobs := make([]job, 0, len(tickers)*(len(tickers)-1)/2)
	for i := 0; i < len(tickers); i++ {
		for j := i + 1; j < len(tickers); j++ {
			jobs = append(jobs, job{first: tickers[i], second: tickers[j]})
		}
	}

	s.logger.Info().Int("tickers", len(tickers)).Int("pairs", len(jobs)).Int("workers", s.cfg.Workers).
		Msg("screening universe")

	results := make([]evaluation, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for k, jb := range jobs {
		k, jb := k, jb
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[k] = s.evaluate(jb, prices[jb.first], prices[jb.second])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("screen cancelled: %w", err)
	}

	accepted := make([]PairCandidate, 0)
	for _, r := range results {
		s.metrics.PairsEvaluated.WithLabelValues(r.outcome).Inc()
		if r.outcome == OutcomeAccepted {
			accepted = append(accepted, r.candidate)
		}
	}
	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].PValue < accepted[j].PValue
	})

	elapsed := time.Since(start)
	s.metrics.ScreenDuration.Observe(elapsed.Seconds())
	s.logger.Info().Int("accepted", len(accepted)).Int("evaluated", len(jobs)).Dur("elapsed", elapsed).
		Msg("screen complete")
	return accepted, nil
}

// resolveUniverse keeps universe order, drops duplicates and tickers missing from panel
func (s *Screener) resolveUniverse(panel *market.Panel, universe []string) []string {
	if universe == nil {
		return panel.Tickers()
	}
	seen := make(map[string]bool, len(universe))
	out := make([]string, 0, len(universe))
	for _, t := range universe {
		if seen[t] {
			continue
		}
		seen[t] = true
		if !panel.Has(t) {
			s.logger.Warn().Str("ticker", t).Msg("ticker not in price panel, skipping")
			continue
		}
		out = append(out, t)
	}
	return out
}

// evaluate runs the cheap correlation prune before the cointegration test
func (s *Screener) evaluate(jb job, p1, p2 []float64) evaluation {
	corr := stats.Correlation(p1, p2)
	if math.IsNaN(corr) {
		s.logger.Debug().Str("pair", jb.first+"/"+jb.second).Msg("correlation undefined, skipping pair")
		return evaluation{outcome: OutcomeNumericalFailure}
	}
	if corr < s.cfg.CorrelationThreshold {
		return evaluation{outcome: OutcomeLowCorrelation}
	}

	coint, err := stats.EngleGranger(p1, p2)
	if err != nil {
		s.logger.Debug().Err(err).Str("pair", jb.first+"/"+jb.second).Msg("cointegration test failed, skipping pair")
		return evaluation{outcome: OutcomeNumericalFailure}
	}
	if !coint.Cointegrated(s.cfg.PValueThreshold) {
		return evaluation{outcome: OutcomeNotCointegrated}
	}

	hedge, err := spread.HedgeRatio(p1, p2)
	if err != nil {
		return evaluation{outcome: OutcomeNumericalFailure}
	}

	return evaluation{
		outcome: OutcomeAccepted,
		candidate: PairCandidate{
			Ticker1:        jb.first,
			Ticker2:        jb.second,
			Correlation:    corr,
			PValue:         coint.PValue,
			TStat:          coint.TStat,
			CriticalValues: coint.CriticalValues,
			HedgeRatio:     hedge,
		},
	}
}
