// Package experiment runs the full single-pair pipeline: hedge ratio, spread
// z-score, signals, backtest and performance statistics.
package experiment

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/backtest"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/quality"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/regime"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/signal"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/spread"
)

// Mode selects how the hedge-ratio estimator is chosen
type Mode string

const (
	ModeStatic   Mode = "static"
	ModeKalman   Mode = "kalman"
	ModeAdaptive Mode = "adaptive" // regime selector decides
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeStatic, ModeKalman, ModeAdaptive:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown experiment mode %q (must be static, kalman or adaptive)", stats.ErrInvalidInput, s)
	}
}

// Config 实验参数
type Config struct {
	Mode            Mode
	ZScoreWindow    int
	PValueThreshold float64
	Kalman          spread.KalmanConfig
	Quality         quality.Config
	Regime          regime.Config
	Signal          signal.Config
}

// DefaultConfig mirrors the defaults of every stage
func DefaultConfig() Config {
	return Config{
		Mode:            ModeStatic,
		ZScoreWindow:    spread.DefaultZScoreWindow,
		PValueThreshold: 0.05,
		Kalman:          spread.DefaultKalmanConfig(),
		Quality:         quality.DefaultConfig(),
		Regime:          regime.DefaultConfig(),
		Signal:          signal.DefaultConfig(),
	}
}

// Result is everything one experiment produced, in memory
type Result struct {
	Name          string
	Pair          string
	Start, End    time.Time // first and last aligned date
	Mode          Mode
	Estimator     spread.Kind
	Decision      *regime.Decision   // adaptive mode only
	Cointegration *stats.CointResult // static mode only
	HedgeRatio    float64            // static beta, or mean beta for kalman
	Analysis      *spread.Analysis
	Positions     []signal.Position
	Backtest      *backtest.Result
	Statistics    backtest.Statistics
}

// Runner 实验执行器
type Runner struct {
	cfg       Config
	static    spread.StaticOLS
	kalman    *spread.KalmanOnline
	selector  *regime.Selector
	generator *signal.Generator
	logger    zerolog.Logger
}

// NewRunner validates cfg and builds every stage once
func NewRunner(cfg Config, logger zerolog.Logger) (*Runner, error) {
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.ZScoreWindow < 2 {
		return nil, fmt.Errorf("%w: z-score window must be >= 2, got %d", stats.ErrInvalidInput, cfg.ZScoreWindow)
	}

	kalman, err := spread.NewKalmanOnline(cfg.Kalman)
	if err != nil {
		return nil, err
	}
	gen, err := signal.NewGenerator(cfg.Signal)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:       cfg,
		static:    spread.NewStaticOLS(),
		kalman:    kalman,
		selector:  regime.NewSelector(cfg.Regime, quality.NewScorer(cfg.Quality), logger),
		generator: gen,
		logger:    logger.With().Str("component", "experiment").Logger(),
	}, nil
}

// Run executes one experiment on pair
func (r *Runner) Run(name string, pair market.Pair) (*Result, error) {
	res := &Result{Name: name, Pair: pair.Name(), Mode: r.cfg.Mode}
	if dates := pair.First.Timestamps(); len(dates) > 0 {
		res.Start, res.End = dates[0], dates[len(dates)-1]
	}
	logger := r.logger.With().Str("experiment", name).Str("pair", pair.Name()).Logger()

	var estimator spread.Estimator
	switch r.cfg.Mode {
	case ModeStatic:
		estimator = r.static
		r.checkCointegration(res, pair, logger)
	case ModeKalman:
		estimator = r.kalman
	case ModeAdaptive:
		d, err := r.selector.SelectForPair(pair)
		if err != nil {
			return nil, err
		}
		res.Decision = &d
		estimator = r.estimatorFor(d.Estimator)
	}
	res.Estimator = estimator.Kind()

	analyzer, err := spread.NewSpreadAnalyzer(estimator, r.cfg.ZScoreWindow)
	if err != nil {
		return nil, err
	}
	analysis, err := analyzer.Analyze(pair)
	if err != nil {
		return nil, err
	}
	res.Analysis = analysis
	if estimator.Kind() == spread.KindKalman {
		res.HedgeRatio = analysis.Estimate.MeanHedgeRatio()
	} else {
		res.HedgeRatio = analysis.Estimate.HedgeRatio()
	}

	res.Positions = r.generator.Generate(analysis.ZScore)

	res.Backtest, err = backtest.CalculateReturns(pair, res.Positions)
	if err != nil {
		return nil, err
	}
	res.Statistics, err = backtest.ComputeStatistics(res.Backtest, res.Positions)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("estimator", string(res.Estimator)).
		Float64("hedge_ratio", res.HedgeRatio).
		Float64("final_cumulative_return", res.Statistics.FinalCumulativeReturn).
		Int("trades", res.Statistics.TotalTrades).
		Msg("experiment complete")
	return res, nil
}

func (r *Runner) estimatorFor(kind spread.Kind) spread.Estimator {
	if kind == spread.KindKalman {
		return r.kalman
	}
	return r.static
}

// checkCointegration is informational; a failed or weak test only warns
func (r *Runner) checkCointegration(res *Result, pair market.Pair, logger zerolog.Logger) {
	coint, err := stats.EngleGranger(pair.First.Values(), pair.Second.Values())
	if err != nil {
		logger.Warn().Err(err).Msg("cointegration test failed")
		return
	}
	res.Cointegration = &coint

	ev := logger.Info()
	if !coint.Cointegrated(r.cfg.PValueThreshold) {
		ev = logger.Warn()
	}
	ev.Float64("p_value", coint.PValue).Float64("t_stat", coint.TStat).
		Bool("cointegrated", coint.Cointegrated(r.cfg.PValueThreshold)).
		Msg("cointegration test")
}
