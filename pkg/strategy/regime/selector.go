// Package regime picks the hedge-ratio estimator for a pair from its quality metrics
package regime

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/quality"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/spread"
)

// Config 选择阈值
type Config struct {
	MaxHalfLife             float64 `yaml:"max_half_life"`             // 超过则 kalman
	MaxCorrelationStability float64 `yaml:"max_correlation_stability"` // 超过则 kalman
	MeanRevertingHurst      float64 `yaml:"mean_reverting_hurst"`      // 低于则记录支持 static 的理由
	MinOverallScore         float64 `yaml:"min_overall_score"`         // 无其他规则时, 超过则 static
}

// DefaultConfig returns 60 / 0.15 / 0.4 / 70
func DefaultConfig() Config {
	return Config{
		MaxHalfLife:             60,
		MaxCorrelationStability: 0.15,
		MeanRevertingHurst:      0.4,
		MinOverallScore:         70,
	}
}

// Decision is the chosen estimator with the rules that led to it
type Decision struct {
	Estimator spread.Kind     `json:"estimator"`
	Reasons   []string        `json:"reasons"`
	Metrics   quality.Metrics `json:"metrics"`
}

// Selector chooses static vs kalman
type Selector struct {
	cfg    Config
	scorer *quality.Scorer
	logger zerolog.Logger
}

// NewSelector creates a selector; scorer is used by SelectForPair
func NewSelector(cfg Config, scorer *quality.Scorer, logger zerolog.Logger) *Selector {
	if scorer == nil {
		scorer = quality.NewScorer(quality.DefaultConfig())
	}
	return &Selector{
		cfg:    cfg,
		scorer: scorer,
		logger: logger.With().Str("component", "regime").Logger(),
	}
}

// Select applies the rules in order; a later rule never reverts a kalman decision
func (s *Selector) Select(m quality.Metrics) Decision {
	decision := spread.KindStatic
	var reasons []string

	if m.HalfLife > s.cfg.MaxHalfLife {
		decision = spread.KindKalman
		reasons = append(reasons, fmt.Sprintf("long half-life (%.1f days) indicates slow mean reversion", m.HalfLife))
	}

	if m.CorrelationStability > s.cfg.MaxCorrelationStability {
		decision = spread.KindKalman
		reasons = append(reasons, fmt.Sprintf("high correlation variance (%.3f) indicates regime instability", m.CorrelationStability))
	}

	if m.HurstExponent < s.cfg.MeanRevertingHurst && decision == spread.KindStatic {
		reasons = append(reasons, fmt.Sprintf("strong mean reversion (hurst=%.3f) favors a static hedge ratio", m.HurstExponent))
	}

	if len(reasons) == 0 {
		if m.OverallScore > s.cfg.MinOverallScore {
			reasons = append(reasons, fmt.Sprintf("high quality score (%.1f) suggests a stable relationship", m.OverallScore))
		} else {
			decision = spread.KindKalman
			reasons = append(reasons, fmt.Sprintf("low quality score (%.1f) suggests an adaptive hedge ratio", m.OverallScore))
		}
	}

	return Decision{Estimator: decision, Reasons: reasons, Metrics: m}
}

// SelectForPair scores the static OLS spread of pair and selects an estimator
func (s *Selector) SelectForPair(pair market.Pair) (Decision, error) {
	est, err := spread.NewStaticOLS().Estimate(pair)
	if err != nil {
		return Decision{}, fmt.Errorf("regime selection for %s: %w", pair.Name(), err)
	}

	m, err := s.scorer.Score(est.Spread, pair.First.Values(), pair.Second.Values())
	if err != nil {
		return Decision{}, fmt.Errorf("regime selection for %s: %w", pair.Name(), err)
	}

	d := s.Select(m)
	s.logger.Info().
		Str("pair", pair.Name()).
		Str("estimator", string(d.Estimator)).
		Float64("half_life", m.HalfLife).
		Float64("hurst", m.HurstExponent).
		Float64("corr_stability", m.CorrelationStability).
		Float64("overall_score", m.OverallScore).
		Strs("reasons", d.Reasons).
		Msg("estimator selected")
	return d, nil
}
