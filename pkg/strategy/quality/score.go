package quality

import (
	"fmt"
	"math"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

// 综合评分权重
const (
	halfLifeWeight    = 0.35
	hurstWeight       = 0.35
	correlationWeight = 0.30
)

// Metrics 配对质量指标
type Metrics struct {
	HalfLife             float64 `json:"half_life"`
	HurstExponent        float64 `json:"hurst_exponent"`
	CorrelationStability float64 `json:"correlation_stability"`
	HalfLifeScore        float64 `json:"half_life_score"`
	HurstScore           float64 `json:"hurst_score"`
	CorrelationScore     float64 `json:"correlation_score"`
	OverallScore         float64 `json:"overall_score"` // 0-100
}

// Config 评分参数
type Config struct {
	HurstMaxLag       int `yaml:"hurst_max_lag"`
	CorrelationWindow int `yaml:"correlation_window"`
}

// DefaultConfig returns max lag 20 and a 60-period correlation window
func DefaultConfig() Config {
	return Config{
		HurstMaxLag:       DefaultHurstMaxLag,
		CorrelationWindow: DefaultCorrelationWindow,
	}
}

// Scorer computes Metrics for a spread and its two legs
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer; zero fields fall back to the defaults
func NewScorer(cfg Config) *Scorer {
	if cfg.HurstMaxLag <= 0 {
		cfg.HurstMaxLag = DefaultHurstMaxLag
	}
	if cfg.CorrelationWindow <= 0 {
		cfg.CorrelationWindow = DefaultCorrelationWindow
	}
	return &Scorer{cfg: cfg}
}

// Score calculates the quality metrics and the weighted 0-100 overall score
func (s *Scorer) Score(spread, series1, series2 []float64) (Metrics, error) {
	if len(series1) != len(series2) {
		return Metrics{}, fmt.Errorf("%w: price series length mismatch (%d vs %d)",
			stats.ErrInvalidInput, len(series1), len(series2))
	}

	cs, err := CorrelationStability(series1, series2, s.cfg.CorrelationWindow)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		HalfLife:             HalfLife(spread),
		HurstExponent:        HurstExponent(spread, s.cfg.HurstMaxLag),
		CorrelationStability: cs,
	}
	m.HalfLifeScore = HalfLifeScore(m.HalfLife)
	m.HurstScore = HurstScore(m.HurstExponent)
	m.CorrelationScore = CorrelationScore(m.CorrelationStability)
	m.OverallScore = OverallScore(m.HalfLifeScore, m.HurstScore, m.CorrelationScore)
	return m, nil
}

// HalfLifeScore: 10-40 天最佳
func HalfLifeScore(hl float64) float64 {
	switch {
	case math.IsNaN(hl):
		return 0
	case hl < 10:
		return 50 // 过快, 可能是噪声
	case hl <= 40:
		return 100
	case hl <= 80:
		return 70 - (hl - 40)
	default:
		return math.Max(0, 30-(hl-80)/10)
	}
}

// HurstScore: 越低越好 (均值回归)
func HurstScore(h float64) float64 {
	switch {
	case h < 0.4:
		return 100
	case h < 0.5:
		return 70
	case h < 0.6:
		return 40
	default:
		return 0
	}
}

// CorrelationScore: 滚动相关系数的波动越小越好
func CorrelationScore(cs float64) float64 {
	switch {
	case math.IsNaN(cs):
		return 0
	case cs < 0.05:
		return 100
	case cs < 0.10:
		return 80
	case cs < 0.15:
		return 50
	default:
		return math.Max(0, 50-(cs-0.15)*200)
	}
}

// OverallScore 加权综合评分
func OverallScore(hlScore, hurstScore, corrScore float64) float64 {
	return hlScore*halfLifeWeight + hurstScore*hurstWeight + corrScore*correlationWeight
}
