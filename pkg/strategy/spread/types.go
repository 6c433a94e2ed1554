// Package spread provides tools for analyzing price spreads between instruments
package spread

import (
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

// Kind 对冲比率估计方法
type Kind string

const (
	// KindStatic 静态 OLS: spread = price1 - beta * price2
	KindStatic Kind = "static"

	// KindKalman 卡尔曼滤波在线估计: spread = price1 - (beta_t * price2 + alpha_t)
	KindKalman Kind = "kalman"
)

// Estimator turns an aligned pair into a spread and a hedge ratio series.
// Implementations keep no state between calls.
type Estimator interface {
	Kind() Kind
	Estimate(pair market.Pair) (*Estimate, error)
}

// Estimate is the output of one estimator run over one pair
type Estimate struct {
	Kind        Kind
	Spread      []float64
	HedgeRatios []float64 // beta per timestamp, constant for KindStatic
	Intercepts  []float64 // alpha per timestamp
}

// HedgeRatio returns the latest hedge ratio
func (e *Estimate) HedgeRatio() float64 {
	if len(e.HedgeRatios) == 0 {
		return 0
	}
	return e.HedgeRatios[len(e.HedgeRatios)-1]
}

// MeanHedgeRatio returns the average hedge ratio over the run
func (e *Estimate) MeanHedgeRatio() float64 {
	return stats.Mean(e.HedgeRatios)
}

// SpreadStats spread 统计信息
type SpreadStats struct {
	CurrentSpread float64 // 当前 spread 值
	Mean          float64 // Spread 均值
	Std           float64 // Spread 标准差
	ZScore        float64 // Z-Score
	Correlation   float64 // 价格相关系数
	HedgeRatio    float64 // 对冲比率（Beta）
}
