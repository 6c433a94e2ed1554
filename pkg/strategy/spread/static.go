package spread

import (
	"fmt"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

// StaticOLS fits price1 = beta*price2 + const once over the whole window
type StaticOLS struct{}

// NewStaticOLS creates the static estimator
func NewStaticOLS() StaticOLS {
	return StaticOLS{}
}

// Kind implements Estimator
func (StaticOLS) Kind() Kind {
	return KindStatic
}

// Estimate implements Estimator
func (s StaticOLS) Estimate(pair market.Pair) (*Estimate, error) {
	return s.EstimateSeries(pair.First.Values(), pair.Second.Values())
}

// EstimateSeries fits y on x; the spread is y - beta*x (the intercept is
// reported but not subtracted)
func (StaticOLS) EstimateSeries(y, x []float64) (*Estimate, error) {
	beta, alpha, err := stats.OLSFit(y, x)
	if err != nil {
		return nil, fmt.Errorf("static hedge ratio: %w", err)
	}

	n := len(y)
	est := &Estimate{
		Kind:        KindStatic,
		Spread:      Spread(y, x, beta),
		HedgeRatios: make([]float64, n),
		Intercepts:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		est.HedgeRatios[i] = beta
		est.Intercepts[i] = alpha
	}
	return est, nil
}

// HedgeRatio returns the OLS slope of y on x
func HedgeRatio(y, x []float64) (float64, error) {
	beta, _, err := stats.OLSFit(y, x)
	return beta, err
}

// Spread 计算 spread: price1 - hedgeRatio * price2
func Spread(y, x []float64, hedgeRatio float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - hedgeRatio*x[i]
	}
	return out
}
