package spread

import (
	"fmt"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

// KalmanConfig 卡尔曼滤波参数
type KalmanConfig struct {
	Delta float64 `yaml:"delta"` // 状态漂移速度, Q = delta/(1-delta) * I
	R     float64 `yaml:"r"`     // 观测噪声方差
}

// DefaultKalmanConfig returns delta=1e-5, R=1e-3
func DefaultKalmanConfig() KalmanConfig {
	return KalmanConfig{Delta: 1e-5, R: 1e-3}
}

// Validate checks R > 0 and 0 < Delta < 1
func (c KalmanConfig) Validate() error {
	if !(c.R > 0) {
		return fmt.Errorf("%w: kalman observation variance R must be > 0, got %g", stats.ErrInvalidInput, c.R)
	}
	if !(c.Delta > 0 && c.Delta < 1) {
		return fmt.Errorf("%w: kalman delta must be in (0, 1), got %g", stats.ErrInvalidInput, c.Delta)
	}
	return nil
}

// KalmanState is the filter state for the regression y = beta*x + alpha.
// Mean is [beta, alpha]; Cov is its 2x2 covariance.
type KalmanState struct {
	Mean [2]float64
	Cov  [2][2]float64
}

// Beta 当前对冲比率
func (s KalmanState) Beta() float64 { return s.Mean[0] }

// Alpha 当前截距
func (s KalmanState) Alpha() float64 { return s.Mean[1] }

// Innovation is the one-step prediction error and its variance
type Innovation struct {
	Residual float64
	Variance float64
}

// KalmanFilter holds the immutable noise parameters; the state is passed in
// and returned by Step so independent pairs never share anything.
type KalmanFilter struct {
	q float64
	r float64
}

// NewKalmanFilter validates cfg and builds a filter
func NewKalmanFilter(cfg KalmanConfig) (KalmanFilter, error) {
	if err := cfg.Validate(); err != nil {
		return KalmanFilter{}, err
	}
	return KalmanFilter{q: cfg.Delta / (1 - cfg.Delta), r: cfg.R}, nil
}

// Step runs predict + update for one observation (x, y) and returns the
// posterior state together with the prior innovation.
func (f KalmanFilter) Step(s KalmanState, x, y float64) (KalmanState, Innovation) {
	// predict: random walk on the state, P += Q
	p := s.Cov
	p[0][0] += f.q
	p[1][1] += f.q

	// H = [x, 1]
	pred := s.Mean[0]*x + s.Mean[1]
	resid := y - pred

	// v = P H^T, S = H P H^T + R
	v0 := p[0][0]*x + p[0][1]
	v1 := p[1][0]*x + p[1][1]
	sVar := v0*x + v1 + f.r

	k0, k1 := v0/sVar, v1/sVar

	var next KalmanState
	next.Mean[0] = s.Mean[0] + k0*resid
	next.Mean[1] = s.Mean[1] + k1*resid

	// (I - K H) P written as P - v v^T / S keeps the result symmetric
	off := p[0][1] - v0*v1/sVar
	next.Cov[0][0] = p[0][0] - v0*v0/sVar
	next.Cov[0][1] = off
	next.Cov[1][0] = off
	next.Cov[1][1] = p[1][1] - v1*v1/sVar

	return next, Innovation{Residual: resid, Variance: sVar}
}

// KalmanOnline estimates a time-varying hedge ratio with KalmanFilter.
// Each Estimate call starts from a zero mean and zero covariance.
type KalmanOnline struct {
	filter KalmanFilter
}

// NewKalmanOnline creates the online estimator
func NewKalmanOnline(cfg KalmanConfig) (*KalmanOnline, error) {
	f, err := NewKalmanFilter(cfg)
	if err != nil {
		return nil, err
	}
	return &KalmanOnline{filter: f}, nil
}

// Kind implements Estimator
func (k *KalmanOnline) Kind() Kind {
	return KindKalman
}

// Estimate implements Estimator
func (k *KalmanOnline) Estimate(pair market.Pair) (*Estimate, error) {
	return k.EstimateSeries(pair.First.Values(), pair.Second.Values())
}

// EstimateSeries filters y on x; spread[t] = y[t] - (beta_t*x[t] + alpha_t)
// using the posterior state after observing t.
func (k *KalmanOnline) EstimateSeries(y, x []float64) (*Estimate, error) {
	if len(y) != len(x) {
		return nil, fmt.Errorf("%w: series lengths differ (%d vs %d)", stats.ErrInvalidInput, len(y), len(x))
	}
	if len(y) == 0 {
		return nil, fmt.Errorf("%w: empty series", stats.ErrInsufficientData)
	}

	n := len(y)
	est := &Estimate{
		Kind:        KindKalman,
		Spread:      make([]float64, n),
		HedgeRatios: make([]float64, n),
		Intercepts:  make([]float64, n),
	}

	var state KalmanState
	for t := 0; t < n; t++ {
		state, _ = k.filter.Step(state, x[t], y[t])
		est.HedgeRatios[t] = state.Beta()
		est.Intercepts[t] = state.Alpha()
		est.Spread[t] = y[t] - (state.Beta()*x[t] + state.Alpha())
	}
	return est, nil
}
