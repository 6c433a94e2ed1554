package spread

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

func makePair(t *testing.T, y, x []float64) market.Pair {
	t.Helper()
	ts := make([]time.Time, len(y))
	start := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	for i := range ts {
		ts[i] = start.AddDate(0, 0, i)
	}
	s1, err := market.NewPriceSeries("Y", ts, y)
	require.NoError(t, err)
	s2, err := market.NewPriceSeries("X", ts, x)
	require.NoError(t, err)
	p, err := market.NewPair(s1, s2)
	require.NoError(t, err)
	return p
}

func walk(rng *rand.Rand, n int, start, scale float64) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		v += rng.NormFloat64() * scale
		out[i] = v
	}
	return out
}

func TestStaticOLS(t *testing.T) {
	x := []float64{10, 11, 13, 12, 15, 14}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 2*x[i] + 1
	}

	est, err := NewStaticOLS().Estimate(makePair(t, y, x))
	require.NoError(t, err)
	assert.Equal(t, KindStatic, est.Kind)
	assert.InDelta(t, 2.0, est.HedgeRatio(), 1e-9)
	assert.InDelta(t, 2.0, est.MeanHedgeRatio(), 1e-9)
	for i, s := range est.Spread {
		// intercept is not removed from a static spread
		assert.InDelta(t, 1.0, s, 1e-9, "index %d", i)
	}

	_, err = NewStaticOLS().EstimateSeries([]float64{1, 2, 3}, []float64{5, 5, 5})
	assert.ErrorIs(t, err, stats.ErrDegenerateInput)
}

func TestKalmanConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  KalmanConfig
		ok   bool
	}{
		{name: "default", cfg: DefaultKalmanConfig(), ok: true},
		{name: "zero R", cfg: KalmanConfig{Delta: 1e-5, R: 0}},
		{name: "negative R", cfg: KalmanConfig{Delta: 1e-5, R: -1}},
		{name: "NaN R", cfg: KalmanConfig{Delta: 1e-5, R: math.NaN()}},
		{name: "zero delta", cfg: KalmanConfig{Delta: 0, R: 1e-3}},
		{name: "delta one", cfg: KalmanConfig{Delta: 1, R: 1e-3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKalmanOnline(tt.cfg)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, stats.ErrInvalidInput)
		})
	}
}

func TestKalmanFilter_FirstStep(t *testing.T) {
	cfg := DefaultKalmanConfig()
	f, err := NewKalmanFilter(cfg)
	require.NoError(t, err)

	q := cfg.Delta / (1 - cfg.Delta)
	s := q*5 + cfg.R // H P H^T + R with H = [2, 1], P = qI

	next, innov := f.Step(KalmanState{}, 2, 4)
	assert.InDelta(t, 4.0, innov.Residual, 1e-15)
	assert.InDelta(t, s, innov.Variance, 1e-15)
	assert.InDelta(t, 2*q/s*4, next.Beta(), 1e-12)
	assert.InDelta(t, q/s*4, next.Alpha(), 1e-12)
	assert.InDelta(t, q-4*q*q/s, next.Cov[0][0], 1e-15)
	assert.InDelta(t, -2*q*q/s, next.Cov[0][1], 1e-15)
	assert.InDelta(t, q-q*q/s, next.Cov[1][1], 1e-15)
}

func TestKalmanFilter_CovarianceStaysPSD(t *testing.T) {
	f, err := NewKalmanFilter(DefaultKalmanConfig())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := 50 + rng.Intn(250)
		x := walk(rng, n, 20+rng.Float64()*200, 1+rng.Float64()*3)
		y := walk(rng, n, 20+rng.Float64()*200, 1+rng.Float64()*3)

		var state KalmanState
		for i := 0; i < n; i++ {
			state, _ = f.Step(state, x[i], y[i])

			c := state.Cov
			require.Equal(t, c[0][1], c[1][0], "trial %d step %d: covariance not symmetric", trial, i)

			var eig mat.EigenSym
			ok := eig.Factorize(mat.NewSymDense(2, []float64{c[0][0], c[0][1], c[1][0], c[1][1]}), false)
			require.True(t, ok)
			vals := eig.Values(nil)
			tol := 1e-12 * math.Max(1, math.Abs(vals[1]))
			require.GreaterOrEqual(t, vals[0], -tol, "trial %d step %d: negative eigenvalue", trial, i)
		}
	}
}

func TestKalmanOnline_TracksHedgeRatio(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 500
	x := walk(rng, n, 100, 0.5)
	y := make([]float64, n)
	for i := range x {
		y[i] = 1.5*x[i] + 3 + rng.NormFloat64()*0.1
	}

	k, err := NewKalmanOnline(DefaultKalmanConfig())
	require.NoError(t, err)
	est, err := k.Estimate(makePair(t, y, x))
	require.NoError(t, err)

	assert.Equal(t, KindKalman, est.Kind)
	assert.Len(t, est.Spread, n)
	assert.InDelta(t, 1.5, est.HedgeRatio(), 0.1)

	// a fresh run over the same data reproduces the result exactly
	again, err := k.Estimate(makePair(t, y, x))
	require.NoError(t, err)
	assert.Equal(t, est.Spread, again.Spread)
}

func TestKalmanOnline_Errors(t *testing.T) {
	k, err := NewKalmanOnline(DefaultKalmanConfig())
	require.NoError(t, err)

	_, err = k.EstimateSeries([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, stats.ErrInvalidInput)

	_, err = k.EstimateSeries(nil, nil)
	assert.ErrorIs(t, err, stats.ErrInsufficientData)
}

func TestSpreadAnalyzer(t *testing.T) {
	x := []float64{10, 11, 13, 12, 15, 14, 16, 18, 17, 19}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 2*x[i] + 1 + 0.1*float64(i%3)
	}

	sa, err := NewSpreadAnalyzer(NewStaticOLS(), 3)
	require.NoError(t, err)
	a, err := sa.Analyze(makePair(t, y, x))
	require.NoError(t, err)

	assert.Equal(t, "Y/X", a.Pair)
	require.Len(t, a.ZScore, len(x))
	assert.True(t, math.IsNaN(a.ZScore[0]))
	assert.True(t, math.IsNaN(a.ZScore[1]))
	assert.False(t, math.IsNaN(a.ZScore[2]))
	assert.InDelta(t, 2.0, a.Stats.HedgeRatio, 0.05)
	assert.Equal(t, a.Estimate.Spread[len(x)-1], a.Stats.CurrentSpread)
	assert.Equal(t, a.ZScore[len(x)-1], a.Stats.ZScore)

	_, err = NewSpreadAnalyzer(NewStaticOLS(), 1)
	assert.ErrorIs(t, err, stats.ErrInvalidInput)
	_, err = NewSpreadAnalyzer(nil, 30)
	assert.ErrorIs(t, err, stats.ErrInvalidInput)
}
