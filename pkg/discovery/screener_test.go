package discovery

import (
	"bytes"
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/spread"
)

func buildPanel(t *testing.T, n int, seed int64) *market.Panel {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	index := make([]time.Time, n)
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := map[string][]float64{
		"A": make([]float64, n), "B": make([]float64, n), "C": make([]float64, n),
		"D": make([]float64, n), "E": make([]float64, n),
	}
	a, d, nb, nc := 100.0, 50.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		index[i] = start.AddDate(0, 0, i)
		a += rng.NormFloat64()
		d += rng.NormFloat64()
		nb = 0.5*nb + rng.NormFloat64()*0.5
		nc = 0.3*nc + rng.NormFloat64()*0.5
		cols["A"][i] = a
		cols["B"][i] = 1.5*a + 2 + nb
		cols["C"][i] = 0.8*a + 5 + nc
		cols["D"][i] = d
		cols["E"][i] = 42 // flat, correlation undefined
	}

	p, err := market.NewPanel(index, []string{"A", "B", "C", "D", "E"}, cols)
	require.NoError(t, err)
	return p
}

func newScreener(t *testing.T, workers int, reg prometheus.Registerer) *Screener {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = workers
	s, err := NewScreener(cfg, reg, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestScreen_FindsCointegratedPairs(t *testing.T) {
	panel := buildPanel(t, 500, 7)
	reg := prometheus.NewRegistry()
	s := newScreener(t, 4, reg)

	got, err := s.Screen(context.Background(), panel, nil)
	require.NoError(t, err)

	names := make([]string, len(got))
	for i, c := range got {
		names[i] = c.Name()
		assert.LessOrEqual(t, c.PValue, 0.05)
		assert.GreaterOrEqual(t, c.Correlation, 0.7)
		assert.NotEqual(t, "E", c.Ticker1)
		assert.NotEqual(t, "E", c.Ticker2)
	}
	assert.Contains(t, names, "A/B")
	assert.Contains(t, names, "A/C")
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].PValue, got[i].PValue, "sorted by p-value")
	}

	// the hedge ratio regresses ticker1 on ticker2: B = 1.5A gives A ≈ B/1.5
	a, err := panel.Series("A")
	require.NoError(t, err)
	for _, c := range got {
		switch c.Name() {
		case "A/B":
			assert.InDelta(t, 1/1.5, c.HedgeRatio, 0.02)
			b, err := panel.Series("B")
			require.NoError(t, err)
			want, err := spread.HedgeRatio(a.Values(), b.Values())
			require.NoError(t, err)
			assert.InDelta(t, want, c.HedgeRatio, 1e-12)
		case "A/C":
			assert.InDelta(t, 1/0.8, c.HedgeRatio, 0.1)
		}
	}

	// every one of the 10 pairs is counted once; the 4 pairs with E fail numerically
	total := 0.0
	for _, o := range []string{OutcomeAccepted, OutcomeLowCorrelation, OutcomeNotCointegrated, OutcomeNumericalFailure} {
		total += testutil.ToFloat64(s.metrics.PairsEvaluated.WithLabelValues(o))
	}
	assert.Equal(t, 10.0, total)
	assert.Equal(t, 4.0, testutil.ToFloat64(s.metrics.PairsEvaluated.WithLabelValues(OutcomeNumericalFailure)))
	assert.Equal(t, float64(len(got)), testutil.ToFloat64(s.metrics.PairsEvaluated.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Screens))
}

func TestScreen_ParallelMatchesSequential(t *testing.T) {
	panel := buildPanel(t, 300, 11)

	seq, err := newScreener(t, 1, nil).Screen(context.Background(), panel, nil)
	require.NoError(t, err)
	par, err := newScreener(t, 8, nil).Screen(context.Background(), panel, nil)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestScreen_TiesKeepEnumerationOrder(t *testing.T) {
	n := 50
	index := make([]time.Time, n)
	base := make([]float64, n)
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(1))
	v := 10.0
	for i := range base {
		index[i] = start.AddDate(0, 0, i)
		v += rng.NormFloat64()
		base[i] = v
	}
	double := make([]float64, n)
	triple := make([]float64, n)
	for i := range base {
		double[i] = 2 * base[i]
		triple[i] = 3*base[i] + 1
	}
	panel, err := market.NewPanel(index, []string{"X", "Y", "Z"},
		map[string][]float64{"X": base, "Y": double, "Z": triple})
	require.NoError(t, err)

	// exact linear relations are collinear: every pair gets p = 0
	got, err := newScreener(t, 3, nil).Screen(context.Background(), panel, []string{"Z", "X", "Y"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Z/X", got[0].Name())
	assert.Equal(t, "Z/Y", got[1].Name())
	assert.Equal(t, "X/Y", got[2].Name())
	for _, c := range got {
		assert.Equal(t, 0.0, c.PValue)
	}
}

func TestScreen_Universe(t *testing.T) {
	panel := buildPanel(t, 200, 3)
	s := newScreener(t, 2, nil)

	got, err := s.Screen(context.Background(), panel, []string{"B", "MISSING", "A", "B"})
	require.NoError(t, err)
	for _, c := range got {
		assert.Equal(t, "B/A", c.Name())
	}

	got, err = s.Screen(context.Background(), panel, []string{"A"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScreen_Cancelled(t *testing.T) {
	panel := buildPanel(t, 200, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newScreener(t, 2, nil).Screen(ctx, panel, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewScreener(t *testing.T) {
	reg := prometheus.NewRegistry()
	newScreener(t, 1, reg)
	// a second screener on the same registry shares the collectors
	newScreener(t, 1, reg)

	_, err := NewScreener(Config{PValueThreshold: 0, CorrelationThreshold: 0.7}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, stats.ErrInvalidInput)
	_, err = NewScreener(Config{PValueThreshold: 0.05, CorrelationThreshold: 1.5}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, stats.ErrInvalidInput)
}

func TestWriteTopN(t *testing.T) {
	candidates := []PairCandidate{
		{Ticker1: "A", Ticker2: "B", Correlation: 0.95, PValue: 0.001, TStat: -4.2, HedgeRatio: 1.5},
		{Ticker1: "A", Ticker2: "C", Correlation: 0.91, PValue: 0.02, TStat: -3.5, HedgeRatio: 0.8},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTopN(&buf, candidates, 1))
	out := buf.String()
	assert.Contains(t, out, "A/B")
	assert.NotContains(t, out, "A/C")

	buf.Reset()
	require.NoError(t, WriteTopN(&buf, nil, 10))
	assert.Contains(t, buf.String(), "no cointegrated pairs found")
}
