package discovery

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for the pairs evaluated counter
const (
	OutcomeAccepted         = "accepted"
	OutcomeLowCorrelation   = "low_correlation"
	OutcomeNotCointegrated  = "not_cointegrated"
	OutcomeNumericalFailure = "numerical_failure"
)

// Metrics holds the screener's Prometheus collectors
type Metrics struct {
	PairsEvaluated *prometheus.CounterVec
	ScreenDuration prometheus.Histogram
	Screens        prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg (nil skips
// registration). Collectors already present on reg are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PairsEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairs_screener_pairs_evaluated_total",
				Help: "Total number of candidate pairs evaluated, by outcome",
			},
			[]string{"outcome"},
		),
		ScreenDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pairs_screener_duration_seconds",
				Help:    "Duration of a full universe screen in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		Screens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pairs_screener_runs_total",
				Help: "Total number of universe screens run",
			},
		),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.PairsEvaluated, err = register(reg, m.PairsEvaluated); err != nil {
		return nil, err
	}
	if m.ScreenDuration, err = register(reg, m.ScreenDuration); err != nil {
		return nil, err
	}
	if m.Screens, err = register(reg, m.Screens); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
