package main

import (
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/discovery"
)

func newDiscoverCmd() *cobra.Command {
	var (
		universe string
		pValue   float64
		minCorr  float64
		workers  int
		topN     int
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Screen the price panel for cointegrated pairs",
		Long: `Screens every pair of the universe: correlation prune first, then the
Engle-Granger test. Accepted pairs are ranked by p-value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if universe != "" {
				cfg.Data.Universe = strings.Split(universe, ",")
			}
			if cmd.Flags().Changed("p-value") {
				cfg.Discovery.PValueThreshold = pValue
			}
			if cmd.Flags().Changed("min-corr") {
				cfg.Discovery.CorrelationThreshold = minCorr
			}
			if cmd.Flags().Changed("workers") {
				cfg.Discovery.Workers = workers
			}
			if cmd.Flags().Changed("top") {
				cfg.Experiment.TopN = topN
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			panel, err := loadPanel(cfg)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			screener, err := discovery.NewScreener(cfg.Discovery, reg, log.Logger)
			if err != nil {
				return err
			}

			var tickers []string
			if len(cfg.Data.Universe) > 0 {
				tickers = cfg.Data.Universe
			}
			candidates, err := screener.Screen(cmd.Context(), panel, tickers)
			if err != nil {
				return err
			}

			if err := discovery.WriteTopN(os.Stdout, candidates, cfg.GetTopN()); err != nil {
				return err
			}
			logMetricsSummary(reg)

			pub, closePub, err := connectPublisher(cfg)
			if err != nil {
				return err
			}
			defer closePub()
			if pub != nil {
				if err := pub.PublishCandidates(candidates); err != nil {
					return err
				}
				log.Info().Str("component", "main").Str("subject", pub.DiscoverySubject()).
					Int("candidates", len(candidates)).Msg("discovery published")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&universe, "universe", "", "Comma-separated tickers (overrides data.universe)")
	cmd.Flags().Float64Var(&pValue, "p-value", 0.05, "Maximum cointegration p-value")
	cmd.Flags().Float64Var(&minCorr, "min-corr", 0.7, "Minimum price correlation")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel pair evaluations (0 = number of CPUs)")
	cmd.Flags().IntVar(&topN, "top", 10, "Number of candidates to print")
	return cmd
}

// logMetricsSummary gathers the screener registry and logs every sample
func logMetricsSummary(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		log.Warn().Err(err).Msg("failed to gather metrics")
		return
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			ev := log.Info().Str("component", "metrics").Str("metric", mf.GetName())
			for _, lp := range m.GetLabel() {
				ev = ev.Str(lp.GetName(), lp.GetValue())
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				ev = ev.Float64("value", m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				ev = ev.Float64("value", m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				ev = ev.Uint64("count", h.GetSampleCount()).Float64("sum", h.GetSampleSum())
			}
			ev.Msg("screener metric")
		}
	}
}
