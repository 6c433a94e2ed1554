package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/quality"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/regime"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze TICKER1 TICKER2",
		Short: "Score a pair's regime and choose a hedge-ratio estimator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			panel, err := loadPanel(cfg)
			if err != nil {
				return err
			}
			pair, err := panel.Pair(args[0], args[1])
			if err != nil {
				return err
			}

			selector := regime.NewSelector(cfg.Regime, quality.NewScorer(cfg.Quality), log.Logger)
			d, err := selector.SelectForPair(pair)
			if err != nil {
				return err
			}

			w := os.Stdout
			m := d.Metrics
			fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 60))
			fmt.Fprintf(w, "REGIME ANALYSIS: %s\n", pair.Name())
			fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
			fmt.Fprintf(w, "  Half-Life:             %.1f days (score %.0f)\n", m.HalfLife, m.HalfLifeScore)
			fmt.Fprintf(w, "  Hurst Exponent:        %.3f (score %.0f)\n", m.HurstExponent, m.HurstScore)
			fmt.Fprintf(w, "  Correlation Stability: %.3f (score %.0f)\n", m.CorrelationStability, m.CorrelationScore)
			fmt.Fprintf(w, "  Overall Quality Score: %.1f/100\n", m.OverallScore)
			fmt.Fprintf(w, "\nDecision: %s\n", strings.ToUpper(string(d.Estimator)))
			for _, r := range d.Reasons {
				fmt.Fprintf(w, "  - %s\n", r)
			}
			fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
			return nil
		},
	}
}
