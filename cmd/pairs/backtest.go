package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/backtest"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/experiment"
)

func newBacktestCmd() *cobra.Command {
	var (
		mode   string
		name   string
		window int
		entry  float64
		exit   float64
	)

	cmd := &cobra.Command{
		Use:   "backtest TICKER1 TICKER2",
		Short: "Run a z-score pairs strategy on one pair",
		Long: `Estimates the hedge ratio (static OLS, Kalman, or chosen by the regime
selector), z-scores the spread, runs the entry/exit state machine and reports
the backtest returns.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mode") {
				cfg.Experiment.Mode = mode
			}
			if cmd.Flags().Changed("window") {
				cfg.Experiment.ZScoreWindow = window
			}
			if cmd.Flags().Changed("entry") {
				cfg.Signal.EntryThreshold = entry
			}
			if cmd.Flags().Changed("exit") {
				cfg.Signal.ExitThreshold = exit
			}
			if err := cfg.Validate(); err != nil {
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

			runner, err := experiment.NewRunner(cfg.ExperimentConfig(), log.Logger)
			if err != nil {
				return err
			}
			if name == "" {
				name = pair.Name() + "_" + cfg.Experiment.Mode
			}
			res, err := runner.Run(name, pair)
			if err != nil {
				return err
			}

			backtest.WriteSummary(os.Stdout, name+" ("+string(res.Estimator)+")", res.Statistics)

			pub, closePub, err := connectPublisher(cfg)
			if err != nil {
				return err
			}
			defer closePub()
			if pub != nil {
				if err := pub.PublishExperiment(res); err != nil {
					return err
				}
				log.Info().Str("component", "main").Str("subject", pub.ExperimentSubject(res.Pair)).
					Msg("experiment published")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "static", "Hedge ratio mode (static|kalman|adaptive)")
	cmd.Flags().StringVar(&name, "name", "", "Experiment name (defaults to PAIR_MODE)")
	cmd.Flags().IntVar(&window, "window", 30, "Rolling z-score window")
	cmd.Flags().Float64Var(&entry, "entry", 2.0, "Entry |z| threshold")
	cmd.Flags().Float64Var(&exit, "exit", 0.0, "Exit threshold")
	return cmd
}
