package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/config"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/publish"
)

const (
	appName    = "pairs"
	appVersion = "1.0.0"
)

var (
	configFile string
	pricesFile string
	logLevel   string
	natsAddr   string
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Statistical-arbitrage pairs engine",
		Version: appVersion,
		Long: `Pairs screens a price panel for cointegrated pairs, scores the regime of a
pair, and backtests a z-score strategy with a static or Kalman hedge ratio.

Examples:
  pairs mockdata --output data/prices.csv
  pairs discover --prices data/prices.csv --top 5
  pairs analyze GLD SLV --prices data/prices.csv
  pairs backtest GLD SLV --mode adaptive --config config/pairs.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&pricesFile, "prices", "", "Wide price CSV (overrides data.prices_file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&natsAddr, "nats", "", "NATS address to publish results to (overrides publish.nats_addr)")

	rootCmd.AddCommand(newDiscoverCmd(), newAnalyzeCmd(), newBacktestCmd(), newMockDataCmd())

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

// loadConfig loads the YAML config (or defaults) and applies the global flag overrides
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		log.Info().Str("component", "main").Str("path", configFile).Msg("loading configuration")
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if pricesFile != "" {
		cfg.Data.PricesFile = pricesFile
		log.Debug().Str("component", "main").Str("prices_file", pricesFile).Msg("prices file overridden")
	}
	if natsAddr != "" {
		cfg.Publish.NATSAddr = natsAddr
		log.Debug().Str("component", "main").Str("nats_addr", natsAddr).Msg("NATS address overridden")
	}
	return cfg, nil
}

// loadPanel reads the configured price file
func loadPanel(cfg *config.Config) (*market.Panel, error) {
	if cfg.Data.PricesFile == "" {
		return nil, fmt.Errorf("no price file given: set data.prices_file or pass --prices")
	}
	panel, err := market.LoadPanelFile(cfg.Data.PricesFile, cfg.CleanOptions())
	if err != nil {
		return nil, err
	}
	log.Info().Str("component", "main").Str("path", cfg.Data.PricesFile).
		Int("rows", panel.Len()).Int("tickers", len(panel.Tickers())).Msg("price panel loaded")
	return panel, nil
}

// connectPublisher returns nil when publishing is disabled
func connectPublisher(cfg *config.Config) (*publish.Publisher, func(), error) {
	if cfg.Publish.NATSAddr == "" {
		return nil, func() {}, nil
	}
	return publish.Connect(cfg.Publish.NATSAddr, cfg.GetSubjectPrefix(), log.Logger)
}
