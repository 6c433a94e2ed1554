// Package config loads the pairs engine configuration from YAML
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/discovery"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/experiment"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/quality"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/regime"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/signal"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/spread"
)

// DefaultSubjectPrefix NATS subject 前缀
const DefaultSubjectPrefix = "pairs"

// Config represents the full engine configuration
type Config struct {
	Data       DataSettings        `yaml:"data"`
	Discovery  discovery.Config    `yaml:"discovery"`
	Kalman     spread.KalmanConfig `yaml:"kalman"`
	Quality    quality.Config      `yaml:"quality"`
	Regime     regime.Config       `yaml:"regime"`
	Signal     signal.Config       `yaml:"signal"`
	Experiment ExperimentSettings  `yaml:"experiment"`
	Publish    PublishSettings     `yaml:"publish"`
}

// DataSettings contains price data settings
type DataSettings struct {
	PricesFile      string   `yaml:"prices_file"` // wide CSV: date,T1,T2,...
	Universe        []string `yaml:"universe"`    // empty means every column
	MaxMissingRatio float64  `yaml:"max_missing_ratio"`
}

// ExperimentSettings contains single-pair experiment settings
type ExperimentSettings struct {
	Mode         string `yaml:"mode"` // static, kalman, adaptive
	ZScoreWindow int    `yaml:"zscore_window"`
	TopN         int    `yaml:"top_n"` // discovery report rows
}

// PublishSettings contains NATS publishing settings
type PublishSettings struct {
	NATSAddr      string `yaml:"nats_addr"` // empty disables publishing
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Data: DataSettings{
			MaxMissingRatio: market.DefaultMaxMissingRatio,
		},
		Discovery: discovery.DefaultConfig(),
		Kalman:    spread.DefaultKalmanConfig(),
		Quality:   quality.DefaultConfig(),
		Regime:    regime.DefaultConfig(),
		Signal:    signal.DefaultConfig(),
		Experiment: ExperimentSettings{
			Mode:         string(experiment.ModeStatic),
			ZScoreWindow: spread.DefaultZScoreWindow,
			TopN:         10,
		},
		Publish: PublishSettings{
			SubjectPrefix: DefaultSubjectPrefix,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of Default()
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default() and validates the result
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Data.MaxMissingRatio < 0 || c.Data.MaxMissingRatio >= 1 {
		return fmt.Errorf("data.max_missing_ratio must be in [0, 1), got %g", c.Data.MaxMissingRatio)
	}

	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if err := c.Kalman.Validate(); err != nil {
		return fmt.Errorf("kalman: %w", err)
	}
	if err := c.Signal.Validate(); err != nil {
		return fmt.Errorf("signal: %w", err)
	}

	if c.Quality.HurstMaxLag != 0 && c.Quality.HurstMaxLag < 4 {
		return fmt.Errorf("quality.hurst_max_lag must be >= 4, got %d", c.Quality.HurstMaxLag)
	}
	if c.Quality.CorrelationWindow != 0 && c.Quality.CorrelationWindow < 2 {
		return fmt.Errorf("quality.correlation_window must be >= 2, got %d", c.Quality.CorrelationWindow)
	}

	if c.Regime.MaxCorrelationStability < 0 {
		return fmt.Errorf("regime.max_correlation_stability must be >= 0")
	}
	if c.Regime.MinOverallScore < 0 || c.Regime.MinOverallScore > 100 {
		return fmt.Errorf("regime.min_overall_score must be in [0, 100], got %g", c.Regime.MinOverallScore)
	}

	if _, err := experiment.ParseMode(c.Experiment.Mode); err != nil {
		return fmt.Errorf("experiment: %w", err)
	}
	if c.Experiment.ZScoreWindow < 2 {
		return fmt.Errorf("experiment.zscore_window must be >= 2, got %d", c.Experiment.ZScoreWindow)
	}

	return nil
}

// CleanOptions returns the price panel cleaning options
func (c *Config) CleanOptions() market.CleanOptions {
	return market.CleanOptions{MaxMissingRatio: c.Data.MaxMissingRatio}
}

// ExperimentConfig assembles the experiment runner configuration
func (c *Config) ExperimentConfig() experiment.Config {
	return experiment.Config{
		Mode:            experiment.Mode(c.Experiment.Mode),
		ZScoreWindow:    c.Experiment.ZScoreWindow,
		PValueThreshold: c.Discovery.PValueThreshold,
		Kalman:          c.Kalman,
		Quality:         c.Quality,
		Regime:          c.Regime,
		Signal:          c.Signal,
	}
}

// GetTopN returns the number of discovery rows to report
func (c *Config) GetTopN() int {
	if c.Experiment.TopN <= 0 {
		return 10 // Default top 10
	}
	return c.Experiment.TopN
}

// GetSubjectPrefix returns the NATS subject prefix
func (c *Config) GetSubjectPrefix() string {
	if c.Publish.SubjectPrefix == "" {
		return DefaultSubjectPrefix
	}
	return c.Publish.SubjectPrefix
}
