// Package config provides configuration management for the investment agent system.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Risk    RiskConfig    `mapstructure:"risk"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig holds backtest engine policy configuration.
type EngineConfig struct {
	// AgentTimeout bounds a single agent evaluation; a timed-out agent is
	// treated as a soft failure.
	AgentTimeout time.Duration `mapstructure:"agent_timeout"`
	// MaxConsecutiveDataFailures escalates the run to Failed once this many
	// trading dates in a row could not be fetched.
	MaxConsecutiveDataFailures int `mapstructure:"max_consecutive_data_failures"`
	// LookbackDays is the size of the price window handed to the agents.
	LookbackDays int `mapstructure:"lookback_days"`
}

// RiskConfig holds risk management configuration.
type RiskConfig struct {
	// MaxTradeFraction caps a single trade at this fraction of portfolio value.
	MaxTradeFraction float64 `mapstructure:"max_trade_fraction"`
	// MaxPositionFraction caps the stock position at this fraction of portfolio value.
	MaxPositionFraction float64 `mapstructure:"max_position_fraction"`
	// TiePriority breaks weighted-vote ties; earlier agents win. This is a
	// policy choice, not domain truth.
	TiePriority []string `mapstructure:"tie_priority"`
}

// StoreConfig holds result store configuration.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "memory" or "sqlite"
	Path   string `mapstructure:"path"`   // sqlite database path
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
	Path    string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/investd"
	}
	return filepath.Join(home, ".config", "investd")
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			AgentTimeout:               5 * time.Second,
			MaxConsecutiveDataFailures: 3,
			LookbackDays:               180,
		},
		Risk: RiskConfig{
			MaxTradeFraction:    0.5,
			MaxPositionFraction: 1.0,
			TiePriority:         []string{"fundamental", "valuation", "technical", "sentiment"},
		},
		Store: StoreConfig{
			Driver: "memory",
			Path:   filepath.Join(DefaultConfigDir(), "investd.db"),
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    false,
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	defaults := Default()
	v.SetDefault("engine.agent_timeout", defaults.Engine.AgentTimeout)
	v.SetDefault("engine.max_consecutive_data_failures", defaults.Engine.MaxConsecutiveDataFailures)
	v.SetDefault("engine.lookback_days", defaults.Engine.LookbackDays)
	v.SetDefault("risk.max_trade_fraction", defaults.Risk.MaxTradeFraction)
	v.SetDefault("risk.max_position_fraction", defaults.Risk.MaxPositionFraction)
	v.SetDefault("risk.tie_priority", defaults.Risk.TiePriority)
	v.SetDefault("store.driver", defaults.Store.Driver)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.console", defaults.Logging.Console)
	v.SetDefault("logging.file", defaults.Logging.File)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		// First run: write a template so the defaults are discoverable.
		if werr := writeTemplate(configDir); werr != nil {
			return nil, fmt.Errorf("writing config template: %w", werr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INVESTD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INVESTD_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("INVESTD_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.AgentTimeout <= 0 {
		return fmt.Errorf("engine.agent_timeout must be positive")
	}
	if c.Engine.MaxConsecutiveDataFailures < 1 {
		return fmt.Errorf("engine.max_consecutive_data_failures must be at least 1")
	}
	if c.Engine.LookbackDays < 1 {
		return fmt.Errorf("engine.lookback_days must be at least 1")
	}
	if c.Risk.MaxTradeFraction <= 0 || c.Risk.MaxTradeFraction > 1 {
		return fmt.Errorf("risk.max_trade_fraction must be in (0, 1]")
	}
	if c.Risk.MaxPositionFraction <= 0 || c.Risk.MaxPositionFraction > 1 {
		return fmt.Errorf("risk.max_position_fraction must be in (0, 1]")
	}
	if c.Store.Driver != "memory" && c.Store.Driver != "sqlite" {
		return fmt.Errorf("store.driver must be 'memory' or 'sqlite', got %q", c.Store.Driver)
	}
	return nil
}
