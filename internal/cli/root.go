package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/config"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/logging"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-01-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.ResultStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	resultStore, err := openStore(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to open result store, falling back to memory")
		resultStore = store.NewMemoryStore()
	}
	app.Store = resultStore

	rootCmd := &cobra.Command{
		Use:   "investd",
		Short: "Multi-agent stock backtesting CLI",
		Long: `investd simulates a team of analyst agents trading a single US ticker.

Four agents (technical, fundamental, sentiment, valuation) score each trading
date independently; a risk manager aggregates their signals into one sized
action and a portfolio manager applies it. The full decision trail of every
run is stored and queryable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/investd)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addBacktestCommands(rootCmd, app)
	addRunCommands(rootCmd, app)

	return rootCmd
}

// openStore creates the configured result store backend.
func openStore(cfg *config.Config) (store.ResultStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.Path)
	case "", "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("investd v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			cfg := app.Config
			output.Bold("Engine")
			output.Printf("  agent_timeout:                 %s\n", cfg.Engine.AgentTimeout)
			output.Printf("  max_consecutive_data_failures: %d\n", cfg.Engine.MaxConsecutiveDataFailures)
			output.Printf("  lookback_days:                 %d\n", cfg.Engine.LookbackDays)
			output.Bold("Risk")
			output.Printf("  max_trade_fraction:    %.2f\n", cfg.Risk.MaxTradeFraction)
			output.Printf("  max_position_fraction: %.2f\n", cfg.Risk.MaxPositionFraction)
			output.Printf("  tie_priority:          %v\n", cfg.Risk.TiePriority)
			output.Bold("Store")
			output.Printf("  driver: %s\n", cfg.Store.Driver)
			output.Printf("  path:   %s\n", cfg.Store.Path)
			output.Bold("Logging")
			output.Printf("  level: %s\n", cfg.Logging.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			configDir, _ := cmd.Flags().GetString("config")
			if configDir == "" {
				configDir = config.DefaultConfigDir()
			}
			output.Println(configDir)
		},
	})

	return cmd
}
