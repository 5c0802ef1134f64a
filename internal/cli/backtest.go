package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/agents"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/engine"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/logging"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/marketdata"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/risk"
)

// addBacktestCommands adds the backtest command.
func addBacktestCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newBacktestCmd(app))
}

func newBacktestCmd(app *App) *cobra.Command {
	var (
		ticker        string
		startStr      string
		endStr        string
		capitalStr    string
		numOfNews     int
		showReasoning bool
		seed          int64
		basePrice     float64
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a backtest over deterministic replay data",
		Long: `Run a multi-agent backtest for one ticker over a date range.

Market data is generated deterministically from the seed, so the same
invocation always produces the same decisions.`,
		Example: `  investd backtest --ticker AAPL --start 2026-01-05 --end 2026-03-31
  investd backtest --ticker MSFT --capital 250000 --seed 7 --show-reasoning`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			params := models.TradingParameters{
				Ticker:        ticker,
				NumOfNews:     numOfNews,
				ShowReasoning: showReasoning,
			}
			var err error
			if params.StartDate, params.EndDate, err = parseDateRange(startStr, endStr); err != nil {
				return err
			}
			if capitalStr != "" {
				if params.InitialCapital, err = decimal.NewFromString(capitalStr); err != nil {
					return fmt.Errorf("invalid --capital %q: %w", capitalStr, err)
				}
			}

			provider := buildReplayProvider(ticker, params.StartDate, params.EndDate,
				basePrice, seed, app.Config.Engine.LookbackDays)

			eng := engine.NewEngine(provider, agents.DefaultAgents(),
				risk.NewManager(risk.LimitsFromConfig(app.Config.Risk)),
				app.Store, app.Config.Engine)
			runner := engine.NewRunner(eng)

			ctx := logging.WithLogger(cmd.Context(), app.Logger)
			runID, err := runner.Start(ctx, params)
			if err != nil {
				return err
			}
			runner.Wait(runID)

			run, err := runner.GetRun(ctx, runID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runView(run))
			}
			printRunSummary(output, run)
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker symbol to backtest (required)")
	cmd.Flags().StringVar(&startStr, "start", "", "start date YYYY-MM-DD (default: end - 90 days)")
	cmd.Flags().StringVar(&endStr, "end", "", "end date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&capitalStr, "capital", "", "initial capital (default: 100000)")
	cmd.Flags().IntVar(&numOfNews, "news", engine.DefaultNumOfNews, "number of news items per date (0 disables news, max 100)")
	cmd.Flags().BoolVar(&showReasoning, "show-reasoning", false, "retain agent reasoning text")
	cmd.Flags().Int64Var(&seed, "seed", 42, "seed for the replay data generator")
	cmd.Flags().Float64Var(&basePrice, "base-price", 100, "starting price for the replay data generator")
	cmd.MarkFlagRequired("ticker")

	return cmd
}

// parseDateRange parses the optional --start/--end flags. Zero values are
// filled in by the runner's defaults.
func parseDateRange(startStr, endStr string) (start, end time.Time, err error) {
	if startStr != "" {
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			return start, end, fmt.Errorf("invalid --start %q: %w", startStr, err)
		}
	}
	if endStr != "" {
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			return start, end, fmt.Errorf("invalid --end %q: %w", endStr, err)
		}
	}
	return start, end, nil
}

// buildReplayProvider assembles a static provider with deterministic candles,
// a small rotating news feed and fixed fundamentals, so backtests are fully
// reproducible from the seed.
func buildReplayProvider(ticker string, start, end time.Time, basePrice float64, seed int64, lookbackDays int) *marketdata.StaticProvider {
	if end.IsZero() {
		now := time.Now()
		end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -engine.DefaultBacktestDays)
	}

	provider := marketdata.NewStaticProvider()
	provider.SetCandles(ticker, marketdata.GenerateCandles(
		start.AddDate(0, 0, -lookbackDays-7), end, basePrice, seed))
	provider.SetNews(ticker, marketdata.GenerateNews(ticker, start, end, seed))
	provider.SetFundamentals(ticker, marketdata.GenerateFundamentals(basePrice, seed, end))
	return provider
}

// printRunSummary renders a completed (or partial) run as a table.
func printRunSummary(output *Output, run *models.BacktestRun) {
	output.Bold("Backtest %s", run.ID)
	output.Printf("Ticker:   %s\n", run.Params.Ticker)
	output.Printf("Period:   %s to %s\n",
		run.Params.StartDate.Format("2006-01-02"), run.Params.EndDate.Format("2006-01-02"))
	output.Printf("Capital:  %s\n", run.Params.InitialCapital.String())
	output.Printf("Status:   %s\n", statusText(output, run.Status))
	if run.Error != "" {
		output.Error("Error:    %s", run.Error)
	}
	output.Println()

	if len(run.Decisions) == 0 {
		output.Dim("No trading dates processed.")
		return
	}

	output.Printf("%-12s %-6s %10s %8s %12s %14s\n",
		"DATE", "ACTION", "CASH", "STOCK", "STOCK VALUE", "PORTFOLIO")
	for _, d := range run.Decisions {
		output.Printf("%-12s %-6s %10s %8d %12s %14s\n",
			d.Date.Format("2006-01-02"), decisionText(output, d.Decision),
			d.Snapshot.Cash.StringFixed(2), d.Snapshot.Stock,
			d.Snapshot.StockValue.StringFixed(2), d.Snapshot.PortfolioValue.StringFixed(2))
	}

	last := run.Decisions[len(run.Decisions)-1]
	pnl := last.Snapshot.PortfolioValue.Sub(run.Params.InitialCapital)
	output.Println()
	if pnl.IsNegative() {
		output.Error("P&L: %s", pnl.StringFixed(2))
	} else {
		output.Success("P&L: +%s", pnl.StringFixed(2))
	}
}
