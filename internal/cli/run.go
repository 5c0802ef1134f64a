package cli

import (
	"github.com/spf13/cobra"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// addRunCommands adds query commands over stored runs. They only return data
// for runs persisted by the configured store backend.
func addRunCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Query stored backtest runs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with its full decision trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			run, err := app.Store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runView(run))
			}
			printRunSummary(output, run)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decision <run-id>",
		Short: "Show the latest decision of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			record, err := app.Store.LatestDecision(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if record == nil {
				output.Dim("No decisions recorded yet.")
				return nil
			}
			if output.IsJSON() {
				return output.JSON(decisionViewOf(*record))
			}
			output.Printf("%s  %s\n", record.Date.Format("2006-01-02"), decisionText(output, record.Decision))
			if record.Reasoning != "" {
				output.Dim("%s", record.Reasoning)
			}
			printSnapshot(output, record.Snapshot)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "signals <run-id>",
		Short: "Show the analyst signals behind the latest decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			set, err := app.Store.LatestSignals(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if set == nil || len(set.Signals) == 0 {
				output.Dim("No signals recorded yet.")
				return nil
			}
			if output.IsJSON() {
				return output.JSON(signalViews(set))
			}
			output.Bold("Signals for %s", set.Date.Format("2006-01-02"))
			for _, s := range set.Signals {
				output.Printf("%-12s %-5s confidence %.2f\n",
					s.AgentName, decisionText(output, s.Decision), s.Confidence)
				if s.Reasoning != "" {
					output.Dim("  %s", s.Reasoning)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "history <run-id>",
		Short: "Show the portfolio value history of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			history, err := app.Store.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				views := make([]snapshotView, 0, len(history))
				for _, s := range history {
					views = append(views, snapshotViewOf(s))
				}
				return output.JSON(views)
			}
			if len(history) == 0 {
				output.Dim("No history recorded yet.")
				return nil
			}
			output.Printf("%-12s %10s %8s %12s %14s\n",
				"DATE", "CASH", "STOCK", "STOCK VALUE", "PORTFOLIO")
			for _, s := range history {
				output.Printf("%-12s %10s %8d %12s %14s\n",
					s.Date.Format("2006-01-02"), s.Cash.StringFixed(2), s.Stock,
					s.StockValue.StringFixed(2), s.PortfolioValue.StringFixed(2))
			}
			return nil
		},
	})

	rootCmd.AddCommand(cmd)
}

func printSnapshot(output *Output, s models.PortfolioSnapshot) {
	output.Printf("cash %s, stock %d, stock value %s, portfolio value %s\n",
		s.Cash.StringFixed(2), s.Stock, s.StockValue.StringFixed(2), s.PortfolioValue.StringFixed(2))
}
