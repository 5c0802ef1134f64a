package cli

import (
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// decisionText colors a decision for terminal output.
func decisionText(output *Output, d models.Decision) string {
	switch d {
	case models.DecisionBuy:
		return output.Green(string(d))
	case models.DecisionSell:
		return output.Red(string(d))
	default:
		return output.Yellow(string(d))
	}
}

// statusText colors a run status for terminal output.
func statusText(output *Output, s models.RunStatus) string {
	switch s {
	case models.StatusCompleted:
		return output.Green(string(s))
	case models.StatusFailed:
		return output.Red(string(s))
	case models.StatusCancelled:
		return output.Yellow(string(s))
	default:
		return string(s)
	}
}

// signalView is the JSON shape for one analyst signal.
type signalView struct {
	AgentName  string             `json:"agent_name"`
	Analysis   string             `json:"analysis,omitempty"`
	Decision   string             `json:"decision"`
	Confidence float64            `json:"confidence"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// snapshotView is the JSON shape for one portfolio snapshot.
type snapshotView struct {
	Timestamp      string `json:"timestamp"`
	PortfolioValue string `json:"portfolio_value"`
	Cash           string `json:"cash"`
	Stock          int64  `json:"stock"`
	StockValue     string `json:"stock_value"`
}

// decisionView is the JSON shape for one decision record.
type decisionView struct {
	Date      string       `json:"date"`
	Decision  string       `json:"decision"`
	Reasoning string       `json:"reasoning,omitempty"`
	Portfolio snapshotView `json:"portfolio"`
}

// runRecordView is the JSON shape for a full run.
type runRecordView struct {
	RunID          string         `json:"run_id"`
	Ticker         string         `json:"ticker"`
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
	InitialCapital string         `json:"initial_capital"`
	Status         string         `json:"status"`
	Error          string         `json:"error,omitempty"`
	Decisions      []decisionView `json:"decisions"`
}

func signalViews(set *models.SignalSet) []signalView {
	if set == nil {
		return nil
	}
	views := make([]signalView, 0, len(set.Signals))
	for _, s := range set.Signals {
		views = append(views, signalView{
			AgentName:  string(s.AgentName),
			Analysis:   s.Reasoning,
			Decision:   string(s.Decision),
			Confidence: s.Confidence,
			Metrics:    s.Metrics,
		})
	}
	return views
}

func snapshotViewOf(s models.PortfolioSnapshot) snapshotView {
	return snapshotView{
		Timestamp:      s.Date.Format("2006-01-02"),
		PortfolioValue: s.PortfolioValue.StringFixed(2),
		Cash:           s.Cash.StringFixed(2),
		Stock:          s.Stock,
		StockValue:     s.StockValue.StringFixed(2),
	}
}

func decisionViewOf(d models.DecisionRecord) decisionView {
	return decisionView{
		Date:      d.Date.Format("2006-01-02"),
		Decision:  string(d.Decision),
		Reasoning: d.Reasoning,
		Portfolio: snapshotViewOf(d.Snapshot),
	}
}

func runView(run *models.BacktestRun) runRecordView {
	view := runRecordView{
		RunID:          run.ID,
		Ticker:         run.Params.Ticker,
		StartDate:      run.Params.StartDate.Format("2006-01-02"),
		EndDate:        run.Params.EndDate.Format("2006-01-02"),
		InitialCapital: run.Params.InitialCapital.StringFixed(2),
		Status:         string(run.Status),
		Error:          run.Error,
	}
	for _, d := range run.Decisions {
		view.Decisions = append(view.Decisions, decisionViewOf(d))
	}
	return view
}
