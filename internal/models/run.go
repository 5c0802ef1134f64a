package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradingParameters describe one backtest request. Immutable once a run starts.
type TradingParameters struct {
	Ticker         string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	NumOfNews      int
	ShowReasoning  bool
}

// MaxNewsCount bounds how many news items the sentiment agent may receive.
const MaxNewsCount = 100

// Validate checks the parameters before a run is created.
func (p *TradingParameters) Validate() error {
	if p.Ticker == "" {
		return errFieldRequired("ticker")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return errFieldRequired("start_date/end_date")
	}
	if p.EndDate.Before(p.StartDate) {
		return errFieldInvalid("start_date", fmt.Sprintf("%s after end_date %s",
			p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02")))
	}
	if !p.InitialCapital.IsPositive() {
		return errFieldInvalid("initial_capital", p.InitialCapital.String())
	}
	if p.NumOfNews < 0 || p.NumOfNews > MaxNewsCount {
		return errFieldInvalid("num_of_news", p.NumOfNews)
	}
	return nil
}

// RiskAdjustedAction is the aggregated, constraint-capped trading instruction
// derived from all agents' signals for one date.
type RiskAdjustedAction struct {
	Decision  Decision
	Shares    int64 // requested share count; the portfolio manager may clamp it
	Rationale string
}

// PortfolioSnapshot is the simulated portfolio state as of one trading date.
type PortfolioSnapshot struct {
	Date           time.Time
	Cash           decimal.Decimal
	Stock          int64
	StockValue     decimal.Decimal
	PortfolioValue decimal.Decimal
}

// NewPortfolioSnapshot returns the initial all-cash snapshot.
func NewPortfolioSnapshot(date time.Time, cash decimal.Decimal) PortfolioSnapshot {
	return PortfolioSnapshot{
		Date:           date,
		Cash:           cash,
		Stock:          0,
		StockValue:     decimal.Zero,
		PortfolioValue: cash,
	}
}

// Validate checks the snapshot's invariants: cash >= 0, stock >= 0 and
// portfolio_value == cash + stock_value exactly.
func (s *PortfolioSnapshot) Validate() error {
	if s.Cash.IsNegative() {
		return errFieldInvalid("cash", s.Cash.String())
	}
	if s.Stock < 0 {
		return errFieldInvalid("stock", s.Stock)
	}
	if !s.PortfolioValue.Equal(s.Cash.Add(s.StockValue)) {
		return errFieldInvalid("portfolio_value", s.PortfolioValue.String())
	}
	return nil
}

// DecisionRecord captures the aggregated decision and the resulting portfolio
// state for one trading date.
type DecisionRecord struct {
	Date      time.Time
	Decision  Decision
	Reasoning string
	Snapshot  PortfolioSnapshot
}

// RunStatus represents the lifecycle state of a backtest run.
type RunStatus string

const (
	StatusInitialized RunStatus = "Initialized"
	StatusRunning     RunStatus = "Running"
	StatusCompleted   RunStatus = "Completed"
	StatusFailed      RunStatus = "Failed"
	StatusCancelled   RunStatus = "Cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the status may move to next. Transitions are
// monotone: Initialized -> Running -> {Completed | Failed | Cancelled}.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case StatusInitialized:
		return next == StatusRunning || next == StatusFailed || next == StatusCancelled
	case StatusRunning:
		return next.Terminal()
	}
	return false
}

// BacktestRun is one complete simulation of a ticker over a date range.
type BacktestRun struct {
	ID         string
	Params     TradingParameters
	Status     RunStatus
	Error      string // populated when Status is Failed
	Decisions  []DecisionRecord
	Signals    []SignalSet
	StartedAt  time.Time
	FinishedAt time.Time
}

// LatestDecision returns the most recent decision record, or nil.
func (r *BacktestRun) LatestDecision() *DecisionRecord {
	if len(r.Decisions) == 0 {
		return nil
	}
	return &r.Decisions[len(r.Decisions)-1]
}

// LatestSignals returns the signal set for the most recently processed date, or nil.
func (r *BacktestRun) LatestSignals() *SignalSet {
	if len(r.Signals) == 0 {
		return nil
	}
	return &r.Signals[len(r.Signals)-1]
}
