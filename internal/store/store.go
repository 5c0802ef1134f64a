// Package store provides persistence for backtest runs and their results.
package store

import (
	"context"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// ResultStore defines the interface for backtest run persistence. All
// implementations must be safe for concurrent use: the engine appends while
// query operations read mid-run.
type ResultStore interface {
	// CreateRun persists a new run in its initial status.
	CreateRun(ctx context.Context, run *models.BacktestRun) error

	// UpdateStatus moves the run to the given status. errMsg is stored only
	// for Failed. Transitions must be monotone; anything else returns
	// ErrStatusTransition.
	UpdateStatus(ctx context.Context, runID string, status models.RunStatus, errMsg string) error

	// AppendDecision atomically appends one date's decision record together
	// with the signal set that produced it. A reader never observes the
	// decision without its signals.
	AppendDecision(ctx context.Context, runID string, record models.DecisionRecord, signals models.SignalSet) error

	// GetRun returns the full run including all decisions and signals.
	GetRun(ctx context.Context, runID string) (*models.BacktestRun, error)

	// LatestDecision returns the most recent decision record, or nil when no
	// date has completed yet.
	LatestDecision(ctx context.Context, runID string) (*models.DecisionRecord, error)

	// LatestSignals returns the signal set for the most recently processed
	// date, or nil when no date has completed yet.
	LatestSignals(ctx context.Context, runID string) (*models.SignalSet, error)

	// History returns the portfolio snapshots in chronological order.
	History(ctx context.Context, runID string) ([]models.PortfolioSnapshot, error)

	// Lifecycle
	Close() error
}
