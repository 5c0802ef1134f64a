package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/store"
)

// Default trading parameters applied when the caller leaves them unset.
const (
	DefaultBacktestDays   = 90
	DefaultNumOfNews      = 5
	defaultInitialCapital = 100000
)

// Runner manages concurrent backtest runs. Each Start spawns one goroutine
// running the engine; queries are answered from the store, so they observe
// in-progress runs.
type Runner struct {
	engine *Engine
	store  store.ResultStore

	mu     sync.Mutex
	active map[string]*activeRun
}

type activeRun struct {
	cancel     chan struct{}
	done       chan struct{}
	cancelOnce sync.Once
}

// NewRunner creates a runner on top of the engine and its store.
func NewRunner(engine *Engine) *Runner {
	return &Runner{
		engine: engine,
		store:  engine.store,
		active: make(map[string]*activeRun),
	}
}

// Start validates the parameters, creates the run and begins executing it in
// the background. It returns the run ID immediately.
func (r *Runner) Start(ctx context.Context, params models.TradingParameters) (string, error) {
	params = applyDefaults(params)
	if err := params.Validate(); err != nil {
		return "", err
	}

	run := &models.BacktestRun{
		ID:        uuid.NewString(),
		Params:    params,
		Status:    models.StatusInitialized,
		StartedAt: time.Now(),
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return "", err
	}

	ar := &activeRun{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	r.mu.Lock()
	r.active[run.ID] = ar
	r.mu.Unlock()

	go func() {
		defer close(ar.done)
		defer func() {
			r.mu.Lock()
			delete(r.active, run.ID)
			r.mu.Unlock()
		}()
		// Detach from the caller's context: the run outlives the Start call.
		runCtx := context.WithoutCancel(ctx)
		_ = r.engine.Run(runCtx, run, ar.cancel)
	}()

	return run.ID, nil
}

// Cancel requests a graceful stop. The in-flight date finishes; the run then
// transitions to Cancelled and keeps its partial results.
func (r *Runner) Cancel(ctx context.Context, runID string) error {
	r.mu.Lock()
	ar, ok := r.active[runID]
	r.mu.Unlock()
	if ok {
		ar.cancelOnce.Do(func() { close(ar.cancel) })
		return nil
	}

	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.Terminal() {
		return apperrors.ErrRunFinished
	}
	return apperrors.ErrRunNotRunning
}

// Wait blocks until the run's goroutine exits. Runs unknown to this runner
// return immediately.
func (r *Runner) Wait(runID string) {
	r.mu.Lock()
	ar, ok := r.active[runID]
	r.mu.Unlock()
	if ok {
		<-ar.done
	}
}

// GetRun returns the full run, including partial results of a running backtest.
func (r *Runner) GetRun(ctx context.Context, runID string) (*models.BacktestRun, error) {
	return r.store.GetRun(ctx, runID)
}

// LatestDecision returns the most recent decision for the run, or nil.
func (r *Runner) LatestDecision(ctx context.Context, runID string) (*models.DecisionRecord, error) {
	return r.store.LatestDecision(ctx, runID)
}

// LatestSignals returns the most recent analyst signals for the run, or nil.
func (r *Runner) LatestSignals(ctx context.Context, runID string) (*models.SignalSet, error) {
	return r.store.LatestSignals(ctx, runID)
}

// History returns the run's portfolio snapshots in chronological order.
func (r *Runner) History(ctx context.Context, runID string) ([]models.PortfolioSnapshot, error) {
	return r.store.History(ctx, runID)
}

// applyDefaults fills unset parameters: end date today, a 90 day window and
// the standard starting capital.
func applyDefaults(params models.TradingParameters) models.TradingParameters {
	if params.EndDate.IsZero() {
		now := time.Now()
		params.EndDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if params.StartDate.IsZero() {
		params.StartDate = params.EndDate.AddDate(0, 0, -DefaultBacktestDays)
	}
	if params.InitialCapital.IsZero() {
		params.InitialCapital = decimal.NewFromInt(defaultInitialCapital)
	}
	// NumOfNews is left alone: zero is a valid request for no news.
	return params
}
