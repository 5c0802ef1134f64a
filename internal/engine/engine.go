// Package engine drives backtest runs: it walks the trading calendar date by
// date, fans out to the analyst agents, applies risk management and records
// the resulting decisions.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/agents"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/config"
	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/logging"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/marketdata"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/portfolio"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/risk"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/store"
)

// Engine executes one backtest run to completion. It is stateless between
// runs; all run state lives in the store.
type Engine struct {
	provider marketdata.Provider
	agents   []agents.Agent
	risk     *risk.Manager
	store    store.ResultStore
	cfg      config.EngineConfig
}

// NewEngine creates a backtest engine.
func NewEngine(provider marketdata.Provider, agentList []agents.Agent, riskMgr *risk.Manager, resultStore store.ResultStore, cfg config.EngineConfig) *Engine {
	return &Engine{
		provider: provider,
		agents:   agentList,
		risk:     riskMgr,
		store:    resultStore,
		cfg:      cfg,
	}
}

// Run executes the backtest for an already-created run. Closing cancel stops
// the run after the in-flight date finishes; the partial result stays
// queryable with status Cancelled.
func (e *Engine) Run(ctx context.Context, run *models.BacktestRun, cancel <-chan struct{}) error {
	logger := logging.WithTicker(logging.WithRun(logging.FromContext(ctx), run.ID), run.Params.Ticker)
	ctx = logging.WithLogger(ctx, logger)

	if err := e.store.UpdateStatus(ctx, run.ID, models.StatusRunning, ""); err != nil {
		return err
	}

	calendar, err := e.tradingCalendar(ctx, run.Params)
	if err != nil {
		logger.Error().Err(err).Msg("failed to establish trading calendar")
		return e.fail(ctx, run.ID, apperrors.Wrap(err, "trading calendar"))
	}
	logger.Info().Int("trading_days", len(calendar)).Msg("backtest started")

	snapshot := models.NewPortfolioSnapshot(run.Params.StartDate, run.Params.InitialCapital)
	consecutiveFailures := 0

	for _, date := range calendar {
		select {
		case <-cancel:
			logger.Info().Msg("backtest cancelled")
			return e.store.UpdateStatus(ctx, run.ID, models.StatusCancelled, "")
		case <-ctx.Done():
			logger.Info().Msg("backtest cancelled")
			return e.store.UpdateStatus(ctx, run.ID, models.StatusCancelled, "")
		default:
		}

		next, err := e.step(ctx, run, date, snapshot)
		if err != nil {
			switch {
			case apperrors.Is(err, apperrors.ErrNonPositivePrice):
				// A bad quote is not a missing date: hold without
				// touching the consecutive-failure counter.
				logger.Warn().Err(err).Time("date", date).Msg("unusable price, holding")
				carried, err := e.recordImplicitHold(ctx, run.ID, date, snapshot, "unusable closing price")
				if err != nil {
					return e.fail(ctx, run.ID, err)
				}
				snapshot = carried
				continue
			case apperrors.Is(err, apperrors.ErrDataUnavailable):
				consecutiveFailures++
				logging.LogDataFailure(logger, date, consecutiveFailures, err)
				if consecutiveFailures >= e.cfg.MaxConsecutiveDataFailures {
					return e.fail(ctx, run.ID, apperrors.Wrapf(err,
						"%d consecutive dates without market data", consecutiveFailures))
				}
				carried, err := e.recordImplicitHold(ctx, run.ID, date, snapshot, "market data unavailable")
				if err != nil {
					return e.fail(ctx, run.ID, err)
				}
				snapshot = carried
				continue
			default:
				return e.fail(ctx, run.ID, err)
			}
		}

		consecutiveFailures = 0
		snapshot = next
	}

	logger.Info().Str("portfolio_value", snapshot.PortfolioValue.String()).Msg("backtest completed")
	return e.store.UpdateStatus(ctx, run.ID, models.StatusCompleted, "")
}

// tradingCalendar fetches the full price history once and uses its dates as
// the list of trading days to simulate.
func (e *Engine) tradingCalendar(ctx context.Context, params models.TradingParameters) ([]time.Time, error) {
	candles, err := e.provider.FetchPriceHistory(ctx, params.Ticker, params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(candles))
	for _, c := range candles {
		dates = append(dates, c.Date)
	}
	return dates, nil
}

// recordImplicitHold carries the portfolio forward unchanged and records a
// hold decision for the date.
func (e *Engine) recordImplicitHold(ctx context.Context, runID string, date time.Time, prev models.PortfolioSnapshot, reason string) (models.PortfolioSnapshot, error) {
	carried := prev
	carried.Date = date
	record := models.DecisionRecord{
		Date:      date,
		Decision:  models.DecisionHold,
		Reasoning: reason,
		Snapshot:  carried,
	}
	if err := e.store.AppendDecision(ctx, runID, record, models.SignalSet{Date: date}); err != nil {
		return models.PortfolioSnapshot{}, err
	}
	return carried, nil
}

// step simulates one trading date and returns the resulting snapshot.
func (e *Engine) step(ctx context.Context, run *models.BacktestRun, date time.Time, prev models.PortfolioSnapshot) (models.PortfolioSnapshot, error) {
	logger := logging.FromContext(ctx)
	params := run.Params

	windowStart := date.AddDate(0, 0, -e.cfg.LookbackDays)
	window, err := e.provider.FetchPriceHistory(ctx, params.Ticker, windowStart, date)
	if err != nil {
		return models.PortfolioSnapshot{}, err
	}
	if len(window) == 0 {
		return models.PortfolioSnapshot{}, apperrors.NewDataError("candles", params.Ticker,
			fmt.Sprintf("empty window as of %s", date.Format("2006-01-02")), nil)
	}
	price := decimal.NewFromFloat(window[len(window)-1].Close)
	if !price.IsPositive() {
		return models.PortfolioSnapshot{}, apperrors.NewDataError("candles", params.Ticker,
			fmt.Sprintf("non-positive close on %s", date.Format("2006-01-02")), apperrors.ErrNonPositivePrice)
	}

	// News failures are soft: the sentiment agent scores an empty set.
	news, err := e.provider.FetchNews(ctx, params.Ticker, date, params.NumOfNews)
	if err != nil {
		logger.Warn().Err(err).Time("date", date).Msg("news fetch failed, proceeding without news")
		news = nil
	}

	var fundamentals *models.FinancialMetrics
	if fp, ok := e.provider.(marketdata.FundamentalsProvider); ok {
		fundamentals, err = fp.FetchFundamentals(ctx, params.Ticker, date)
		if err != nil {
			logger.Warn().Err(err).Time("date", date).Msg("fundamentals fetch failed")
			fundamentals = nil
		}
	}

	req := agents.Request{
		Ticker:        params.Ticker,
		AsOf:          date,
		Window:        window,
		News:          news,
		Fundamentals:  fundamentals,
		ShowReasoning: params.ShowReasoning,
	}
	signals := e.evaluateAgents(ctx, req)

	// Mark the previous snapshot to today's price before sizing, so risk
	// fractions are measured against current portfolio value.
	marked := prev
	marked.StockValue = price.Mul(decimal.NewFromInt(prev.Stock))
	marked.PortfolioValue = marked.Cash.Add(marked.StockValue)

	action := e.risk.Adjust(signals.Signals, marked, price)

	next, err := portfolio.NewManager(params.Ticker).Execute(action, prev, date, price)
	if err != nil {
		return models.PortfolioSnapshot{}, err
	}

	record := models.DecisionRecord{
		Date:      date,
		Decision:  action.Decision,
		Reasoning: action.Rationale,
		Snapshot:  next,
	}
	if err := e.store.AppendDecision(ctx, run.ID, record, signals); err != nil {
		return models.PortfolioSnapshot{}, err
	}
	logging.LogDecision(logger, date, string(action.Decision), action.Shares, next.PortfolioValue.String())
	return next, nil
}

// evaluateAgents fans the request out to all agents in parallel, bounding each
// evaluation with the configured timeout. A failed or timed-out agent yields a
// neutral signal; agent failures never fail the run. The returned signals are
// in fixed agent order so replays are deterministic.
func (e *Engine) evaluateAgents(ctx context.Context, req agents.Request) models.SignalSet {
	logger := logging.FromContext(ctx)

	results := make([]*models.AnalystSignal, len(e.agents))
	done := make(chan int, len(e.agents))

	for i, agent := range e.agents {
		go func(i int, agent agents.Agent) {
			defer func() { done <- i }()

			agentCtx, cancel := context.WithTimeout(ctx, e.cfg.AgentTimeout)
			defer cancel()

			signal, err := evaluateOne(agentCtx, agent, req)
			if err != nil {
				logging.LogAgentFailure(logger, string(agent.Name()), req.AsOf, err)
				signal = agents.NeutralSignal(agent.Name(), req.AsOf)
			}
			results[i] = signal
		}(i, agent)
	}
	for range e.agents {
		<-done
	}

	set := models.SignalSet{Date: req.AsOf}
	for _, s := range results {
		set.Signals = append(set.Signals, *s)
	}
	return set
}

// evaluateOne runs a single agent and enforces its context deadline even if
// the agent ignores the context.
func evaluateOne(ctx context.Context, agent agents.Agent, req agents.Request) (*models.AnalystSignal, error) {
	type result struct {
		signal *models.AnalystSignal
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		signal, err := agent.Evaluate(ctx, req)
		ch <- result{signal, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.signal == nil {
			return nil, apperrors.NewAgentError(string(agent.Name()), req.Ticker,
				fmt.Errorf("agent returned no signal"))
		}
		if err := r.signal.Validate(); err != nil {
			return nil, apperrors.NewAgentError(string(agent.Name()), req.Ticker, err)
		}
		return r.signal, nil
	case <-ctx.Done():
		return nil, apperrors.NewAgentError(string(agent.Name()), req.Ticker, ctx.Err())
	}
}

// fail marks the run Failed with the given cause and returns it.
func (e *Engine) fail(ctx context.Context, runID string, cause error) error {
	logger := logging.FromContext(ctx)
	logger.Error().Err(cause).Msg("backtest failed")
	if err := e.store.UpdateStatus(ctx, runID, models.StatusFailed, cause.Error()); err != nil {
		return err
	}
	return cause
}
