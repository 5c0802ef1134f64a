package agents

import (
	"context"
	"fmt"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

const (
	valuationBand = 0.15
	// maxValuationGrowth caps the growth rate fed into the intrinsic value
	// formula so a single outlier year cannot dominate it.
	maxValuationGrowth = 0.25
)

// ValuationAgent compares a Graham-style intrinsic value estimate against the
// current price and trades on the margin of safety.
type ValuationAgent struct {
	BaseAgent
}

// NewValuationAgent creates a new valuation agent.
func NewValuationAgent() *ValuationAgent {
	return &ValuationAgent{BaseAgent: NewBaseAgent(models.AgentValuation)}
}

// Evaluate implements Agent.
func (a *ValuationAgent) Evaluate(ctx context.Context, req Request) (*models.AnalystSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := req.Fundamentals
	if m == nil || m.EarningsPerShare <= 0 {
		return nil, apperrors.NewAgentError(string(a.Name()), req.Ticker,
			fmt.Errorf("no positive earnings to value"))
	}
	price := req.CurrentPrice()
	if price <= 0 {
		return nil, apperrors.NewAgentError(string(a.Name()), req.Ticker,
			apperrors.ErrNonPositivePrice)
	}

	growth := m.EarningsGrowth
	if growth < 0 {
		growth = 0
	}
	if growth > maxValuationGrowth {
		growth = maxValuationGrowth
	}

	// Graham: V = EPS x (8.5 + 2g), g expressed in percent.
	intrinsic := m.EarningsPerShare * (8.5 + 2*growth*100)
	gap := (intrinsic - price) / price

	score := clampScore(gap, -1, 1)
	decision := scoreToDecision(score, valuationBand)

	signal := a.NewSignal(req, decision, directionalConfidence(score, valuationBand),
		fmt.Sprintf("intrinsic value %.2f vs price %.2f (gap %.1f%%)", intrinsic, price, gap*100))

	signal.Metrics["intrinsic_value"] = intrinsic
	signal.Metrics["current_price"] = price
	signal.Metrics["value_gap"] = gap
	signal.Metrics["earnings_per_share"] = m.EarningsPerShare
	signal.Metrics["growth_rate"] = growth

	return signal, nil
}
