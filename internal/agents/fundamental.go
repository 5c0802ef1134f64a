package agents

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

const fundamentalBand = 0.25

// FundamentalAgent scores the ticker from its financial metrics: quality,
// growth and balance-sheet health.
type FundamentalAgent struct {
	BaseAgent
}

// NewFundamentalAgent creates a new fundamental analysis agent.
func NewFundamentalAgent() *FundamentalAgent {
	return &FundamentalAgent{BaseAgent: NewBaseAgent(models.AgentFundamental)}
}

// Evaluate implements Agent.
func (a *FundamentalAgent) Evaluate(ctx context.Context, req Request) (*models.AnalystSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := req.Fundamentals
	if m == nil {
		return nil, apperrors.NewAgentError(string(a.Name()), req.Ticker,
			fmt.Errorf("fundamentals not available"))
	}

	var score float64
	var notes []string

	// Profitability
	if m.ReturnOnEquity >= 0.15 {
		score += 0.25
		notes = append(notes, fmt.Sprintf("strong ROE %.1f%%", m.ReturnOnEquity*100))
	} else if m.ReturnOnEquity < 0.05 {
		score -= 0.25
		notes = append(notes, fmt.Sprintf("weak ROE %.1f%%", m.ReturnOnEquity*100))
	}
	if m.NetMargin >= 0.10 {
		score += 0.15
	} else if m.NetMargin < 0.02 {
		score -= 0.15
	}

	// Growth
	if m.RevenueGrowth >= 0.05 {
		score += 0.15
		notes = append(notes, fmt.Sprintf("revenue growth %.1f%%", m.RevenueGrowth*100))
	} else if m.RevenueGrowth < 0 {
		score -= 0.15
		notes = append(notes, "shrinking revenue")
	}
	if m.EarningsGrowth >= 0.05 {
		score += 0.20
	} else if m.EarningsGrowth < 0 {
		score -= 0.20
		notes = append(notes, "shrinking earnings")
	}

	// Balance sheet
	if m.CurrentRatio >= 1.5 {
		score += 0.10
	} else if m.CurrentRatio > 0 && m.CurrentRatio < 1 {
		score -= 0.10
		notes = append(notes, fmt.Sprintf("current ratio %.2f", m.CurrentRatio))
	}
	if m.DebtToEquity > 0 && m.DebtToEquity < 0.5 {
		score += 0.15
	} else if m.DebtToEquity > 1.5 {
		score -= 0.15
		notes = append(notes, fmt.Sprintf("high leverage D/E %.2f", m.DebtToEquity))
	}

	score = clampScore(score, -1, 1)
	decision := scoreToDecision(score, fundamentalBand)

	signal := a.NewSignal(req, decision, directionalConfidence(score, fundamentalBand),
		fmt.Sprintf("fundamental score %.2f: %s", score, strings.Join(notes, "; ")))

	signal.Metrics["return_on_equity"] = m.ReturnOnEquity
	signal.Metrics["net_margin"] = m.NetMargin
	signal.Metrics["revenue_growth"] = m.RevenueGrowth
	signal.Metrics["earnings_growth"] = m.EarningsGrowth
	signal.Metrics["current_ratio"] = m.CurrentRatio
	signal.Metrics["debt_to_equity"] = m.DebtToEquity
	signal.Metrics["composite_score"] = score

	return signal, nil
}
