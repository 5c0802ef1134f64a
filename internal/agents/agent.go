// Package agents provides the analyst agent interface and its four
// implementations: technical, fundamental, sentiment and valuation.
package agents

import (
	"context"
	"time"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// Agent defines the contract every analyst agent satisfies. Agents are pure
// functions of their request for a given date: no side effects, no shared
// state, so they can be evaluated in parallel and replayed deterministically.
type Agent interface {
	// Name returns the unique name of the agent.
	Name() models.AgentName
	// Evaluate scores the ticker as of the request date. On failure the
	// caller recovers with a neutral (hold, confidence 0) signal.
	Evaluate(ctx context.Context, req Request) (*models.AnalystSignal, error)
}

// Request carries all data an agent may consume for one evaluation.
type Request struct {
	Ticker string
	AsOf   time.Time
	// Window is the bounded look-back of daily candles ending at AsOf,
	// ascending by date.
	Window []models.Candle
	// News holds up to num_of_news recent items; only the sentiment agent
	// reads it. May be empty.
	News []models.NewsItem
	// Fundamentals may be nil when no fundamentals provider is configured.
	Fundamentals *models.FinancialMetrics
	// ShowReasoning controls whether free-text reasoning is retained.
	ShowReasoning bool
}

// CurrentPrice returns the close of the last candle in the window, or 0.
func (r *Request) CurrentPrice() float64 {
	if len(r.Window) == 0 {
		return 0
	}
	return r.Window[len(r.Window)-1].Close
}

// BaseAgent provides common functionality for all agents.
type BaseAgent struct {
	name models.AgentName
}

// NewBaseAgent creates a new base agent with the given name.
func NewBaseAgent(name models.AgentName) BaseAgent {
	return BaseAgent{name: name}
}

// Name returns the agent's name.
func (b *BaseAgent) Name() models.AgentName {
	return b.name
}

// NewSignal creates an AnalystSignal with common fields populated. Reasoning
// is dropped unless the request asked for it.
func (b *BaseAgent) NewSignal(req Request, decision models.Decision, confidence float64, reasoning string) *models.AnalystSignal {
	if !req.ShowReasoning {
		reasoning = ""
	}
	return &models.AnalystSignal{
		AgentName:  b.name,
		Date:       req.AsOf,
		Decision:   decision,
		Confidence: clamp01(confidence),
		Reasoning:  reasoning,
		Metrics:    make(map[string]float64),
	}
}

// NeutralSignal returns the soft-failure signal for an agent: hold with
// confidence 0.
func NeutralSignal(name models.AgentName, date time.Time) *models.AnalystSignal {
	return &models.AnalystSignal{
		AgentName:  name,
		Date:       date,
		Decision:   models.DecisionHold,
		Confidence: 0,
		Metrics:    make(map[string]float64),
	}
}

// clamp01 ensures confidence is within [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// scoreToDecision maps a composite score in [-1, 1] to a decision using a
// symmetric neutral band.
func scoreToDecision(score, band float64) models.Decision {
	switch {
	case score >= band:
		return models.DecisionBuy
	case score <= -band:
		return models.DecisionSell
	default:
		return models.DecisionHold
	}
}

// directionalConfidence converts a composite score into a confidence for the
// decision it produced: stronger scores give higher confidence for buy/sell,
// weaker scores give higher confidence for hold.
func directionalConfidence(score, band float64) float64 {
	if abs(score) >= band {
		return clamp01(0.5 + abs(score)/2)
	}
	return clamp01(1 - abs(score)/band/2)
}
