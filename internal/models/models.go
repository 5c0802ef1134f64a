// Package models provides domain models for the investment agent system.
package models

import (
	"time"
)

// Decision represents a trading decision.
type Decision string

const (
	DecisionBuy  Decision = "buy"
	DecisionSell Decision = "sell"
	DecisionHold Decision = "hold"
)

// AgentName identifies one of the four analyst agents.
type AgentName string

const (
	AgentTechnical   AgentName = "technical"
	AgentFundamental AgentName = "fundamental"
	AgentSentiment   AgentName = "sentiment"
	AgentValuation   AgentName = "valuation"
)

// AllAgents lists the analyst agents in their default tie-break priority order
// (risk-relevant first).
var AllAgents = []AgentName{AgentFundamental, AgentValuation, AgentTechnical, AgentSentiment}

// Candle represents OHLCV data for one trading day.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// NewsItem represents a news article about a ticker.
type NewsItem struct {
	Headline    string
	Body        string
	Source      string
	PublishedAt time.Time
}

// FinancialMetrics holds the fundamental data an agent may consume.
// Zero values mean "not available" for ratio fields.
type FinancialMetrics struct {
	MarketCap             float64
	PERatio               float64
	PriceToBook           float64
	ReturnOnEquity        float64
	NetMargin             float64
	RevenueGrowth         float64
	EarningsGrowth        float64
	CurrentRatio          float64
	DebtToEquity          float64
	EarningsPerShare      float64
	FreeCashFlowPerShare  float64
	AsOf                  time.Time
}

// AnalystSignal is the uniform output of one analyst agent for one ticker/date.
// It is produced fresh per (ticker, date) and never mutated afterwards.
type AnalystSignal struct {
	AgentName  AgentName
	Date       time.Time
	Decision   Decision
	Confidence float64 // in [0, 1]
	Reasoning  string  // empty unless show_reasoning
	Metrics    map[string]float64
}

// Neutral reports whether the signal is the soft-failure signal (hold, confidence 0).
func (s *AnalystSignal) Neutral() bool {
	return s.Decision == DecisionHold && s.Confidence == 0
}

// Validate checks the signal's contract.
func (s *AnalystSignal) Validate() error {
	if s.AgentName == "" {
		return errFieldRequired("agent_name")
	}
	switch s.Decision {
	case DecisionBuy, DecisionSell, DecisionHold:
	default:
		return errFieldInvalid("decision", string(s.Decision))
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return errFieldInvalid("confidence", s.Confidence)
	}
	return nil
}

// SignalSet groups the signals of all agents for a single trading date.
type SignalSet struct {
	Date    time.Time
	Signals []AnalystSignal
}

// Get returns the signal produced by the named agent, or nil.
func (ss *SignalSet) Get(name AgentName) *AnalystSignal {
	for i := range ss.Signals {
		if ss.Signals[i].AgentName == name {
			return &ss.Signals[i]
		}
	}
	return nil
}
