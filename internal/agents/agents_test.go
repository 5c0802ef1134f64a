package agents

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/marketdata"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

var asOf = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

func window(bars int, basePrice float64, seed int64) []models.Candle {
	start := asOf.AddDate(0, 0, -bars*2)
	candles := marketdata.GenerateCandles(start, asOf, basePrice, seed)
	if len(candles) > bars {
		candles = candles[len(candles)-bars:]
	}
	return candles
}

func goodFundamentals() *models.FinancialMetrics {
	return &models.FinancialMetrics{
		ReturnOnEquity:   0.22,
		NetMargin:        0.18,
		RevenueGrowth:    0.12,
		EarningsGrowth:   0.10,
		CurrentRatio:     2.1,
		DebtToEquity:     0.3,
		EarningsPerShare: 6.5,
		AsOf:             asOf,
	}
}

func TestTechnicalAgentRequiresEnoughBars(t *testing.T) {
	agent := NewTechnicalAgent()
	req := Request{Ticker: "AAPL", AsOf: asOf, Window: window(5, 100, 1)}

	_, err := agent.Evaluate(context.Background(), req)
	if !apperrors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	var agentErr *apperrors.AgentError
	if !apperrors.As(err, &agentErr) {
		t.Errorf("expected AgentError, got %T", err)
	}
}

func TestTechnicalAgentProducesMetrics(t *testing.T) {
	agent := NewTechnicalAgent()
	req := Request{Ticker: "AAPL", AsOf: asOf, Window: window(60, 100, 1)}

	signal, err := agent.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	for _, key := range []string{"sma_short", "sma_long", "rsi", "momentum", "composite_score"} {
		if _, ok := signal.Metrics[key]; !ok {
			t.Errorf("missing metric %q", key)
		}
	}
	if signal.Date != asOf {
		t.Errorf("signal date %s, want %s", signal.Date, asOf)
	}
}

func TestFundamentalAgentFailsWithoutData(t *testing.T) {
	agent := NewFundamentalAgent()
	req := Request{Ticker: "AAPL", AsOf: asOf, Window: window(60, 100, 1)}

	_, err := agent.Evaluate(context.Background(), req)
	var agentErr *apperrors.AgentError
	if !apperrors.As(err, &agentErr) {
		t.Errorf("expected AgentError without fundamentals, got %v", err)
	}
}

func TestFundamentalAgentScoresStrongCompany(t *testing.T) {
	agent := NewFundamentalAgent()
	req := Request{Ticker: "AAPL", AsOf: asOf, Window: window(60, 100, 1), Fundamentals: goodFundamentals()}

	signal, err := agent.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if signal.Decision != models.DecisionBuy {
		t.Errorf("strong fundamentals should score buy, got %s", signal.Decision)
	}
}

func TestSentimentAgentNoNewsIsNeutralObservation(t *testing.T) {
	agent := NewSentimentAgent()
	req := Request{Ticker: "AAPL", AsOf: asOf}

	signal, err := agent.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("no news should not be a failure: %v", err)
	}
	if signal.Decision != models.DecisionHold || signal.Confidence != 0.5 {
		t.Errorf("expected hold at 0.5, got %s at %.2f", signal.Decision, signal.Confidence)
	}
}

func TestSentimentAgentScoresPolarity(t *testing.T) {
	agent := NewSentimentAgent()
	req := Request{Ticker: "AAPL", AsOf: asOf, News: []models.NewsItem{
		{Headline: "AAPL beats estimates, record growth and strong profit", PublishedAt: asOf},
		{Headline: "Analysts upgrade AAPL after buyback", PublishedAt: asOf.AddDate(0, 0, -1)},
	}}

	signal, err := agent.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if signal.Decision != models.DecisionBuy {
		t.Errorf("positive news should score buy, got %s", signal.Decision)
	}
}

func TestValuationAgentRequiresPositiveEarnings(t *testing.T) {
	agent := NewValuationAgent()
	m := goodFundamentals()
	m.EarningsPerShare = -1
	req := Request{Ticker: "AAPL", AsOf: asOf, Window: window(60, 100, 1), Fundamentals: m}

	_, err := agent.Evaluate(context.Background(), req)
	var agentErr *apperrors.AgentError
	if !apperrors.As(err, &agentErr) {
		t.Errorf("expected AgentError for negative EPS, got %v", err)
	}
}

func TestValuationAgentBuysDeepDiscount(t *testing.T) {
	agent := NewValuationAgent()
	// EPS 6.5 with 10% growth values the stock well above a price of 30.
	req := Request{Ticker: "AAPL", AsOf: asOf, Window: window(60, 30, 1), Fundamentals: goodFundamentals()}

	signal, err := agent.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if signal.Decision != models.DecisionBuy {
		t.Errorf("deep discount should score buy, got %s (gap %.2f)",
			signal.Decision, signal.Metrics["value_gap"])
	}
}

func TestReasoningDroppedUnlessRequested(t *testing.T) {
	agent := NewTechnicalAgent()
	req := Request{Ticker: "AAPL", AsOf: asOf, Window: window(60, 100, 1)}

	signal, err := agent.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if signal.Reasoning != "" {
		t.Errorf("reasoning should be empty without show_reasoning, got %q", signal.Reasoning)
	}

	req.ShowReasoning = true
	signal, err = agent.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if signal.Reasoning == "" {
		t.Error("reasoning should be retained with show_reasoning")
	}
}

// Property: every signal any agent emits carries a confidence in [0, 1] and a
// valid decision, across arbitrary generated price windows.
func TestProperty_SignalContract(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(3)

	properties := gopter.NewProperties(parameters)

	properties.Property("signals stay within contract", prop.ForAll(
		func(bars int, basePrice float64, seed int64, withFundamentals bool) bool {
			req := Request{
				Ticker: "AAPL",
				AsOf:   asOf,
				Window: window(bars, basePrice, seed),
				News: []models.NewsItem{
					{Headline: "AAPL announces results", PublishedAt: asOf},
				},
			}
			if withFundamentals {
				req.Fundamentals = goodFundamentals()
			}

			for _, agent := range DefaultAgents() {
				signal, err := agent.Evaluate(context.Background(), req)
				if err != nil {
					// Soft failures surface as AgentError and are recovered
					// by the engine; they are within contract.
					var agentErr *apperrors.AgentError
					if !apperrors.As(err, &agentErr) {
						return false
					}
					continue
				}
				if err := signal.Validate(); err != nil {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 120),
		gen.Float64Range(5, 2000),
		gen.Int64Range(0, 1000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
