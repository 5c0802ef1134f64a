package risk

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

var testDate = time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)

func signal(name models.AgentName, decision models.Decision, confidence float64) models.AnalystSignal {
	return models.AnalystSignal{
		AgentName:  name,
		Date:       testDate,
		Decision:   decision,
		Confidence: confidence,
	}
}

func allCash(amount int64) models.PortfolioSnapshot {
	return models.NewPortfolioSnapshot(testDate, decimal.NewFromInt(amount))
}

func TestAdjustUnanimousBuyCappedAtTradeFraction(t *testing.T) {
	mgr := NewManager(DefaultLimits())

	// All four agents say buy at 0.9; the trade cap limits the purchase to
	// half the portfolio: 50000 / 50 = 1000 shares.
	signals := []models.AnalystSignal{
		signal(models.AgentTechnical, models.DecisionBuy, 0.9),
		signal(models.AgentFundamental, models.DecisionBuy, 0.9),
		signal(models.AgentSentiment, models.DecisionBuy, 0.9),
		signal(models.AgentValuation, models.DecisionBuy, 0.9),
	}

	action := mgr.Adjust(signals, allCash(100000), decimal.NewFromInt(50))
	if action.Decision != models.DecisionBuy {
		t.Fatalf("expected buy, got %s (%s)", action.Decision, action.Rationale)
	}
	if action.Shares != 1000 {
		t.Errorf("expected 1000 shares, got %d", action.Shares)
	}
}

func TestAdjustAllNeutralDegradesToHold(t *testing.T) {
	mgr := NewManager(DefaultLimits())

	signals := []models.AnalystSignal{
		signal(models.AgentTechnical, models.DecisionHold, 0),
		signal(models.AgentFundamental, models.DecisionHold, 0),
		signal(models.AgentSentiment, models.DecisionHold, 0),
		signal(models.AgentValuation, models.DecisionHold, 0),
	}

	action := mgr.Adjust(signals, allCash(100000), decimal.NewFromInt(50))
	if action.Decision != models.DecisionHold || action.Shares != 0 {
		t.Errorf("expected hold with 0 shares, got %s %d", action.Decision, action.Shares)
	}
}

func TestAdjustTieBreakUsesPriority(t *testing.T) {
	mgr := NewManager(DefaultLimits())

	// buy and sell tally 0.8 each; the fundamental agent outranks the
	// technical one, so sell wins.
	signals := []models.AnalystSignal{
		signal(models.AgentTechnical, models.DecisionBuy, 0.8),
		signal(models.AgentFundamental, models.DecisionSell, 0.8),
	}

	portfolio := models.PortfolioSnapshot{
		Date:           testDate,
		Cash:           decimal.NewFromInt(1000),
		Stock:          100,
		StockValue:     decimal.NewFromInt(5000),
		PortfolioValue: decimal.NewFromInt(6000),
	}
	action := mgr.Adjust(signals, portfolio, decimal.NewFromInt(50))
	if action.Decision != models.DecisionSell {
		t.Errorf("expected sell from tie-break, got %s (%s)", action.Decision, action.Rationale)
	}

	// Reversing the priority flips the outcome.
	limits := DefaultLimits()
	limits.TiePriority = []models.AgentName{models.AgentTechnical, models.AgentFundamental}
	action = NewManager(limits).Adjust(signals, portfolio, decimal.NewFromInt(50))
	if action.Decision != models.DecisionBuy {
		t.Errorf("expected buy with reversed priority, got %s", action.Decision)
	}
}

func TestAdjustSellSizedByConfidence(t *testing.T) {
	mgr := NewManager(DefaultLimits())

	// One sell vote at 0.6 against one hold vote at 0.2: sell wins with
	// aggregate confidence 0.75, selling ceil(0.75 * 100) = 75 shares.
	signals := []models.AnalystSignal{
		signal(models.AgentFundamental, models.DecisionSell, 0.6),
		signal(models.AgentTechnical, models.DecisionHold, 0.2),
	}

	portfolio := models.PortfolioSnapshot{
		Date:           testDate,
		Cash:           decimal.NewFromInt(0),
		Stock:          100,
		StockValue:     decimal.NewFromInt(5000),
		PortfolioValue: decimal.NewFromInt(5000),
	}
	action := mgr.Adjust(signals, portfolio, decimal.NewFromInt(50))
	if action.Decision != models.DecisionSell {
		t.Fatalf("expected sell, got %s", action.Decision)
	}
	if action.Shares != 75 {
		t.Errorf("expected 75 shares, got %d", action.Shares)
	}
}

func TestAdjustSellWithoutHoldingsDegradesToHold(t *testing.T) {
	mgr := NewManager(DefaultLimits())

	signals := []models.AnalystSignal{
		signal(models.AgentFundamental, models.DecisionSell, 0.9),
	}

	action := mgr.Adjust(signals, allCash(100000), decimal.NewFromInt(50))
	if action.Decision != models.DecisionHold {
		t.Errorf("expected hold when nothing is held, got %s", action.Decision)
	}
}

func TestAdjustRespectsConcentrationCap(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxTradeFraction = 1.0
	limits.MaxPositionFraction = 0.5
	mgr := NewManager(limits)

	// Position already at the 50% concentration cap: no more buying.
	portfolio := models.PortfolioSnapshot{
		Date:           testDate,
		Cash:           decimal.NewFromInt(5000),
		Stock:          100,
		StockValue:     decimal.NewFromInt(5000),
		PortfolioValue: decimal.NewFromInt(10000),
	}
	signals := []models.AnalystSignal{
		signal(models.AgentFundamental, models.DecisionBuy, 1.0),
	}

	action := mgr.Adjust(signals, portfolio, decimal.NewFromInt(50))
	if action.Decision != models.DecisionHold {
		t.Errorf("expected hold at concentration cap, got %s %d", action.Decision, action.Shares)
	}
}

// Property: Adjust is a pure function. Evaluating the same signals against the
// same portfolio twice yields identical actions, and buys never exceed the
// trade fraction cap.
func TestProperty_AdjustDeterministicAndCapped(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(2)

	properties := gopter.NewProperties(parameters)

	agentNames := models.AllAgents
	signalGen := gopter.CombineGens(
		gen.IntRange(0, len(agentNames)-1),
		gen.OneConstOf(models.DecisionBuy, models.DecisionSell, models.DecisionHold),
		gen.Float64Range(0, 1),
	).Map(func(values []interface{}) models.AnalystSignal {
		return signal(agentNames[values[0].(int)], values[1].(models.Decision), values[2].(float64))
	})

	properties.Property("same inputs produce the same action", prop.ForAll(
		func(signals []models.AnalystSignal, cash int64, price int64) bool {
			mgr := NewManager(DefaultLimits())
			portfolio := allCash(cash)
			p := decimal.NewFromInt(price)

			first := mgr.Adjust(signals, portfolio, p)
			second := mgr.Adjust(signals, portfolio, p)
			if first != second {
				return false
			}

			if first.Decision == models.DecisionBuy {
				cost := p.Mul(decimal.NewFromInt(first.Shares))
				maxCost := portfolio.PortfolioValue.Mul(decimal.NewFromFloat(DefaultLimits().MaxTradeFraction))
				if cost.GreaterThan(maxCost) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(signalGen),
		gen.Int64Range(1, 1000000),
		gen.Int64Range(1, 1000),
	))

	properties.TestingRun(t)
}
