package portfolio

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestExecuteBuy(t *testing.T) {
	mgr := NewManager("AAPL")
	prev := models.NewPortfolioSnapshot(date("2026-01-05"), decimal.NewFromInt(100000))

	next, err := mgr.Execute(models.RiskAdjustedAction{
		Decision: models.DecisionBuy,
		Shares:   1000,
	}, prev, date("2026-01-06"), decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if next.Stock != 1000 {
		t.Errorf("expected 1000 shares, got %d", next.Stock)
	}
	if !next.Cash.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected cash 50000, got %s", next.Cash)
	}
	if !next.PortfolioValue.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("expected portfolio value 100000, got %s", next.PortfolioValue)
	}
}

func TestExecuteBuyClampsToCash(t *testing.T) {
	mgr := NewManager("AAPL")
	prev := models.NewPortfolioSnapshot(date("2026-01-05"), decimal.NewFromInt(100))

	// 100 cash at price 30 affords 3 shares, not the requested 10.
	next, err := mgr.Execute(models.RiskAdjustedAction{
		Decision: models.DecisionBuy,
		Shares:   10,
	}, prev, date("2026-01-06"), decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if next.Stock != 3 {
		t.Errorf("expected 3 shares, got %d", next.Stock)
	}
	if !next.Cash.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected cash 10, got %s", next.Cash)
	}
}

func TestExecuteSellClampsToHoldings(t *testing.T) {
	mgr := NewManager("AAPL")
	prev := models.PortfolioSnapshot{
		Date:           date("2026-01-05"),
		Cash:           decimal.NewFromInt(1000),
		Stock:          10,
		StockValue:     decimal.NewFromInt(500),
		PortfolioValue: decimal.NewFromInt(1500),
	}

	// Requesting 25 shares with only 10 held sells the 10.
	next, err := mgr.Execute(models.RiskAdjustedAction{
		Decision: models.DecisionSell,
		Shares:   25,
	}, prev, date("2026-01-06"), decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if next.Stock != 0 {
		t.Errorf("expected 0 shares, got %d", next.Stock)
	}
	if !next.Cash.Equal(decimal.NewFromInt(1600)) {
		t.Errorf("expected cash 1600, got %s", next.Cash)
	}
	if !next.StockValue.Equal(decimal.Zero) {
		t.Errorf("expected stock value 0, got %s", next.StockValue)
	}
}

func TestExecuteHoldMarksToMarket(t *testing.T) {
	mgr := NewManager("AAPL")
	prev := models.PortfolioSnapshot{
		Date:           date("2026-01-05"),
		Cash:           decimal.NewFromInt(1000),
		Stock:          10,
		StockValue:     decimal.NewFromInt(500),
		PortfolioValue: decimal.NewFromInt(1500),
	}

	next, err := mgr.Execute(models.RiskAdjustedAction{
		Decision: models.DecisionHold,
	}, prev, date("2026-01-06"), decimal.NewFromInt(75))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if next.Stock != 10 || !next.Cash.Equal(prev.Cash) {
		t.Errorf("hold changed the position: stock %d cash %s", next.Stock, next.Cash)
	}
	if !next.StockValue.Equal(decimal.NewFromInt(750)) {
		t.Errorf("expected stock value 750, got %s", next.StockValue)
	}
	if !next.PortfolioValue.Equal(decimal.NewFromInt(1750)) {
		t.Errorf("expected portfolio value 1750, got %s", next.PortfolioValue)
	}
}

func TestExecuteRejectsNonPositivePrice(t *testing.T) {
	mgr := NewManager("AAPL")
	prev := models.NewPortfolioSnapshot(date("2026-01-05"), decimal.NewFromInt(1000))

	for _, price := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := mgr.Execute(models.RiskAdjustedAction{Decision: models.DecisionBuy, Shares: 1},
			prev, date("2026-01-06"), price)
		if !apperrors.Is(err, apperrors.ErrNonPositivePrice) {
			t.Errorf("price %s: expected ErrNonPositivePrice, got %v", price, err)
		}
		var execErr *apperrors.ExecutionError
		if !apperrors.As(err, &execErr) {
			t.Errorf("price %s: expected ExecutionError, got %T", price, err)
		}
	}
}

// Property: under any sequence of actions at positive prices, cash and stock
// never go negative and portfolio_value always equals cash + stock_value
// exactly.
func TestProperty_PortfolioInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(1)

	properties := gopter.NewProperties(parameters)

	type step struct {
		decision models.Decision
		shares   int64
		price    int64
	}

	stepGen := gopter.CombineGens(
		gen.OneConstOf(models.DecisionBuy, models.DecisionSell, models.DecisionHold),
		gen.Int64Range(0, 500),
		gen.Int64Range(1, 300),
	).Map(func(values []interface{}) step {
		return step{
			decision: values[0].(models.Decision),
			shares:   values[1].(int64),
			price:    values[2].(int64),
		}
	})

	properties.Property("invariants hold across action sequences", prop.ForAll(
		func(steps []step) bool {
			mgr := NewManager("AAPL")
			snapshot := models.NewPortfolioSnapshot(date("2026-01-05"), decimal.NewFromInt(100000))

			current := date("2026-01-05")
			for _, s := range steps {
				current = current.AddDate(0, 0, 1)
				next, err := mgr.Execute(models.RiskAdjustedAction{
					Decision: s.decision,
					Shares:   s.shares,
				}, snapshot, current, decimal.NewFromInt(s.price))
				if err != nil {
					return false
				}
				if next.Cash.IsNegative() || next.Stock < 0 {
					return false
				}
				if !next.PortfolioValue.Equal(next.Cash.Add(next.StockValue)) {
					return false
				}
				snapshot = next
			}
			return true
		},
		gen.SliceOf(stepGen),
	))

	properties.TestingRun(t)
}
