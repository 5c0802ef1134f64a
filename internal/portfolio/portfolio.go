// Package portfolio applies risk-adjusted actions to the simulated portfolio.
package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// Manager executes actions against a portfolio snapshot. It never borrows
// cash and never sells short: buys are clamped to available cash, sells to
// current holdings.
type Manager struct {
	ticker string
}

// NewManager creates a portfolio manager for one ticker.
func NewManager(ticker string) *Manager {
	return &Manager{ticker: ticker}
}

// Execute applies the action at the given date and closing price and returns
// the marked-to-market snapshot. The input snapshot is not modified.
func (m *Manager) Execute(action models.RiskAdjustedAction, prev models.PortfolioSnapshot, date time.Time, price decimal.Decimal) (models.PortfolioSnapshot, error) {
	if !price.IsPositive() {
		return models.PortfolioSnapshot{}, apperrors.NewExecutionError(
			m.ticker, string(action.Decision), fmt.Sprintf("price %s on %s", price, date.Format("2006-01-02")),
			apperrors.ErrNonPositivePrice)
	}

	cash := prev.Cash
	stock := prev.Stock

	switch action.Decision {
	case models.DecisionBuy:
		shares := action.Shares
		// Clamp to what the available cash can actually pay for.
		affordable := cash.Div(price).IntPart()
		if shares > affordable {
			shares = affordable
		}
		if shares > 0 {
			cash = cash.Sub(price.Mul(decimal.NewFromInt(shares)))
			stock += shares
		}

	case models.DecisionSell:
		shares := action.Shares
		if shares > stock {
			shares = stock
		}
		if shares > 0 {
			cash = cash.Add(price.Mul(decimal.NewFromInt(shares)))
			stock -= shares
		}
	}

	// Mark to market at the date's closing price.
	stockValue := price.Mul(decimal.NewFromInt(stock))
	next := models.PortfolioSnapshot{
		Date:           date,
		Cash:           cash,
		Stock:          stock,
		StockValue:     stockValue,
		PortfolioValue: cash.Add(stockValue),
	}

	if err := next.Validate(); err != nil {
		return models.PortfolioSnapshot{}, apperrors.Wrap(apperrors.ErrInvariantViolated, err.Error())
	}
	return next, nil
}
