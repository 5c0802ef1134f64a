// Package risk aggregates analyst signals into one risk-adjusted trading
// action per date.
package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/config"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// Limits holds the portfolio-level constraints applied to every action.
type Limits struct {
	// MaxTradeFraction caps a single trade at this fraction of portfolio value.
	MaxTradeFraction float64
	// MaxPositionFraction caps the total stock position at this fraction of
	// portfolio value.
	MaxPositionFraction float64
	// TiePriority breaks weighted-vote ties; earlier agents win.
	TiePriority []models.AgentName
}

// DefaultLimits returns the default risk limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTradeFraction:    0.5,
		MaxPositionFraction: 1.0,
		TiePriority:         models.AllAgents,
	}
}

// LimitsFromConfig builds Limits from the risk configuration section.
func LimitsFromConfig(cfg config.RiskConfig) Limits {
	limits := Limits{
		MaxTradeFraction:    cfg.MaxTradeFraction,
		MaxPositionFraction: cfg.MaxPositionFraction,
	}
	for _, name := range cfg.TiePriority {
		limits.TiePriority = append(limits.TiePriority, models.AgentName(name))
	}
	if len(limits.TiePriority) == 0 {
		limits.TiePriority = models.AllAgents
	}
	return limits
}

// Manager applies portfolio-level constraints to raw agent signals.
// Adjust is a pure function: the same signals, portfolio and limits always
// produce the same action.
type Manager struct {
	limits Limits
}

// NewManager creates a risk manager with the given limits.
func NewManager(limits Limits) *Manager {
	return &Manager{limits: limits}
}

// Adjust chooses a decision by confidence-weighted majority and sizes it
// within the configured limits. Constraint violations reduce the size to the
// boundary; only hard limits (no cash, no holdings, no headroom) degrade the
// action to hold.
func (m *Manager) Adjust(signals []models.AnalystSignal, portfolio models.PortfolioSnapshot, price decimal.Decimal) models.RiskAdjustedAction {
	tally := map[models.Decision]float64{}
	var total float64
	for _, s := range signals {
		tally[s.Decision] += s.Confidence
		total += s.Confidence
	}

	if total == 0 {
		return hold("all agents neutral")
	}

	decision := m.winningDecision(signals, tally)
	confidence := tally[decision] / total
	rationale := fmt.Sprintf("weighted vote buy=%.2f sell=%.2f hold=%.2f -> %s (%.0f%% of weight)",
		tally[models.DecisionBuy], tally[models.DecisionSell], tally[models.DecisionHold],
		decision, confidence*100)

	switch decision {
	case models.DecisionBuy:
		return m.sizeBuy(portfolio, price, confidence, rationale)
	case models.DecisionSell:
		return m.sizeSell(portfolio, confidence, rationale)
	default:
		return hold(rationale)
	}
}

// winningDecision returns the decision with the highest weighted tally,
// breaking exact ties by the configured agent priority order.
func (m *Manager) winningDecision(signals []models.AnalystSignal, tally map[models.Decision]float64) models.Decision {
	best := math.Inf(-1)
	for _, w := range tally {
		if w > best {
			best = w
		}
	}

	var tied []models.Decision
	for _, d := range []models.Decision{models.DecisionBuy, models.DecisionSell, models.DecisionHold} {
		if w, ok := tally[d]; ok && w == best {
			tied = append(tied, d)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}

	// The highest-priority agent voting for a tied decision settles it.
	set := models.SignalSet{Signals: signals}
	for _, name := range m.limits.TiePriority {
		s := set.Get(name)
		if s == nil {
			continue
		}
		for _, d := range tied {
			if s.Decision == d {
				return d
			}
		}
	}
	return models.DecisionHold
}

func (m *Manager) sizeBuy(portfolio models.PortfolioSnapshot, price decimal.Decimal, confidence float64, rationale string) models.RiskAdjustedAction {
	if !price.IsPositive() {
		return hold(rationale + "; no valid price")
	}
	if !portfolio.Cash.IsPositive() {
		return hold(rationale + "; no cash available")
	}

	value := portfolio.PortfolioValue

	desired := value.Mul(decimal.NewFromFloat(confidence))

	// Per-trade cap.
	maxTrade := value.Mul(decimal.NewFromFloat(m.limits.MaxTradeFraction))
	if desired.GreaterThan(maxTrade) {
		desired = maxTrade
	}

	// Concentration cap: leave room under the max position fraction.
	headroom := value.Mul(decimal.NewFromFloat(m.limits.MaxPositionFraction)).Sub(portfolio.StockValue)
	if !headroom.IsPositive() {
		return hold(rationale + "; position concentration limit reached")
	}
	if desired.GreaterThan(headroom) {
		desired = headroom
	}

	shares := desired.Div(price).IntPart()
	if shares <= 0 {
		return hold(rationale + "; sized below one share")
	}

	return models.RiskAdjustedAction{
		Decision:  models.DecisionBuy,
		Shares:    shares,
		Rationale: rationale,
	}
}

func (m *Manager) sizeSell(portfolio models.PortfolioSnapshot, confidence float64, rationale string) models.RiskAdjustedAction {
	if portfolio.Stock <= 0 {
		return hold(rationale + "; no holdings to sell")
	}

	shares := int64(math.Ceil(confidence * float64(portfolio.Stock)))
	if shares > portfolio.Stock {
		shares = portfolio.Stock
	}
	if shares <= 0 {
		return hold(rationale + "; sized below one share")
	}

	return models.RiskAdjustedAction{
		Decision:  models.DecisionSell,
		Shares:    shares,
		Rationale: rationale,
	}
}

func hold(rationale string) models.RiskAdjustedAction {
	return models.RiskAdjustedAction{
		Decision:  models.DecisionHold,
		Shares:    0,
		Rationale: rationale,
	}
}
