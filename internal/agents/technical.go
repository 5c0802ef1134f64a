package agents

import (
	"context"
	"fmt"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/analysis/indicators"
	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

const (
	technicalMinBars  = 21
	technicalSMAShort = 10
	technicalSMALong  = 20
	technicalRSILen   = 14
	technicalBand     = 0.25
)

// TechnicalAgent scores the ticker from price action: moving-average trend,
// RSI and momentum.
type TechnicalAgent struct {
	BaseAgent
}

// NewTechnicalAgent creates a new technical analysis agent.
func NewTechnicalAgent() *TechnicalAgent {
	return &TechnicalAgent{BaseAgent: NewBaseAgent(models.AgentTechnical)}
}

// Evaluate implements Agent.
func (a *TechnicalAgent) Evaluate(ctx context.Context, req Request) (*models.AnalystSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Window) < technicalMinBars {
		return nil, apperrors.NewAgentError(string(a.Name()), req.Ticker,
			apperrors.Wrapf(apperrors.ErrInsufficientData, "need %d bars, got %d", technicalMinBars, len(req.Window)))
	}

	smaShort, err := indicators.SMA(req.Window, technicalSMAShort)
	if err != nil {
		return nil, apperrors.NewAgentError(string(a.Name()), req.Ticker, err)
	}
	smaLong, err := indicators.SMA(req.Window, technicalSMALong)
	if err != nil {
		return nil, apperrors.NewAgentError(string(a.Name()), req.Ticker, err)
	}
	rsi, err := indicators.RSI(req.Window, technicalRSILen)
	if err != nil {
		return nil, apperrors.NewAgentError(string(a.Name()), req.Ticker, err)
	}
	momentum, err := indicators.Momentum(req.Window, technicalSMALong)
	if err != nil {
		return nil, apperrors.NewAgentError(string(a.Name()), req.Ticker, err)
	}

	// Trend: distance of the short MA above/below the long MA, saturated at 5%.
	trendScore := clampScore((smaShort/smaLong-1)*20, -1, 1)
	// RSI: oversold is a buy signal, overbought a sell signal.
	rsiScore := clampScore((50-rsi)/30, -1, 1)
	// Momentum over the long window, saturated at 20%.
	momentumScore := clampScore(momentum*5, -1, 1)

	score := trendScore*0.4 + rsiScore*0.3 + momentumScore*0.3

	decision := scoreToDecision(score, technicalBand)
	signal := a.NewSignal(req, decision, directionalConfidence(score, technicalBand),
		fmt.Sprintf("trend %.2f, rsi %.1f, momentum %.1f%% -> composite %.2f",
			trendScore, rsi, momentum*100, score))

	signal.Metrics["sma_short"] = smaShort
	signal.Metrics["sma_long"] = smaLong
	signal.Metrics["rsi"] = rsi
	signal.Metrics["momentum"] = momentum
	signal.Metrics["composite_score"] = score

	return signal, nil
}

func clampScore(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
