package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
)

func validParams() TradingParameters {
	return TradingParameters{
		Ticker:         "AAPL",
		StartDate:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(100000),
		NumOfNews:      5,
	}
}

func TestTradingParametersValidate(t *testing.T) {
	params := validParams()
	if err := params.Validate(); err != nil {
		t.Fatalf("valid parameters rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*TradingParameters)
	}{
		{"empty ticker", func(p *TradingParameters) { p.Ticker = "" }},
		{"zero start", func(p *TradingParameters) { p.StartDate = time.Time{} }},
		{"start after end", func(p *TradingParameters) { p.StartDate = p.EndDate.AddDate(0, 0, 1) }},
		{"zero capital", func(p *TradingParameters) { p.InitialCapital = decimal.Zero }},
		{"negative capital", func(p *TradingParameters) { p.InitialCapital = decimal.NewFromInt(-1) }},
		{"negative news", func(p *TradingParameters) { p.NumOfNews = -1 }},
		{"too much news", func(p *TradingParameters) { p.NumOfNews = MaxNewsCount + 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParams()
			tc.mutate(&p)
			if err := p.Validate(); !apperrors.Is(err, apperrors.ErrInvalidParameters) {
				t.Errorf("expected ErrInvalidParameters, got %v", err)
			}
		})
	}
}

func TestSnapshotInvariant(t *testing.T) {
	s := PortfolioSnapshot{
		Date:           time.Now(),
		Cash:           decimal.NewFromInt(100),
		Stock:          2,
		StockValue:     decimal.NewFromInt(50),
		PortfolioValue: decimal.NewFromInt(151), // off by one
	}
	if err := s.Validate(); err == nil {
		t.Error("expected invariant violation")
	}
	s.PortfolioValue = decimal.NewFromInt(150)
	if err := s.Validate(); err != nil {
		t.Errorf("valid snapshot rejected: %v", err)
	}
}

func TestRunStatusTransitions(t *testing.T) {
	allowed := map[RunStatus][]RunStatus{
		StatusInitialized: {StatusRunning, StatusFailed, StatusCancelled},
		StatusRunning:     {StatusCompleted, StatusFailed, StatusCancelled},
	}
	all := []RunStatus{StatusInitialized, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}

	for _, s := range []RunStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if StatusRunning.Terminal() || StatusInitialized.Terminal() {
		t.Error("non-terminal status reported terminal")
	}
}

func TestAnalystSignalValidate(t *testing.T) {
	s := AnalystSignal{AgentName: AgentTechnical, Decision: DecisionBuy, Confidence: 0.7}
	if err := s.Validate(); err != nil {
		t.Fatalf("valid signal rejected: %v", err)
	}

	s.Confidence = 1.2
	if err := s.Validate(); err == nil {
		t.Error("confidence above 1 accepted")
	}
	s.Confidence = 0.7
	s.Decision = "short"
	if err := s.Validate(); err == nil {
		t.Error("unknown decision accepted")
	}
}
