package marketdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	apperrors "github.com/Syair/Free-US-Investment-Agent-System/internal/errors"
	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// StaticProvider serves fixed in-memory data. It backs replayed backtests and
// tests: identical contents produce identical responses, which is what the
// engine's determinism guarantee is defined against.
type StaticProvider struct {
	mu           sync.RWMutex
	candles      map[string][]models.Candle
	news         map[string][]models.NewsItem
	fundamentals map[string]*models.FinancialMetrics
}

// NewStaticProvider creates an empty static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		candles:      make(map[string][]models.Candle),
		news:         make(map[string][]models.NewsItem),
		fundamentals: make(map[string]*models.FinancialMetrics),
	}
}

// SetCandles replaces the candle history for a ticker. Candles must be in
// ascending date order.
func (p *StaticProvider) SetCandles(ticker string, candles []models.Candle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles[ticker] = append([]models.Candle(nil), candles...)
}

// SetNews replaces the news items for a ticker, newest first.
func (p *StaticProvider) SetNews(ticker string, items []models.NewsItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.news[ticker] = append([]models.NewsItem(nil), items...)
}

// SetFundamentals replaces the financial metrics for a ticker.
func (p *StaticProvider) SetFundamentals(ticker string, m *models.FinancialMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fundamentals[ticker] = m
}

// FetchPriceHistory implements Provider.
func (p *StaticProvider) FetchPriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	all, ok := p.candles[ticker]
	p.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewDataError("price_history", ticker, "no data for ticker", nil)
	}

	var out []models.Candle
	for _, c := range all {
		if c.Date.Before(start) || c.Date.After(end) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, apperrors.NewDataError("price_history", ticker, "no candles in window", nil)
	}
	return out, nil
}

// FetchNews implements Provider.
func (p *StaticProvider) FetchNews(ctx context.Context, ticker string, asOf time.Time, count int) ([]models.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}

	p.mu.RLock()
	all := p.news[ticker]
	p.mu.RUnlock()

	var out []models.NewsItem
	for _, n := range all {
		if n.PublishedAt.After(asOf) {
			continue
		}
		out = append(out, n)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

// FetchFundamentals implements FundamentalsProvider.
func (p *StaticProvider) FetchFundamentals(ctx context.Context, ticker string, asOf time.Time) (*models.FinancialMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	m, ok := p.fundamentals[ticker]
	p.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewDataError("fundamentals", ticker, "no fundamentals for ticker", nil)
	}
	out := *m
	return &out, nil
}

// GenerateCandles produces a deterministic synthetic daily price walk for
// demo runs. The same seed always yields the same series; weekends are skipped.
func GenerateCandles(start, end time.Time, basePrice float64, seed int64) []models.Candle {
	rng := rand.New(rand.NewSource(seed))

	var out []models.Candle
	price := basePrice
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		change := (rng.Float64() - 0.5) * price * 0.04
		open := price
		close := price + change
		high := open
		if close > high {
			high = close
		}
		high *= 1 + rng.Float64()*0.01
		low := open
		if close < low {
			low = close
		}
		low *= 1 - rng.Float64()*0.01

		out = append(out, models.Candle{
			Date:   d,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: int64(rng.Intn(900000) + 100000),
		})
		price = close
	}
	return out
}
