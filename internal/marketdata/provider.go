// Package marketdata defines the market data provider contracts the backtest
// engine depends on, plus a static in-memory provider for replay and testing.
package marketdata

import (
	"context"
	"time"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

// Provider supplies OHLCV price history and recent news for a ticker.
// Implementations must be safe for concurrent use by multiple runs.
type Provider interface {
	// FetchPriceHistory returns the ordered daily candles for the ticker in
	// [start, end]. It returns a DataError wrapping ErrDataUnavailable when
	// the window cannot be served.
	FetchPriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.Candle, error)

	// FetchNews returns up to count recent news items for the ticker,
	// newest first, published at or before asOf.
	FetchNews(ctx context.Context, ticker string, asOf time.Time, count int) ([]models.NewsItem, error)
}

// FundamentalsProvider optionally supplies financial metrics for the
// fundamental and valuation agents. Engines probe for it with a type
// assertion; when absent those agents fail soft.
type FundamentalsProvider interface {
	FetchFundamentals(ctx context.Context, ticker string, asOf time.Time) (*models.FinancialMetrics, error)
}
