package marketdata

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

var headlineTemplates = []string{
	"%s beats quarterly revenue estimates",
	"%s guidance disappoints as growth slows",
	"Analysts upgrade %s on strong product demand",
	"%s faces regulatory scrutiny over new offering",
	"%s announces expanded share buyback program",
	"Supply issues weigh on %s margins",
	"%s unveils partnership to accelerate growth",
	"Institutional investors trim positions in %s",
}

// GenerateNews produces a deterministic synthetic news feed for demo runs,
// newest first. One item is published every other weekday.
func GenerateNews(ticker string, start, end time.Time, seed int64) []models.NewsItem {
	rng := rand.New(rand.NewSource(seed + 1))

	var out []models.NewsItem
	for d := start; !d.After(end); d = d.AddDate(0, 0, 2) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		template := headlineTemplates[rng.Intn(len(headlineTemplates))]
		out = append(out, models.NewsItem{
			Headline:    fmt.Sprintf(template, ticker),
			Source:      "replay",
			PublishedAt: d,
		})
	}
	// Newest first, matching provider contract.
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// GenerateFundamentals produces deterministic synthetic financial metrics for
// demo runs, loosely scaled to the price level.
func GenerateFundamentals(basePrice float64, seed int64, asOf time.Time) *models.FinancialMetrics {
	rng := rand.New(rand.NewSource(seed + 2))

	return &models.FinancialMetrics{
		MarketCap:            basePrice * float64(500_000_000),
		PERatio:              12 + rng.Float64()*20,
		PriceToBook:          1.5 + rng.Float64()*4,
		ReturnOnEquity:       0.08 + rng.Float64()*0.15,
		NetMargin:            0.05 + rng.Float64()*0.20,
		RevenueGrowth:        -0.02 + rng.Float64()*0.20,
		EarningsGrowth:       -0.05 + rng.Float64()*0.25,
		CurrentRatio:         0.8 + rng.Float64()*1.8,
		DebtToEquity:         0.2 + rng.Float64()*1.3,
		EarningsPerShare:     basePrice * (0.03 + rng.Float64()*0.05),
		FreeCashFlowPerShare: basePrice * (0.02 + rng.Float64()*0.04),
		AsOf:                 asOf,
	}
}
